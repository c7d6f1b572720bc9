package ops

import (
	"database/sql"

	"github.com/fieldpress/dispatch/internal/db"
)

// PurgeOutput contains the result of the PurgeArticles operation.
type PurgeOutput struct {
	Success bool   `json:"success"`
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// PurgeArticles permanently deletes every article.
func PurgeArticles(database *sql.DB) (*PurgeOutput, error) {
	count, err := db.DeleteAllArticles(database)
	if err != nil {
		return nil, err
	}

	return &PurgeOutput{
		Success: true,
		Purged:  count,
		Message: "All articles deleted.",
	}, nil
}
