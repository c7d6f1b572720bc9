package db

import (
	"database/sql"

	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/errors"
)

// GetTranscriptFile returns the last sync record for a transcript file.
func GetTranscriptFile(db *sql.DB, filename string) (*content.TranscriptFile, error) {
	var f content.TranscriptFile
	err := db.QueryRow(`
		SELECT filename, content_hash, video_id, similarity, synced_at
		FROM transcript_files WHERE filename = ?
	`, filename).Scan(&f.Filename, &f.ContentHash, &f.VideoID, &f.Similarity, &f.SyncedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("transcript file", filename)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &f, nil
}

// UpsertTranscriptFile records a successful sync of a transcript file.
func UpsertTranscriptFile(db *sql.DB, f *content.TranscriptFile) error {
	_, err := db.Exec(`
		INSERT INTO transcript_files (filename, content_hash, video_id, similarity, synced_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			content_hash = excluded.content_hash,
			video_id = excluded.video_id,
			similarity = excluded.similarity,
			synced_at = excluded.synced_at
	`, f.Filename, f.ContentHash, f.VideoID, f.Similarity, f.SyncedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// DeleteTranscriptFilesForVideo forgets sync records pointing at videoID,
// so the next sync re-imports the file even when it is unchanged.
func DeleteTranscriptFilesForVideo(db *sql.DB, videoID string) error {
	if _, err := db.Exec(`DELETE FROM transcript_files WHERE video_id = ?`, videoID); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListTranscriptFiles returns every sync record ordered by filename.
func ListTranscriptFiles(db *sql.DB) ([]content.TranscriptFile, error) {
	rows, err := db.Query(`
		SELECT filename, content_hash, video_id, similarity, synced_at
		FROM transcript_files ORDER BY filename
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	files := []content.TranscriptFile{}
	for rows.Next() {
		var f content.TranscriptFile
		if err := rows.Scan(&f.Filename, &f.ContentHash, &f.VideoID, &f.Similarity, &f.SyncedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return files, nil
}
