package ops

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/db"
	"github.com/fieldpress/dispatch/internal/errors"
)

// ExportedArticle is an article with RFC3339 timestamps, the shape ImportArticles reads back.
type ExportedArticle struct {
	ID            int64   `json:"id" yaml:"id"`
	Title         string  `json:"title" yaml:"title"`
	Slug          string  `json:"slug" yaml:"slug"`
	Excerpt       *string `json:"excerpt" yaml:"excerpt"`
	Content       string  `json:"content" yaml:"content"`
	FeaturedImage *string `json:"featured_image" yaml:"featured_image"`
	Category      string  `json:"category" yaml:"category"`
	Author        string  `json:"author" yaml:"author"`
	SourceType    *string `json:"source_type" yaml:"source_type"`
	SourceURL     *string `json:"source_url" yaml:"source_url"`
	Published     bool    `json:"published" yaml:"published"`
	Featured      bool    `json:"featured" yaml:"featured"`
	CreatedAt     string  `json:"created_at" yaml:"created_at"`
	UpdatedAt     string  `json:"updated_at" yaml:"updated_at"`
}

// ExportOutput contains the result of the ExportArticles operation.
type ExportOutput struct {
	Success  bool              `json:"success"`
	Count    int               `json:"count"`
	Articles []ExportedArticle `json:"articles"`
}

// ExportArticles returns every article, drafts included, newest first.
func ExportArticles(database *sql.DB) (*ExportOutput, error) {
	articles, err := db.ListArticles(database, db.ArticleFilter{})
	if err != nil {
		return nil, err
	}

	exported := make([]ExportedArticle, 0, len(articles))
	for _, a := range articles {
		exported = append(exported, toExported(a))
	}
	return &ExportOutput{Success: true, Count: len(exported), Articles: exported}, nil
}

func toExported(a content.Article) ExportedArticle {
	return ExportedArticle{
		ID:            a.ID,
		Title:         a.Title,
		Slug:          a.Slug,
		Excerpt:       a.Excerpt,
		Content:       a.Content,
		FeaturedImage: a.FeaturedImage,
		Category:      a.Category,
		Author:        a.Author,
		SourceType:    a.SourceType,
		SourceURL:     a.SourceURL,
		Published:     a.Published,
		Featured:      a.Featured,
		CreatedAt:     unixRFC3339(a.CreatedAt),
		UpdatedAt:     unixRFC3339(a.UpdatedAt),
	}
}

// ExportFileOutput contains the result of the ExportArticlesToFile operation.
type ExportFileOutput struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// exportDocument is the on-disk layout: {"articles": [...]}.
type exportDocument struct {
	Articles []ExportedArticle `json:"articles" yaml:"articles"`
}

// ExportArticlesToFile writes all articles to a .json, .yaml or .yml file.
// The file is written to a temp name first and renamed into place, so an existing
// export survives a failed write.
func ExportArticlesToFile(database *sql.DB, path string) (*ExportFileOutput, error) {
	if err := ValidatePath(path, PathCheckWrite); err != nil {
		return nil, err
	}

	result, err := ExportArticles(database)
	if err != nil {
		return nil, err
	}

	doc := exportDocument{Articles: result.Articles}
	var data []byte
	if formatForPath(path) == FormatYAML {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportFileOutput{Path: path, Count: result.Count}, nil
}
