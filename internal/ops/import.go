package ops

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/fieldpress/dispatch/internal/config"
	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/db"
	"github.com/fieldpress/dispatch/internal/errors"
	"github.com/fieldpress/dispatch/internal/logging"
)

// ImportFormat is the encoding of an article import payload.
type ImportFormat string

const (
	FormatJSON ImportFormat = "json"
	FormatYAML ImportFormat = "yaml"
)

// ImportInput contains parameters for the ImportArticles operation.
type ImportInput struct {
	Data   []byte       // a list of articles, or an object with an "articles" list
	Format ImportFormat // default: json
}

// ImportOutput contains the result of the ImportArticles operation.
// Rows that fail validation or storage are counted as skipped and described in Errors.
type ImportOutput struct {
	Success   bool     `json:"success"`
	Processed int      `json:"processed"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
}

// ImportArticles upserts articles by slug.
//
// Each row must carry string title, slug and content. Optional strings and booleans of the
// wrong type fall back to their defaults. created_at/updated_at are RFC3339 timestamps;
// when created_at is absent an existing article keeps its original one.
func ImportArticles(database *sql.DB, cfg *config.Config, log logrus.FieldLogger, input ImportInput) (*ImportOutput, error) {
	if len(bytes.TrimSpace(input.Data)) == 0 {
		return nil, errors.NewInvalidRequest("no data received")
	}

	rows, err := decodeImportRows(input.Data, input.Format)
	if err != nil {
		return nil, err
	}

	author := ""
	if cfg != nil {
		author = cfg.Site.Author
	}
	if log == nil {
		log = logging.Discard()
	}

	out := &ImportOutput{Errors: []string{}}
	for i, raw := range rows {
		rowNum := i + 1

		record, ok := raw.(map[string]any)
		if !ok {
			out.Errors = append(out.Errors, fmt.Sprintf("Row %d: Not an object", rowNum))
			continue
		}

		title := stringField(record, "title")
		slug := stringField(record, "slug")
		body := stringField(record, "content")
		if title == "" || slug == "" || body == "" {
			out.Errors = append(out.Errors, fmt.Sprintf("Row %d: Missing title, slug, or content", rowNum))
			continue
		}

		a := &content.Article{
			Title:         title,
			Slug:          slug,
			Excerpt:       optionalString(record, "excerpt"),
			Content:       body,
			FeaturedImage: optionalString(record, "featured_image"),
			Category:      stringOr(record, "category", content.DefaultCategory),
			Author:        stringOr(record, "author", author),
			SourceType:    optionalString(record, "source_type"),
			SourceURL:     optionalString(record, "source_url"),
			Published:     boolField(record, "published"),
			Featured:      boolField(record, "featured"),
		}

		createdAt, errC := timeField(record, "created_at")
		updatedAt, errU := timeField(record, "updated_at")
		if errC != nil || errU != nil {
			log.WithFields(logrus.Fields{"row": rowNum, "slug": slug}).Warn("import: bad timestamp")
			out.Errors = append(out.Errors, fmt.Sprintf("Row %d: %s failed to import", rowNum, slug))
			continue
		}
		a.CreatedAt = createdAt
		a.UpdatedAt = updatedAt

		if err := db.UpsertArticleBySlug(database, a, createdAt == 0); err != nil {
			log.WithError(err).WithField("slug", slug).Error("import: upsert failed")
			out.Errors = append(out.Errors, fmt.Sprintf("Row %d: %s failed to import", rowNum, slug))
			continue
		}
		out.Processed++
	}

	out.Skipped = len(out.Errors)
	out.Success = out.Skipped == 0
	return out, nil
}

// ImportArticlesFromFile reads a .json, .yaml or .yml file and imports it.
func ImportArticlesFromFile(database *sql.DB, cfg *config.Config, log logrus.FieldLogger, path string) (*ImportOutput, error) {
	if err := ValidatePath(path, PathCheckRead); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read import file: %w", err))
	}

	return ImportArticles(database, cfg, log, ImportInput{Data: data, Format: formatForPath(path)})
}

func formatForPath(path string) ImportFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// decodeImportRows accepts either a bare list or {"articles": [...]}.
func decodeImportRows(data []byte, format ImportFormat) ([]any, error) {
	var payload any
	switch format {
	case FormatJSON, "":
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, errors.NewInvalidRequest("invalid JSON")
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &payload); err != nil {
			return nil, errors.NewInvalidRequest("invalid YAML")
		}
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown import format %q", format))
	}

	switch v := payload.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if list, ok := v["articles"].([]any); ok {
			return list, nil
		}
	}
	return nil, errors.NewInvalidRequest("expected an array of articles")
}

func stringField(record map[string]any, key string) string {
	s, _ := record[key].(string)
	return s
}

func stringOr(record map[string]any, key, def string) string {
	if s, ok := record[key].(string); ok {
		return s
	}
	return def
}

func optionalString(record map[string]any, key string) *string {
	s, ok := record[key].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func boolField(record map[string]any, key string) bool {
	b, _ := record[key].(bool)
	return b
}

// timeField returns 0 for a missing or null value.
func timeField(record map[string]any, key string) (int64, error) {
	switch v := record[key].(type) {
	case nil:
		return 0, nil
	case time.Time:
		return v.Unix(), nil
	case string:
		if v == "" {
			return 0, nil
		}
		for _, layout := range []string{time.RFC3339Nano, time.DateTime, time.DateOnly} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.Unix(), nil
			}
		}
		return 0, fmt.Errorf("%s: unrecognised timestamp %q", key, v)
	default:
		return 0, fmt.Errorf("%s: unsupported type %T", key, v)
	}
}
