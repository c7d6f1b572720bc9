package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fieldpress/dispatch/internal/config"
	_ "modernc.org/sqlite"
)

// FileName is the SQLite database file inside the base directory.
const FileName = "dispatch.db"

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 2

// Init initializes the SQLite database at baseDir/dispatch.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.dispatch.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify WAL mode is active
	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS articles (
		  id             INTEGER PRIMARY KEY AUTOINCREMENT,
		  title          TEXT NOT NULL,
		  slug           TEXT NOT NULL UNIQUE,
		  excerpt        TEXT,
		  content        TEXT NOT NULL,
		  featured_image TEXT,
		  category       TEXT NOT NULL DEFAULT 'update',
		  author         TEXT NOT NULL,
		  source_type    TEXT,
		  source_url     TEXT,
		  published      INTEGER NOT NULL DEFAULT 0,
		  featured       INTEGER NOT NULL DEFAULT 0,
		  created_at     INTEGER NOT NULL,
		  updated_at     INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_articles_published_created
		ON articles(published, created_at DESC);

		CREATE TABLE IF NOT EXISTS youtube_videos (
		  video_id      TEXT PRIMARY KEY,
		  title         TEXT NOT NULL,
		  description   TEXT NOT NULL DEFAULT '',
		  thumbnail_url TEXT NOT NULL DEFAULT '',
		  published_at  INTEGER NOT NULL,
		  view_count    INTEGER NOT NULL DEFAULT 0,
		  like_count    INTEGER NOT NULL DEFAULT 0,
		  duration      TEXT NOT NULL DEFAULT '',
		  fetched_at    INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_youtube_videos_published
		ON youtube_videos(published_at DESC);

		CREATE TABLE IF NOT EXISTS youtube_transcripts (
		  video_id         TEXT PRIMARY KEY,
		  full_text        TEXT NOT NULL,
		  segments_json    TEXT NOT NULL,
		  duration_seconds REAL NOT NULL DEFAULT 0,
		  source           TEXT NOT NULL,
		  created_at       INTEGER NOT NULL,
		  updated_at       INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS transcript_files (
		  filename     TEXT PRIMARY KEY,
		  content_hash TEXT NOT NULL,
		  video_id     TEXT NOT NULL,
		  similarity   REAL NOT NULL,
		  synced_at    INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS x_posts (
		  id              INTEGER PRIMARY KEY AUTOINCREMENT,
		  post_id         TEXT NOT NULL UNIQUE,
		  content         TEXT NOT NULL,
		  author_username TEXT NOT NULL,
		  author_name     TEXT,
		  author_avatar   TEXT,
		  likes_count     INTEGER NOT NULL DEFAULT 0,
		  retweets_count  INTEGER NOT NULL DEFAULT 0,
		  replies_count   INTEGER NOT NULL DEFAULT 0,
		  media_urls_json TEXT,
		  posted_at       INTEGER NOT NULL,
		  fetched_at      INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS x_mentions (
		  id              INTEGER PRIMARY KEY AUTOINCREMENT,
		  post_id         TEXT NOT NULL UNIQUE,
		  content         TEXT NOT NULL,
		  author_username TEXT NOT NULL,
		  author_name     TEXT,
		  author_avatar   TEXT,
		  likes_count     INTEGER NOT NULL DEFAULT 0,
		  retweets_count  INTEGER NOT NULL DEFAULT 0,
		  replies_count   INTEGER NOT NULL DEFAULT 0,
		  media_urls_json TEXT,
		  posted_at       INTEGER NOT NULL,
		  fetched_at      INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS news_articles (
		  id           INTEGER PRIMARY KEY AUTOINCREMENT,
		  article_url  TEXT NOT NULL UNIQUE,
		  title        TEXT NOT NULL,
		  summary      TEXT NOT NULL DEFAULT '',
		  source       TEXT NOT NULL DEFAULT '',
		  published_at INTEGER,
		  fetched_at   INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS news_search_metadata (
		  id             INTEGER PRIMARY KEY CHECK (id = 1),
		  summary        TEXT NOT NULL,
		  citations_json TEXT NOT NULL,
		  fetched_at     INTEGER NOT NULL
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Migration 1 -> 2: LLM summaries on cached videos
	if version < 2 {
		if _, err := db.Exec(`ALTER TABLE youtube_videos ADD COLUMN summary TEXT`); err != nil {
			return fmt.Errorf("migration 2 failed: %w", err)
		}
		if err := SetUserVersion(db, 2); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
