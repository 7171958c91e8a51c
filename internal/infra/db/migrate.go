package db

import (
	"database/sql"
)

// MigrateUp creates the schema the pipeline expects.
//
// posts is range-partitioned by month of published_on; monthly partitions
// (posts_yYYYYmMM) are created lazily by the repository before writes.
// Postgres requires unique constraints on a partitioned table to include the
// partition key, so post_id and url uniqueness is enforced together with
// published_on; the ingest path additionally pre-filters by url before
// inserting.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS rss_sources (
    id         SERIAL PRIMARY KEY,
    name       TEXT NOT NULL,
    url        TEXT NOT NULL UNIQUE,
    category   TEXT,
    priority   INTEGER NOT NULL DEFAULT 5,
    timeout_s  INTEGER,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    id                        BIGSERIAL,
    post_id                   TEXT NOT NULL,
    source_id                 INTEGER REFERENCES rss_sources(id),
    title                     TEXT NOT NULL DEFAULT '',
    content                   TEXT NOT NULL DEFAULT '',
    html_content              TEXT,
    url                       TEXT NOT NULL,
    blog_host                 TEXT NOT NULL DEFAULT '',
    blog_host_type            SMALLINT NOT NULL DEFAULT 0,
    published_on              TIMESTAMPTZ NOT NULL,
    published_at_assumed      BOOLEAN NOT NULL DEFAULT FALSE,
    simhash                   TEXT,
    relevance                 BOOLEAN,
    relevance_score           DOUBLE PRECISION NOT NULL DEFAULT 0,
    category                  TEXT,
    subcategory               TEXT,
    classification_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
    summary                   TEXT,
    created_at                TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at                TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (id, published_on),
    UNIQUE (post_id, published_on),
    UNIQUE (url, published_on)
) PARTITION BY RANGE (published_on)`); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_posts_published_on ON posts (published_on DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_relevance ON posts (relevance) WHERE relevance IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_posts_unclassified ON posts (relevance_score) WHERE category IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_posts_url ON posts (url)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown removes the pipeline schema. All partitions go with the parent
// table. Use with caution: this deletes all data.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS posts CASCADE`,
		`DROP TABLE IF EXISTS rss_sources CASCADE`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
