package terms

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/mapviz/internal/tile"
)

// SQLiteStore keeps per-tile term counts in a SQLite database. It implements
// Source.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens the SQLite database at dsn and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS term_counts (
	z     INTEGER NOT NULL,
	x     INTEGER NOT NULL,
	y     INTEGER NOT NULL,
	term  TEXT    NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY (z, x, y, term)
);

CREATE INDEX IF NOT EXISTS idx_term_counts_z ON term_counts(z);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ingest replaces the counts of tile c.
func (s *SQLiteStore) Ingest(ctx context.Context, c tile.Coord, counts map[string]int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin ingest")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM term_counts WHERE z = ? AND x = ? AND y = ?`, c.Z, c.X, c.Y,
	); err != nil {
		return eris.Wrapf(err, "sqlite: clear tile %s", c)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO term_counts (z, x, y, term, count) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer func() { _ = stmt.Close() }()

	for term, count := range counts {
		if _, err := stmt.ExecContext(ctx, c.Z, c.X, c.Y, term, count); err != nil {
			return eris.Wrapf(err, "sqlite: insert term %q", term)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit ingest")
}

// Counts implements Source.
func (s *SQLiteStore) Counts(ctx context.Context, c tile.Coord) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT term, count FROM term_counts WHERE z = ? AND x = ? AND y = ?`, c.Z, c.X, c.Y)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query tile %s", c)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			term  string
			count int
		)
		if err := rows.Scan(&term, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan term count")
		}
		counts[term] = count
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: iterate term counts")
}

// Tiles lists the tiles at zoom z that have counts.
func (s *SQLiteStore) Tiles(ctx context.Context, z int) ([]tile.Coord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT x, y FROM term_counts WHERE z = ? ORDER BY x, y`, z)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list tiles z=%d", z)
	}
	defer func() { _ = rows.Close() }()

	var out []tile.Coord
	for rows.Next() {
		c := tile.Coord{Z: z}
		if err := rows.Scan(&c.X, &c.Y); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan tile")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate tiles")
}
