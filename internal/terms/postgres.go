package terms

import (
	"context"
	"fmt"
	"regexp"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mapviz/internal/db"
	"github.com/sells-group/mapviz/internal/tile"
)

// DefaultLimit caps the number of distinct terms returned per tile.
const DefaultLimit = 50

// identifierRe allowlists table and column names interpolated into SQL.
var identifierRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)

// PostgresConfig names the table holding documents with a text[] terms
// column and a geometry column in EPSG:4326.
type PostgresConfig struct {
	Table       string
	TermsColumn string
	GeomColumn  string
	Limit       int
	// Terms restricts counting to these terms when non-empty.
	Terms []string
}

// PostgresSource counts terms of the documents intersecting a tile envelope.
type PostgresSource struct {
	pool  db.Pool
	cfg   PostgresConfig
	query string
}

// NewPostgresSource validates cfg and builds the tile query.
func NewPostgresSource(pool db.Pool, cfg PostgresConfig) (*PostgresSource, error) {
	if cfg.TermsColumn == "" {
		cfg.TermsColumn = "terms"
	}
	if cfg.GeomColumn == "" {
		cfg.GeomColumn = "geom"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	for _, ident := range []string{cfg.Table, cfg.TermsColumn, cfg.GeomColumn} {
		if !identifierRe.MatchString(ident) {
			return nil, eris.Errorf("terms: invalid identifier %q", ident)
		}
	}
	return &PostgresSource{pool: pool, cfg: cfg, query: buildQuery(cfg)}, nil
}

func buildQuery(cfg PostgresConfig) string {
	filter := ""
	if len(cfg.Terms) > 0 {
		filter = "WHERE term = ANY($3)"
	}
	return fmt.Sprintf(`
		SELECT term, COUNT(*) AS term_count FROM (
			SELECT unnest(%s) AS term
			FROM %s
			WHERE ST_Intersects(%s, ST_GeomFromEWKB($1))
		) terms
		%s
		GROUP BY term
		ORDER BY term_count DESC
		LIMIT $2`,
		cfg.TermsColumn, cfg.Table, cfg.GeomColumn, filter)
}

// Counts implements Source.
func (s *PostgresSource) Counts(ctx context.Context, c tile.Coord) (map[string]int, error) {
	env, err := c.EnvelopeEWKB()
	if err != nil {
		return nil, err
	}

	args := []any{env, s.cfg.Limit}
	if len(s.cfg.Terms) > 0 {
		args = append(args, s.cfg.Terms)
	}

	rows, err := s.pool.Query(ctx, s.query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "terms: query tile %s", c)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			term  string
			count int64
		)
		if err := rows.Scan(&term, &count); err != nil {
			return nil, eris.Wrap(err, "terms: scan term count")
		}
		counts[term] = int(count)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "terms: iterate term counts")
	}
	return counts, nil
}
