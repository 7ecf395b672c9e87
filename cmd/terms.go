package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mapviz/internal/terms"
	"github.com/sells-group/mapviz/internal/tile"
)

var termsCmd = &cobra.Command{
	Use:   "terms",
	Short: "Manage word-count tiles",
}

var termsIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load a {z}/{x}/{y}.json word-count tree into SQLite",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		dbPath, _ := cmd.Flags().GetString("db")
		if dir == "" {
			dir = cfg.Terms.Dir
		}
		if dbPath == "" {
			dbPath = cfg.Terms.SQLitePath
		}
		cfg.Terms.SQLitePath = dbPath
		if err := cfg.Validate("terms"); err != nil {
			return err
		}

		n, err := ingestTerms(cmd.Context(), dir, dbPath)
		if err != nil {
			return err
		}
		zap.L().Info("terms ingest complete", zap.String("dir", dir), zap.String("db", dbPath), zap.Int("tiles", n))
		return nil
	},
}

func init() {
	termsIngestCmd.Flags().String("dir", "", "root of the word-count tree (default terms.dir)")
	termsIngestCmd.Flags().String("db", "", "SQLite database path (default terms.sqlite_path)")

	termsCmd.AddCommand(termsIngestCmd)
	rootCmd.AddCommand(termsCmd)
}

// ingestTerms copies every tile under dir into the SQLite store at dbPath and
// returns the number of tiles written.
func ingestTerms(ctx context.Context, dir, dbPath string) (int, error) {
	st, err := terms.NewSQLite(dbPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = st.Close() }()

	if err := st.Migrate(ctx); err != nil {
		return 0, err
	}

	var n int
	err = terms.NewJSONSource(dir).Walk(ctx, func(c tile.Coord, counts map[string]int) error {
		if err := st.Ingest(ctx, c, counts); err != nil {
			return err
		}
		n++
		zap.L().Debug("ingested tile", zap.Stringer("tile", c), zap.Int("terms", len(counts)))
		return nil
	})
	return n, err
}
