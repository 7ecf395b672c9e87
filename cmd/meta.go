package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mapviz/internal/density"
	"github.com/sells-group/mapviz/internal/extrema"
)

var metaCmd = &cobra.Command{
	Use:   "meta",
	Short: "Manage per-zoom density extrema",
}

var metaBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Scan a bins tree and write meta.json",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		out, _ := cmd.Flags().GetString("out")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		meta, err := density.BuildMeta(cmd.Context(), dir, concurrency)
		if err != nil {
			return err
		}
		if out == "" {
			out = dir
		}
		return writeMeta(meta, out)
	},
}

func init() {
	metaBuildCmd.Flags().String("dir", "", "root of the {z}/{x}/{y}.bins tree")
	metaBuildCmd.Flags().String("out", "", "directory to write meta.json to (default --dir)")
	metaBuildCmd.Flags().Int("concurrency", 4, "zoom levels scanned in parallel")
	_ = metaBuildCmd.MarkFlagRequired("dir")

	metaCmd.AddCommand(metaBuildCmd)
	rootCmd.AddCommand(metaCmd)
}

// writeMeta writes meta as {dir}/meta.json.
func writeMeta(meta extrema.Meta, dir string) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return eris.Wrap(err, "meta: marshal")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "meta: create %s", dir)
	}
	path := filepath.Join(dir, extrema.MetaFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "meta: write %s", path)
	}
	zap.L().Info("wrote meta", zap.String("path", path), zap.Int("zooms", len(meta)))
	return nil
}
