package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mapviz/internal/density"
	"github.com/sells-group/mapviz/internal/extrema"
	"github.com/sells-group/mapviz/internal/measure"
	"github.com/sells-group/mapviz/internal/wordcloud"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a single tile to a file",
}

var renderDensityCmd = &cobra.Command{
	Use:   "density",
	Short: "Render a .bins file to a PNG density tile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		binsPath, _ := cmd.Flags().GetString("bins")
		out, _ := cmd.Flags().GetString("out")
		zoom, _ := cmd.Flags().GetInt("zoom")
		metaDir, _ := cmd.Flags().GetString("meta")

		var override *extrema.Extrema
		if cmd.Flags().Changed("min") || cmd.Flags().Changed("max") {
			lo, _ := cmd.Flags().GetFloat64("min")
			hi, _ := cmd.Flags().GetFloat64("max")
			override = &extrema.Extrema{Min: lo, Max: hi}
		}
		return renderDensityFile(cmd.Context(), binsPath, zoom, metaDir, override, out)
	},
}

var renderCloudCmd = &cobra.Command{
	Use:   "cloud",
	Short: "Render a word-count JSON file to an HTML word-cloud tile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		countsPath, _ := cmd.Flags().GetString("counts")
		out, _ := cmd.Flags().GetString("out")
		linear, _ := cmd.Flags().GetBool("linear")
		highlight, _ := cmd.Flags().GetString("highlight")

		m, err := newMeasurer(cfg.WordCloud.FontFile)
		if err != nil {
			return err
		}
		fn := wordcloud.Log
		if linear {
			fn = wordcloud.Linear
		}
		return renderCloudFile(countsPath, fn, m, highlight, out)
	},
}

func init() {
	renderDensityCmd.Flags().String("bins", "", "path to a .bins file")
	renderDensityCmd.Flags().String("out", "tile.png", "output PNG path")
	renderDensityCmd.Flags().Int("zoom", 0, "zoom level used to look up meta extrema")
	renderDensityCmd.Flags().String("meta", "", "directory or URL holding meta.json")
	renderDensityCmd.Flags().Float64("min", 0, "colour scale minimum (overrides meta)")
	renderDensityCmd.Flags().Float64("max", 0, "colour scale maximum (overrides meta)")
	_ = renderDensityCmd.MarkFlagRequired("bins")

	renderCloudCmd.Flags().String("counts", "", "path to a word-count JSON object")
	renderCloudCmd.Flags().String("out", "tile.html", "output HTML path")
	renderCloudCmd.Flags().Bool("linear", false, "scale font sizes linearly instead of logarithmically")
	renderCloudCmd.Flags().String("highlight", "", "word to highlight")
	_ = renderCloudCmd.MarkFlagRequired("counts")

	renderCmd.AddCommand(renderDensityCmd, renderCloudCmd)
	rootCmd.AddCommand(renderCmd)
}

// renderDensityFile renders binsPath to a PNG at out. The colour scale is
// override when set, else the meta entry for zoom, else the tile's own range.
func renderDensityFile(ctx context.Context, binsPath string, zoom int, metaDir string, override *extrema.Extrema, out string) error {
	data, err := os.ReadFile(binsPath)
	if err != nil {
		return eris.Wrapf(err, "render: read %s", binsPath)
	}
	bins, err := density.DecodeBins(data)
	if err != nil {
		return err
	}

	meta := extrema.Meta{}
	if metaDir != "" {
		if meta, err = extrema.LoadMeta(ctx, nil, metaDir); err != nil {
			return err
		}
	}

	ext := density.NewRenderer(nil, meta).Extrema(zoom, bins)
	if override != nil {
		ext = *override
	}

	png, err := density.EncodePNG(density.Render(bins, ext))
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, png, 0o644); err != nil {
		return eris.Wrapf(err, "render: write %s", out)
	}
	zap.L().Info("rendered density tile",
		zap.String("out", out), zap.Float64("min", ext.Min), zap.Float64("max", ext.Max))
	return nil
}

// renderCloudFile lays out the counts in countsPath and writes the HTML
// fragment to out.
func renderCloudFile(countsPath string, fn wordcloud.SizeFunction, m measure.TextMeasurer, highlight, out string) error {
	data, err := os.ReadFile(countsPath)
	if err != nil {
		return eris.Wrapf(err, "render: read %s", countsPath)
	}
	var counts map[string]int
	if err := json.Unmarshal(data, &counts); err != nil {
		return eris.Wrapf(err, "render: parse %s", countsPath)
	}

	l := wordcloud.NewLayer(wordcloud.LayerOptions{Name: "render", SizeFunction: fn, Measurer: m})
	if highlight != "" {
		l.Highlight(highlight)
	}
	fragment, err := l.Render(counts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, []byte(fragment), 0o644); err != nil {
		return eris.Wrapf(err, "render: write %s", out)
	}
	zap.L().Info("rendered word cloud", zap.String("out", out), zap.Int("terms", len(counts)))
	return nil
}
