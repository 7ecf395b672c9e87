package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mapviz/internal/config"
	"github.com/sells-group/mapviz/internal/server"
	"github.com/sells-group/mapviz/internal/tile"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tile server",
	Long:  "Serves density tiles at /tiles/{layer}/{z}/{x}/{y}.png and word-cloud tiles at /tiles/{layer}/{z}/{x}/{y}.html.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "HTTP server port (default from config)")
	serveCmd.Flags().Int("cache-size", 0, "tile cache max entries (default from config)")
	serveCmd.Flags().Duration("cache-ttl", 0, "tile cache TTL (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	applyServeFlags(cmd, cfg)
	if err := cfg.Validate("serve"); err != nil {
		return err
	}

	env, err := initApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	handler, err := buildHandler(cfg, env)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down tile server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting tile server",
		zap.Int("port", cfg.Server.Port),
		zap.Int("layers", len(env.Registry.List())),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "tile server listen")
	}
	return nil
}

// applyServeFlags overrides config with any flags set on the command line.
func applyServeFlags(cmd *cobra.Command, c *config.Config) {
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		c.Server.Port = port
	}
	if size, _ := cmd.Flags().GetInt("cache-size"); size != 0 {
		c.Tiles.CacheSize = size
	}
	if ttl, _ := cmd.Flags().GetDuration("cache-ttl"); ttl != 0 {
		c.Tiles.CacheTTL = ttl
	}
}

// buildHandler creates the tile server router for env.
func buildHandler(c *config.Config, env *appEnv) (http.Handler, error) {
	srv, err := server.New(server.Options{
		Registry:    env.Registry,
		Density:     env.Density,
		WordClouds:  env.WordClouds,
		Cache:       tile.NewCache(c.Tiles.CacheSize, c.Tiles.CacheTTL),
		CORSOrigins: c.Server.CORSOrigins,
	})
	if err != nil {
		return nil, err
	}
	return srv.Router(), nil
}
