package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docswitch/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the site with live rendering and reload",
	Long: `Starts a development server that renders pages on request, exposes a small
JSON API and Prometheus metrics, and tells open browsers to re-render when
the shell or the table changes on disk.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (defaults to server.port from the config)")
	serveCmd.Flags().Bool("no-watch", false, "do not reload on file changes")
	serveCmd.Flags().Bool("allow-all-origins", false, "allow cross-origin requests from any origin")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	port := cfg.Server.Port
	if p, _ := cmd.Flags().GetInt("port"); p != 0 {
		port = p
	}
	watch := cfg.Server.Watch
	if noWatch, _ := cmd.Flags().GetBool("no-watch"); noWatch {
		watch = false
	}
	allowAll := cfg.Server.AllowAllOrigins
	if a, _ := cmd.Flags().GetBool("allow-all-origins"); a {
		allowAll = true
	}

	logger := newLogger()
	srv, err := server.New(server.Config{
		Port:      port,
		ShellPath: cfg.Shell,
		TablePath: cfg.Table,
		Render:    renderOptions(cfg),
		AllowAll:  allowAll,
		Watch:     watch,
	}, logger)
	if err != nil {
		return err
	}

	// Graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nShutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	fmt.Fprintf(os.Stderr, "docswitch %s serving %s on http://localhost:%d\n", Version, cfg.Shell, port)
	return srv.Start()
}
