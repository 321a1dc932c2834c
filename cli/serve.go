package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/catalog"
	flowotel "github.com/flowcanvas/flowcanvas/otel"
	"github.com/flowcanvas/flowcanvas/server"
)

// NewServeCmd creates the "serve" subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the builder HTTP API server",
		RunE:  runServe,
	}

	cmd.Flags().IntP("port", "p", 8080, "Listen port")
	cmd.Flags().String("host", "0.0.0.0", "Listen host")
	cmd.Flags().String("cors-origin", "*", "Allowed CORS origin")
	cmd.Flags().String("catalog-file", "", "Path to a local catalog file to serve")
	cmd.Flags().String("catalog-url", "", "Upstream catalog endpoint to fetch from")
	cmd.Flags().String("refresh-cron", "*/15 * * * *", "Cron schedule for catalog refresh")
	cmd.Flags().String("sqlite-path", "", "Path to SQLite database for catalog persistence")
	cmd.Flags().String("otlp-endpoint", "", "OTLP/HTTP collector endpoint for traces")
	cmd.Flags().Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	cmd.Flags().Int64("max-body", 1<<20, "Max request body size in bytes")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	corsOrigin, _ := cmd.Flags().GetString("cors-origin")
	catalogFile, _ := cmd.Flags().GetString("catalog-file")
	catalogURL, _ := cmd.Flags().GetString("catalog-url")
	refreshCron, _ := cmd.Flags().GetString("refresh-cron")
	otlpEndpoint, _ := cmd.Flags().GetString("otlp-endpoint")
	readTimeout, _ := cmd.Flags().GetDuration("read-timeout")
	writeTimeout, _ := cmd.Flags().GetDuration("write-timeout")
	maxBody, _ := cmd.Flags().GetInt64("max-body")

	if catalogFile == "" && catalogURL == "" {
		return exitError(exitValidation, "either --catalog-file or --catalog-url is required")
	}

	logger := slog.Default()

	shutdownTracing, err := flowotel.Setup(cmd.Context(), flowotel.Config{
		Endpoint:    otlpEndpoint,
		ServiceName: "flowcanvas",
		Insecure:    true,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		_ = shutdownTracing(context.Background())
	}()

	store, closeStore, err := resolveCatalogStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := server.NewServer(server.ServerConfig{
		Store:      store,
		CORSOrigin: corsOrigin,
		MaxBody:    maxBody,
		Logger:     logger,
		Tracer:     flowotel.Tracer("flowcanvas/server"),
	})

	if catalogFile != "" {
		cat, err := catalog.Load(catalogFile, logger)
		if err != nil {
			return exitError(exitInputParse, "loading catalog file: %v", err)
		}
		source, err := json.Marshal(cat.Document())
		if err != nil {
			return fmt.Errorf("encoding catalog: %w", err)
		}
		sum := sha256.Sum256(source)
		srv.SetCatalog(hex.EncodeToString(sum[:6]), cat)
	}

	var refresher *server.Refresher
	if catalogURL != "" {
		refresher, err = server.NewRefresher(server.RefresherConfig{
			URL:    catalogURL,
			Cron:   refreshCron,
			Store:  store,
			Server: srv,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("creating catalog refresher: %w", err)
		}
		refresher.Start()
		defer refresher.Stop()
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.OutOrStdout(), "FlowCanvas API listening on %s\n", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(cmd.OutOrStdout(), "Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return exitError(exitRuntime, "shutdown error: %v", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitError(exitRuntime, "server error: %v", err)
		}
		return nil
	}
}

// resolveCatalogStore opens the SQLite catalog store when a path is
// configured (flag first, then FLOWCANVAS_SQLITE_PATH), falling back to the
// in-memory store.
func resolveCatalogStore(cmd *cobra.Command) (server.CatalogStore, func(), error) {
	sqlitePath, _ := cmd.Flags().GetString("sqlite-path")
	dsn := strings.TrimSpace(sqlitePath)
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("FLOWCANVAS_SQLITE_PATH"))
	}
	if dsn == "" {
		return server.NewMemoryStore(), func() {}, nil
	}

	store, err := server.NewSQLiteStore(server.SQLiteStoreConfig{DSN: dsn})
	if err != nil {
		return nil, nil, fmt.Errorf("opening sqlite catalog store: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}
