package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flowcanvas/flowcanvas/catalog"
)

// RefresherConfig configures periodic catalog refresh from an upstream
// catalog endpoint.
type RefresherConfig struct {
	URL     string
	Cron    string // standard 5-field cron expression
	Client  *http.Client
	Store   CatalogStore // optional persistence
	Server  *Server
	Logger  *slog.Logger
	Timeout time.Duration
}

// Refresher periodically fetches the upstream node-type catalog, persists
// new versions, and swaps them into the server. One broken fetch never
// disturbs the currently served catalog.
type Refresher struct {
	url     string
	client  *http.Client
	store   CatalogStore
	server  *Server
	logger  *slog.Logger
	timeout time.Duration

	cron    *cron.Cron
	entryID cron.EntryID
}

// NewRefresher validates the configuration and schedules the refresh job.
// The job does not run until Start is called.
func NewRefresher(cfg RefresherConfig) (*Refresher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("catalog refresher url is required")
	}
	if cfg.Server == nil {
		return nil, errors.New("catalog refresher server is required")
	}
	expr := strings.TrimSpace(cfg.Cron)
	if expr == "" {
		expr = "*/15 * * * *"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := &Refresher{
		url:     cfg.URL,
		client:  client,
		store:   cfg.Store,
		server:  cfg.Server,
		logger:  logger,
		timeout: timeout,
		cron:    cron.New(),
	}

	entryID, err := r.cron.AddFunc(expr, r.refresh)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh cron expression %q: %w", expr, err)
	}
	r.entryID = entryID
	return r, nil
}

// Start runs one immediate refresh, then begins the cron schedule.
func (r *Refresher) Start() {
	r.refresh()
	r.cron.Start()
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// NextRun reports when the next scheduled refresh fires.
func (r *Refresher) NextRun() time.Time {
	return r.cron.Entry(r.entryID).Next
}

func (r *Refresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	cat, err := catalog.Fetch(ctx, r.client, r.url, r.logger)
	if err != nil {
		r.logger.Warn("catalog refresh failed", "url", r.url, "error", err)
		return
	}

	source, err := json.Marshal(cat.Document())
	if err != nil {
		r.logger.Warn("catalog refresh failed", "url", r.url, "error", err)
		return
	}
	version := catalogVersion(source)

	_, current := r.server.Catalog()
	if current == version {
		return
	}

	if r.store != nil {
		err := r.store.Put(ctx, CatalogRecord{
			Version:   version,
			Source:    source,
			FetchedAt: time.Now().UTC(),
		})
		// An existing version means another replica persisted it first;
		// still swap it in locally.
		if err != nil && !errors.Is(err, ErrCatalogVersionExists) {
			r.logger.Warn("persisting catalog version failed", "version", version, "error", err)
		}
	}

	r.server.SetCatalog(version, cat)
	r.logger.Info("catalog refreshed", "version", version, "entries", cat.Len())
}

// catalogVersion derives a content-addressed version from the canonical
// JSON encoding of the catalog document.
func catalogVersion(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:6])
}
