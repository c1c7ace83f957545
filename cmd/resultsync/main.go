package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	flag "github.com/spf13/pflag"

	"resultsync/internal/cache"
	"resultsync/internal/config"
	"resultsync/internal/domain"
	"resultsync/internal/eventbus"
	"resultsync/internal/query"
	"resultsync/internal/results"
	"resultsync/internal/store"
	"resultsync/internal/ui"
	"resultsync/internal/ui/commands"
	"resultsync/internal/ui/views"
)

const seedCount = 60

func main() {
	var (
		configPath string
		printMode  bool
		serveAddr  string
		logPath    string
	)
	flag.StringVarP(&configPath, "config", "c", "", "Path to the config file (default: user config dir)")
	flag.BoolVarP(&printMode, "print", "p", false, "Load the cache, search once, print the changes and exit")
	flag.StringVar(&serveAddr, "serve", "", "Serve the configured store over HTTP on this address")
	flag.StringVar(&logPath, "log", "resultsync.log", "Log file")
	flag.Parse()

	// Set up logging
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Could not open log file: %v", err)
	} else {
		defer logFile.Close()
		log.SetOutput(logFile)
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Create event bus
	bus := eventbus.New()
	defer bus.Close()

	cfg, err := loadConfig(config.NewConfigServiceWithBus(bus), configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	remote, err := newRemote(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating store: %v\n", err)
		os.Exit(1)
	}

	if serveAddr != "" {
		if err := serve(ctx, serveAddr, remote); err != nil {
			fmt.Fprintf(os.Stderr, "Error serving store: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Local object cache, warmed from the last snapshot
	objects := cache.New(bus)
	if _, err := objects.LoadFile(cfg.Cache.File); err != nil {
		log.Printf("Could not load cache snapshot: %v", err)
	}

	ttl, _ := cfg.FetchTTL() // validated with the config
	cached, err := store.NewCached(remote, objects, store.CachedConfig{
		Size:    cfg.Cache.LRUSize,
		TTL:     ttl,
		Workers: cfg.Cache.Workers,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating fetch cache: %v\n", err)
		os.Exit(1)
	}

	spec, _ := cfg.QuerySpec()
	opts := []results.Option{results.WithLocalSource(objects)}
	if cfg.UI.BracketLocal {
		opts = append(opts, results.WithLocalBrackets())
	}
	ctrl := results.MustNew(spec, cached, opts...)
	log.Printf("Controller ready for %s", ctrl.Spec())

	staleAfter, _ := cfg.StaleAfter()
	if printMode {
		err = runPrint(ctx, os.Stdout, ctrl)
	} else {
		err = runTUI(ctx, ctrl, objects, cached, staleAfter)
	}
	ctrl.Close()

	if cfg.UI.AutosaveOnExit {
		if saveErr := objects.SaveFile(cfg.Cache.File); saveErr != nil {
			log.Printf("Failed to save cache snapshot: %v", saveErr)
		}
	}
	objects.Close()

	if err != nil {
		log.Printf("Error running program: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the explicit path when given, the default location otherwise
func loadConfig(svc config.ConfigService, path string) (*config.Config, error) {
	if path != "" {
		cfg, err := svc.LoadFromPath(path)
		if err != nil {
			return nil, err
		}
		log.Printf("Loaded config from %s", path)
		return cfg, nil
	}
	return svc.Load()
}

// newRemote builds the store the configuration points at
func newRemote(cfg *config.Config) (results.Store, error) {
	switch cfg.Store.Kind {
	case config.StoreHTTP:
		return store.NewHTTP(cfg.Store.URL, nil)
	default:
		mem := store.NewMemory(store.SeedBugs(seedCount, 1, time.Now())...)
		mem.SetLatency(cfg.Latency())
		return mem, nil
	}
}

func serve(ctx context.Context, addr string, remote results.Store) error {
	srv := &http.Server{Addr: addr, Handler: store.Handler(remote)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Printf("Serving store on %s", addr)
	fmt.Printf("Serving store on %s\n", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// runPrint loads the cache, runs one search and writes every notification to w
func runPrint(ctx context.Context, w io.Writer, ctrl *results.Controller) error {
	done := make(chan error, 1)
	ctrl.SetObserver(results.ObserverFuncs{
		Will:   func(*results.Controller) { fmt.Fprintln(w, "begin") },
		Change: func(c domain.Change) { fmt.Fprintln(w, c) },
		Did:    func(*results.Controller) { fmt.Fprintln(w, "end") },
		Search: func(_ *results.Controller, err error) { done <- err },
	})

	if err := ctrl.LoadLocalCache(); err != nil {
		return err
	}
	ctrl.PerformSearch(ctx)

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	// the list is still printed after a failed search: it is the last good state
	ctrl.Detach()

	order := ctrl.Spec().EffectiveOrder()
	fmt.Fprintf(w, "results (%d):\n", ctrl.Count())
	for i, e := range ctrl.Objects() {
		fmt.Fprintf(w, "%3d  %-10s %s\n", i, e.ID, describe(e, order))
	}
	return err
}

func describe(e domain.Entity, order query.Order) string {
	parts := make([]string, 0, len(order)+1)
	if title, ok := e.Field("title").(string); ok {
		parts = append(parts, title)
	}
	for _, k := range order {
		if k.Field != "title" {
			parts = append(parts, fmt.Sprintf("%s=%s", k.Field, views.FormatValue(e.Field(k.Field))))
		}
	}
	return strings.Join(parts, "  ")
}

func runTUI(ctx context.Context, ctrl *results.Controller, objects *cache.ObjectCache, cached *store.Cached, staleAfter time.Duration) error {
	spec := ctrl.Spec()
	order := spec.EffectiveOrder()
	columns := make([]string, 0, len(order))
	for _, k := range order {
		columns = append(columns, k.Field)
	}
	var bumpField string
	if len(order) > 0 {
		bumpField = order[0].Field
	}

	uiModel := ui.NewModel(ui.Options{
		Title:         spec.String(),
		Columns:       columns,
		StaleAfter:    staleAfter,
		SearchOnStart: true,
		Commands: &commands.CommandContext{
			Ctx:       ctx,
			Searcher:  ctrl,
			Local:     objects,
			Fetcher:   cached,
			BumpField: bumpField,
		},
	})

	p := tea.NewProgram(uiModel, tea.WithAltScreen(), tea.WithContext(ctx))
	uiModel.SetProgram(p)
	ctrl.SetObserver(ui.NewBridge(p))

	// notifications block until the program reads them, so the cache is
	// attached once the program runs
	go func() {
		if err := ctrl.LoadLocalCache(); err != nil {
			log.Printf("Failed to load local cache: %v", err)
			p.Send(ui.ErrorMsg{Err: err})
		}
	}()

	if staleAfter > 0 {
		go func() {
			if _, err := cached.RefreshStale(ctx, objects, spec.EntityType(), staleAfter); err != nil {
				log.Printf("Stale refresh failed: %v", err)
			}
		}()
	}

	_, err := p.Run()
	// stop notifications before the program goes away
	ctrl.Detach()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
