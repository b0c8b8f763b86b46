package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"maptimes/internal/api"
	"maptimes/internal/config"
	"maptimes/internal/importer"
	"maptimes/internal/metrics"
	"maptimes/internal/notify"
	"maptimes/internal/ratelimit"
	"maptimes/internal/scheduler"
	"maptimes/internal/service"
	"maptimes/internal/source/nominatim"
	"maptimes/internal/source/rss"
	"maptimes/internal/storage/postgres"
)

const usage = `usage: maptimes [-config path] <command> [args]

commands:
  import-countries <file.csv>   load countries from a ';' separated file
  add-feed <code> <name>        create a topic and one feed per country
  ingest                        fetch all feeds once
  geocode                       backfill publisher locations once
  run                           ingest and geocode on the configured schedule
  serve                         start the query API
`

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	db, err := connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	app := &app{cfg: cfg, db: db, logger: logger}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if err := app.run(ctx, cmd, args); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

type app struct {
	cfg    *config.Config
	db     *sqlx.DB
	logger *slog.Logger
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "import-countries":
		if len(args) != 1 {
			return errors.New("import-countries expects a file path")
		}
		return a.importCountries(ctx, args[0])
	case "add-feed":
		if len(args) != 2 {
			return errors.New("add-feed expects a topic code and a topic name")
		}
		_, err := a.discoveryService().Discover(ctx, args[0], args[1])
		return err
	case "ingest":
		notifier, err := a.notifier()
		if err != nil {
			return err
		}
		if notifier != nil {
			defer notifier.Close()
		}
		_, err = a.ingestService(notifier).Run(ctx)
		return err
	case "geocode":
		_, err := a.geocodeService().Run(ctx)
		return err
	case "run":
		return a.schedule(ctx)
	case "serve":
		return a.serve(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) importCountries(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open countries file: %w", err)
	}
	defer f.Close()

	_, err = importer.NewCountryImporter(postgres.NewCountryStore(a.db), a.logger).Import(ctx, f)
	return err
}

func (a *app) fetcher() *rss.Fetcher {
	return rss.New(rss.Config{
		Timeout:   a.cfg.Feeds.Timeout,
		UserAgent: a.cfg.Feeds.UserAgent,
	}, a.logger)
}

// notifier returns nil when no RabbitMQ URL is configured.
func (a *app) notifier() (service.Notifier, error) {
	if a.cfg.RabbitMQ.URL == "" {
		return nil, nil
	}
	rabbitMQ, err := notify.NewRabbitMQ(notify.Config{
		URL:        a.cfg.RabbitMQ.URL,
		Exchange:   a.cfg.RabbitMQ.Exchange,
		RoutingKey: a.cfg.RabbitMQ.RoutingKey,
		QueueName:  a.cfg.RabbitMQ.QueueName,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	return rabbitMQ, nil
}

func (a *app) discoveryService() *service.DiscoveryService {
	return service.NewDiscoveryService(
		postgres.NewTopicStore(a.db),
		postgres.NewCountryStore(a.db),
		postgres.NewFeedStore(a.db),
		a.fetcher(),
		a.logger,
		a.cfg.Feeds,
	)
}

func (a *app) ingestService(notifier service.Notifier) *service.IngestService {
	return service.NewIngestService(
		postgres.NewFeedStore(a.db),
		postgres.NewArticleStore(a.db),
		postgres.NewPublisherStore(a.db),
		a.fetcher(),
		postgres.NewTransactionManager(a.db),
		notifier,
		a.logger,
		a.cfg.Ingest,
	)
}

func (a *app) geocodeService() *service.GeocodeService {
	geo := a.cfg.Geocoding
	client := nominatim.New(nominatim.Config{
		BaseURL:   geo.BaseURL,
		UserAgent: geo.UserAgent,
		Timeout:   geo.Timeout,
	}, a.logger)
	caller := ratelimit.New(ratelimit.Policy{
		MinDelay:    geo.MinDelay,
		MaxAttempts: geo.MaxAttempts,
	}, a.logger)

	return service.NewGeocodeService(
		postgres.NewPublisherStore(a.db),
		client,
		caller,
		postgres.NewTransactionManager(a.db),
		a.logger,
	)
}

func (a *app) schedule(ctx context.Context) error {
	notifier, err := a.notifier()
	if err != nil {
		return err
	}
	if notifier != nil {
		defer notifier.Close()
	}

	sched, err := scheduler.NewScheduler(a.ingestService(notifier), a.geocodeService(), scheduler.Config{
		Cron:     a.cfg.Schedule.Cron,
		Timezone: a.cfg.Schedule.Timezone,
		Timeout:  a.cfg.Schedule.Timeout,
	}, a.logger)
	if err != nil {
		return err
	}

	if addr := a.cfg.Schedule.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
	}

	return sched.Start(ctx)
}

func (a *app) serve(ctx context.Context) error {
	handler := api.NewHandler(postgres.NewQueryStore(a.db), a.logger, api.Config{
		DefaultPageSize: a.cfg.API.DefaultPageSize,
		MaxPageSize:     a.cfg.API.MaxPageSize,
	})

	srv := &http.Server{
		Addr:         a.cfg.API.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  a.cfg.API.ReadTimeout,
		WriteTimeout: a.cfg.API.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting query api", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve api: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown api: %w", err)
	}
	a.logger.Info("query api stopped")
	return nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
