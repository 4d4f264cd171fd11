package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/seatwatch/internal/api"
	"github.com/ignite/seatwatch/internal/catalog"
	"github.com/ignite/seatwatch/internal/config"
	"github.com/ignite/seatwatch/internal/domain"
	"github.com/ignite/seatwatch/internal/metrics"
	"github.com/ignite/seatwatch/internal/notify"
	"github.com/ignite/seatwatch/internal/pkg/distlock"
	"github.com/ignite/seatwatch/internal/pkg/logger"
	"github.com/ignite/seatwatch/internal/repository/postgres"
	"github.com/ignite/seatwatch/internal/shorten"
	"github.com/ignite/seatwatch/internal/storage"
	"github.com/ignite/seatwatch/internal/watch"
	"github.com/ignite/seatwatch/internal/websoc"
	"github.com/ignite/seatwatch/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	mode := flag.String("mode", "", "production or development (overrides the config file)")
	flag.Parse()

	log.Println("Starting seatwatch watcher...")

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *mode != "" {
		cfg.Mode = config.Mode(*mode)
		if cfg.Mode == config.ModeDevelopment {
			cfg.LogLevel = "debug"
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	logger.SetRedactPII(cfg.Mode == config.ModeProduction)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres is needed for the postgres store and for advisory locks
	// when Redis is not configured.
	var db *sql.DB
	if cfg.Storage.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.Storage.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err := db.PingContext(pingCtx)
		pingCancel()
		if err != nil {
			log.Fatalf("Failed to ping database: %v", err)
		}
		log.Println("Connected to database")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("Warning: Redis unavailable, continuing without catalog cache: %v", err)
			client.Close()
		} else {
			log.Println("Connected to Redis")
			redisClient = client
			defer redisClient.Close()
		}
	}

	store, err := openStore(ctx, cfg, db)
	if err != nil {
		log.Fatalf("Failed to open subscription store: %v", err)
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewPrometheus(registry, "seatwatch")

	feed := websoc.NewClient(cfg.WebSoc, &http.Client{})

	var cache catalog.Cache
	if redisClient != nil {
		cache = storage.NewCatalogCache(redisClient, cfg.Redis.CatalogTTL())
	}
	enumerator := websoc.NewEnumerator(feed, cfg.WebSoc.SafeWindow, cfg.WebSoc.CodeSpaceMax)
	snapshot, err := catalog.LoadSnapshot(ctx, cfg.Term, cfg.WebSoc.SafeWindow, enumerator, cache)
	if err != nil {
		log.Fatalf("Failed to enumerate catalog for %s: %v", cfg.Term, err)
	}
	collector.SetCatalogSize(len(snapshot.Codes))
	log.Printf("Catalog for %s: %d codes in %d chunks (cached=%v)",
		snapshot.Term, len(snapshot.Codes), len(snapshot.Chunks), snapshot.Cached)

	composer, err := newComposer(cfg, feed)
	if err != nil {
		log.Fatalf("Failed to build message composer: %v", err)
	}
	router, err := newRouter(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to build notifier: %v", err)
	}

	fetcher := watch.NewFetcher(feed, cfg.Term,
		watch.WithConcurrency(cfg.WebSoc.MaxConcurrent),
		watch.WithChunkObserver(func(_ catalog.Chunk, _ int, err error, d time.Duration) {
			collector.ObserveChunk(err, d)
		}),
	)
	coordinator := watch.NewCoordinator(composer, router, watch.CoordinatorConfig{
		SendTimeout:   cfg.Notify.SendTimeout(),
		MaxConcurrent: cfg.Notify.MaxConcurrent,
		Channels:      router.Channels(),
	})
	coordinator.SetObserver(func(status domain.Status, r domain.Recipient, err error, d time.Duration) {
		collector.ObserveSend(string(status), string(r.Channel), err, d)
	})
	engine := watch.NewEngine(snapshot, store, fetcher, coordinator)

	poller := worker.NewPoller(engine, worker.PollerConfig{
		Schedule:     worker.ScheduleFromConfig(cfg.Polling),
		CycleTimeout: cfg.Polling.CycleTimeout(),
		Lock:         distlock.NewLock(redisClient, db, "cycle:"+cfg.Term, cfg.Redis.LockTTL()),
		Metrics:      collector,
	})
	poller.Start()

	var server *http.Server
	if cfg.Server.Enabled {
		staleAfter := 3 * (cfg.Polling.ErrorBackoff() + cfg.Polling.Jitter())
		hc := api.NewHealthChecker(db, redisClient, poller, staleAfter)
		server = api.NewServer(cfg.Server, api.SetupRoutes(hc, api.NewHandlers(poller), registry))
		go func() {
			log.Printf("HTTP server listening on %s", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("HTTP server error: %v", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received %s, shutting down...", sig)

	poller.Stop()
	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}
	log.Println("Watcher stopped")
}

func openStore(ctx context.Context, cfg *config.Config, db *sql.DB) (storage.SubscriptionStore, error) {
	if cfg.Storage.Type != "postgres" {
		return storage.New(ctx, cfg.Storage)
	}
	repo := postgres.NewSubscriptionRepo(db)
	if err := repo.Migrate(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func newComposer(cfg *config.Config, links notify.LinkBuilder) (*notify.Composer, error) {
	renderer, err := notify.NewRenderer()
	if err != nil {
		return nil, err
	}
	var shortener notify.Shortener = shorten.Noop{}
	if cfg.Notify.Shortener.Enabled {
		shortener = shorten.NewTinyURL(cfg.Notify.Shortener, nil)
	}
	return notify.NewComposer(renderer, links, shortener, cfg.Term, cfg.Notify.ResubscribeURL), nil
}

// newRouter registers real senders only in production with dispatch
// enabled; otherwise every channel only logs and nobody is pruned.
func newRouter(ctx context.Context, cfg *config.Config) (*notify.Router, error) {
	router := notify.NewRouter()
	live := cfg.Mode == config.ModeProduction && cfg.Notify.Dispatch
	if !live {
		log.Println("Dispatch disabled: messages will be logged, not sent; subscriptions are kept")
		return router.
			Register(domain.ChannelSMS, notify.LogSender{Channel: domain.ChannelSMS}).
			Register(domain.ChannelEmail, notify.LogSender{Channel: domain.ChannelEmail}), nil
	}

	if cfg.Notify.SMS.Enabled {
		sms, err := notify.NewSMSSender(ctx, cfg.Notify.SMS)
		if err != nil {
			return nil, err
		}
		router.Register(domain.ChannelSMS, sms)
	}
	if cfg.Notify.Email.Enabled {
		email, err := notify.NewEmailSender(ctx, cfg.Notify.Email)
		if err != nil {
			return nil, err
		}
		router.Register(domain.ChannelEmail, email)
	}
	if len(router.Channels()) == 0 {
		return nil, errors.New("dispatch enabled but no channel is enabled")
	}
	return router, nil
}
