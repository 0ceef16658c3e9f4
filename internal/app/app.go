package app

import (
	"context"
	"fmt"
	"net/http"

	"stocksearch/config"
	"stocksearch/internal/connectivity"
	"stocksearch/internal/memorystore"
	"stocksearch/internal/refresher"
	"stocksearch/internal/search"
	"stocksearch/internal/server"
	"stocksearch/internal/stock"
	"stocksearch/pkg/stockapi"
	"stocksearch/pkg/storage/postgres"
	"stocksearch/pkg/storage/redis"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// App holds the wired search stack.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	Repository *stock.Repository
	Search     *search.Service
	Monitor    *connectivity.Monitor
	Refresher  *refresher.Scheduler
	Server     *server.Server

	closeCache func() error
}

// New builds the fetcher, cache, repository and presentation surface from cfg.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	cache, closeCache, err := OpenCache(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Create REST fetcher and client for the stock list
	fetcher := stockapi.NewFetcher(
		&http.Client{Timeout: cfg.Stocks.Timeout},
		stockapi.WithMaxRetries(cfg.Stocks.MaxRetries),
		stockapi.WithInitialDelay(cfg.Stocks.InitialDelay),
		stockapi.WithBackoffFactor(cfg.Stocks.BackoffFactor),
		stockapi.WithLogger(logger.Named("fetcher")),
	)
	remote := stockapi.NewClient(cfg.Stocks.Endpoint, fetcher)

	repo := stock.NewRepository(remote, cache, logger.Named("repository"))
	svc := search.NewService(repo, logger.Named("search"))

	probeAddr := cfg.Connectivity.ProbeAddr
	if probeAddr == "" {
		probeAddr, err = connectivity.ProbeAddr(remote.Endpoint())
		if err != nil {
			closeCache()
			return nil, fmt.Errorf("connectivity probe: %w", err)
		}
	}
	monitor := connectivity.NewMonitor(
		connectivity.TCPProbe(probeAddr),
		cfg.Connectivity.Interval,
		cfg.Connectivity.Timeout,
		logger.Named("connectivity"),
	)

	return &App{
		cfg:        cfg,
		logger:     logger,
		Repository: repo,
		Search:     svc,
		Monitor:    monitor,
		Refresher:  refresher.NewScheduler(repo, cfg.Cache.RefreshInterval, cfg.Stocks.Timeout, logger.Named("refresher")),
		Server:     server.New(svc, monitor, cfg.Search.Debounce, logger.Named("server")),
		closeCache: closeCache,
	}, nil
}

// OpenCache opens the backend named by cache.driver. The returned func releases it.
func OpenCache(cfg *config.Config, logger *zap.Logger) (stock.Cache, func() error, error) {
	driver, err := ParseDriver(cfg.Cache.Driver)
	if err != nil {
		return nil, nil, err
	}
	meta := driver.Meta()
	logger.Info("opening stock cache",
		zap.String("driver", string(driver)),
		zap.String("backend", meta.Name),
		zap.Bool("persistent", meta.Persistent),
	)

	switch driver {
	case DriverPostgres:
		// Initialize PostgreSQL Client
		client, err := postgres.InitializeAndMigrate(cfg.Postgres, cfg.App.Environment)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		store := postgres.NewStockStore(client, cfg.Cache.TTL, cfg.Cache.BatchSize, logger.Named("postgres"))
		return store, client.Close, nil

	case DriverRedis:
		rdb := redis.NewClient(cfg.Redis)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Stocks.Timeout)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		store := redis.NewStockStore(rdb, cfg.Redis.Key, cfg.Cache.TTL, logger.Named("redis"))
		return store, rdb.Close, nil

	default:
		return memorystore.NewStockStore(cfg.Cache.TTL, logger.Named("memorystore")), func() error { return nil }, nil
	}
}

// Run serves HTTP and WebSocket clients, polls connectivity and runs the
// refresher until ctx is done or one of them fails.
func (a *App) Run(ctx context.Context) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(func(ctx context.Context) error {
		a.Monitor.Run(ctx)
		return nil
	})
	p.Go(func(ctx context.Context) error {
		a.Refresher.Run(ctx)
		return nil
	})
	p.Go(func(ctx context.Context) error {
		return a.Server.Run(ctx, a.cfg.Server.Addr)
	})

	return p.Wait()
}

func (a *App) Close() error {
	if a.closeCache == nil {
		return nil
	}
	if err := a.closeCache(); err != nil {
		return fmt.Errorf("close cache: %w", err)
	}
	return nil
}
