package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/quickly-match/cliparse"
	"github.com/danielhkuo/quickly-match/db"
	"github.com/danielhkuo/quickly-match/events"
	"github.com/danielhkuo/quickly-match/ledger"
	"github.com/danielhkuo/quickly-match/matching"
	"github.com/danielhkuo/quickly-match/memstore"
	"github.com/danielhkuo/quickly-match/metrics"
	"github.com/danielhkuo/quickly-match/middleware"
	"github.com/danielhkuo/quickly-match/roster"
	"github.com/danielhkuo/quickly-match/rounds"
	"github.com/danielhkuo/quickly-match/router"
	"github.com/danielhkuo/quickly-match/sessions"
	"github.com/danielhkuo/quickly-match/store"
)

// storage is the opened store plus what main needs to manage it.
type storage struct {
	store  store.Store
	health func(context.Context) error
	close  func() error
}

func setupStore(ctx context.Context, cfg cliparse.Config) (storage, error) {
	if cfg.DatabaseType == "memory" {
		slog.Warn("using in-memory store, sessions are lost on restart")
		return storage{store: memstore.New(), close: func() error { return nil }}, nil
	}

	dialect, err := db.DialectFor(cfg.DatabaseType)
	if err != nil {
		return storage{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	dbStore, err := db.Open(ctx, dialect, cfg.DatabaseURL)
	if err != nil {
		return storage{}, err
	}
	return storage{
		store:  store.NewRetrying(dbStore, store.DefaultRetryPolicy),
		health: dbStore.HealthCheck,
		close:  dbStore.Close,
	}, nil
}

func setupRedis(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// Publishing trips its breaker and the roster falls back to the
		// in-memory counts until Redis comes back.
		slog.Warn("redis not reachable at startup", "error", err)
	}
	return rdb, nil
}

func main() {
	cliparse.LoadEnv()

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(cliparse.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		slog.Error("Server closed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server closed")
}

// run serves until ctx is done or the listener fails. Everything it opens
// is closed before it returns.
func run(ctx context.Context, cfg cliparse.Config) error {
	clock := clockwork.NewRealClock()

	st, err := setupStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("database setup failed (%s): %w", cfg.DatabaseType, err)
	}
	defer st.close()

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	members := roster.NewStatic()
	var memberSource roster.Source = members
	publisher := events.Fanout{events.LogPublisher{}}

	if cfg.RedisURL != "" {
		rdb, err := setupRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid redis URL: %w", err)
		}
		defer rdb.Close()

		publisher = append(publisher, events.NewRedisPublisher(rdb, events.DefaultChannel))
		memberSource = roster.Chain{roster.NewRedis(rdb), members}
		slog.Info("Redis enabled", "channel", events.DefaultChannel)
	}

	mgr := sessions.NewManager(st.store, publisher, clock)
	votes := ledger.New(st.store, clock, m)
	engine := matching.NewEngine(st.store, clock, m)
	controller := rounds.NewController(mgr, votes, engine, memberSource, clock, m)
	ticker := rounds.NewTicker(controller, clock, cfg.TickInterval)

	// Create router
	mux := router.NewRouter(router.Deps{
		Sessions:   mgr,
		Ledger:     votes,
		Engine:     engine,
		Controller: controller,
		Roster:     members,
		Registry:   reg,
		Clock:      clock,
		Health:     st.health,
	}, cfg)

	// Create server
	server := &http.Server{
		Handler:           middleware.CORS(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Wait for Ctrl-C or a failed listener
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
