package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quran-quiz-bot/internal/app"
	"quran-quiz-bot/internal/config"
	"quran-quiz-bot/internal/event"
	"quran-quiz-bot/internal/infra/memory"
	"quran-quiz-bot/internal/infra/postgres"
	redisinfra "quran-quiz-bot/internal/infra/redis"
	"quran-quiz-bot/internal/infra/sqlite"
	"quran-quiz-bot/internal/render"
	"quran-quiz-bot/internal/telemetry"
	"quran-quiz-bot/internal/transport/discord"
	opshttp "quran-quiz-bot/internal/transport/http"
)

const shutdownTimeout = 5 * time.Second

// NewStartCmd builds the CLI subcommand to start the bot.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Connect to Discord and serve quizzes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends are the storage and cache implementations picked from config.
type backends struct {
	stats   app.StatsStore
	content app.ContentSource
	queue   app.QueueRegistry
	closers []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg)
	defer b.close()
	if err != nil {
		return err
	}
	if err := b.queue.Clear(ctx); err != nil {
		return fmt.Errorf("clear queue slots: %w", err)
	}

	bus := event.NewBus()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	telemetry.NewMetrics(reg).Subscribe(bus)
	feed := opshttp.NewFeed()
	feed.Subscribe(bus)

	controller := app.NewController(app.ControllerConfig{Stats: b.stats, Events: bus})
	service := app.NewQuizService(app.Config{
		Stats:           b.stats,
		Content:         b.content,
		Queue:           b.queue,
		Controller:      controller,
		Events:          bus,
		NoneProbability: cfg.Quiz.NoneProbability,
		QueuePenalty:    cfg.Quiz.QueuePenalty,
	})

	bot, err := discord.NewBot(discord.BotConfig{
		Token:    cfg.Discord.Token,
		AppID:    cfg.Discord.AppID,
		GuildID:  cfg.Discord.GuildID,
		Service:  service,
		Sessions: controller,
		Renderer: render.NewRenderer(cfg.Content.FontDir),
	})
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           opshttp.NewRouter(opshttp.RouterConfig{Feed: feed, Sessions: controller, Gatherer: reg}),
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("ops server listening", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return app.RunQueueSweeper(gctx, b.queue,
			config.TTLDuration(cfg.Quiz.SweepInterval, time.Minute),
			config.TTLDuration(cfg.Quiz.QueueMaxAge, 2*time.Minute),
		)
	})

	err = g.Wait()
	slog.Info("shutting down", "active_sessions", controller.Active())
	controller.Shutdown()
	bus.Stop()
	return err
}

func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = rdb.Close() })
		if err := telemetry.MonitorRedis(rdb); err != nil {
			return b, err
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return b, fmt.Errorf("ping redis: %w", err)
		}
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg); err != nil {
			return b, err
		}
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return b, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
	}

	switch {
	case pool != nil:
		b.stats = postgres.NewStatsStore(pool)
	case cfg.SQLite.Path != "":
		store, err := sqlite.NewStatsStore(cfg.SQLite.Path)
		if err != nil {
			return b, err
		}
		b.closers = append(b.closers, func() { _ = store.Close() })
		b.stats = store
	default:
		slog.Warn("no database configured, stats are kept in memory")
		b.stats = memory.NewStatsStore()
	}

	var loader memory.ContentLoader
	switch {
	case pool != nil:
		loader = postgres.NewContentStore(pool)
	case cfg.Content.Dataset != "":
		ds, err := memory.LoadDataset(cfg.Content.Dataset)
		if err != nil {
			return b, err
		}
		loader = memory.NewContentStore(ds)
	default:
		return b, errors.New("no content source: configure postgres.url or content.dataset")
	}
	cacheTTL := config.TTLDuration(cfg.Content.CacheTTL, time.Hour)
	if rdb != nil {
		b.content = redisinfra.NewContentCache(rdb, loader, config.TTLDuration(cfg.Redis.TTL, cacheTTL))
	} else {
		b.content = memory.NewContentCache(loader, cacheTTL)
	}

	switch {
	case rdb != nil:
		b.queue = redisinfra.NewQueueRegistry(rdb)
	case pool != nil:
		b.queue = postgres.NewQueueRegistry(pool)
	default:
		b.queue = memory.NewQueueRegistry()
	}
	return b, nil
}
