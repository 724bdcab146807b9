package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/cache"
	"github.com/example/room-scheduler/internal/config"
	httptransport "github.com/example/room-scheduler/internal/http"
	"github.com/example/room-scheduler/internal/persistence/migration"
	"github.com/example/room-scheduler/internal/persistence/postgres"
	"github.com/example/room-scheduler/internal/persistence/sqlite"
	"github.com/example/room-scheduler/internal/persistence/sqlstore"
	"github.com/example/room-scheduler/internal/scheduler"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("scheduler", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to a YAML configuration file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log.Level, stdout)

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start scheduler", "error", err)
		return err
	}
	defer app.Close()

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           app.router,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduler API listening", "addr", server.Addr, "database", cfg.Database.Driver, "cache", cfg.Cache.Driver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		return err
	}
	logger.Info("scheduler API stopped")
	return nil
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// app owns the long lived resources behind the router.
type app struct {
	store   *sqlstore.Store
	closers []func() error
	router  *gin.Engine
	logger  *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	loc, err := cfg.Booking.LoadLocation()
	if err != nil {
		return nil, fmt.Errorf("load booking location: %w", err)
	}
	rules := scheduler.Rules{
		MinHour:     cfg.Booking.MinHour,
		MaxHour:     cfg.Booking.MaxHour,
		MinDuration: cfg.Booking.MinDuration,
		MaxDuration: cfg.Booking.MaxDuration,
		Now:         time.Now,
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg.Database, loc, logger)
	if err != nil {
		return nil, err
	}
	a := &app{store: store, logger: logger, closers: []func() error{store.Close}}

	scheduleCache, closeCache, err := newScheduleCache(ctx, cfg, time.Now)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closeCache != nil {
		a.closers = append(a.closers, closeCache)
	}

	hash := func(password string) (string, error) {
		return application.CreatePasswordHash(password, application.DefaultArgon2idParams)
	}
	auth := application.NewAuthService(store, application.VerifyPassword, newSessionToken, time.Now, cfg.Session.TTL, logger)
	directory := application.NewDirectoryService(store, hash, time.Now, logger)
	bookings := application.NewBookingService(store, rules, scheduleCache, uuid.NewString, logger)
	invitations := application.NewInvitationService(store, scheduleCache, time.Now, logger)
	weekly := application.NewWeeklyQueryService(store, scheduleCache, loc, logger)
	stats := application.NewStatsService(store, logger)

	if err := directory.SyncCatalog(ctx, catalogSpecs(cfg.Catalog)); err != nil {
		a.Close()
		return nil, fmt.Errorf("sync catalog: %w", err)
	}

	a.router = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:           httptransport.NewAuthHandler(auth, logger),
		Users:          httptransport.NewUserHandler(directory, weekly, loc, time.Now, logger),
		Rooms:          httptransport.NewRoomHandler(directory, weekly, loc, time.Now, logger),
		Bookings:       httptransport.NewBookingHandler(bookings, invitations, loc, logger),
		Stats:          httptransport.NewStatsHandler(stats, logger),
		Sessions:       auth,
		Health:         store.Ping,
		RequestTimeout: cfg.HTTP.WriteTimeout,
		Logger:         logger,
	})
	return a, nil
}

// Close releases resources in reverse acquisition order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to release resource", "error", err)
		}
	}
	a.closers = nil
}

// openStore connects to the configured database and applies the embedded
// migrations for its dialect.
func openStore(ctx context.Context, cfg config.DatabaseConfig, loc *time.Location, logger *slog.Logger) (*sqlstore.Store, error) {
	dialect, ok := sqlstore.DialectFor(cfg.Driver)
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	var (
		store *sqlstore.Store
		err   error
	)
	switch cfg.Driver {
	case "postgres":
		db, openErr := postgres.Open(ctx, postgres.Config{
			DSN:             cfg.DSN,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
		if openErr != nil {
			return nil, openErr
		}
		store = sqlstore.New(db, dialect, sqlstore.WithLocation(loc))
	default:
		sc := sqlite.DefaultConfig(cfg.DSN)
		sc.BusyTimeout = cfg.BusyTimeout
		sc.MaxOpenConns = cfg.MaxOpenConns
		sc.MaxIdleConns = cfg.MaxIdleConns
		sc.ConnMaxLifetime = cfg.ConnMaxLifetime
		db, openErr := sqlite.Open(ctx, sc)
		if openErr != nil {
			return nil, openErr
		}
		store = sqlstore.New(db, dialect, sqlstore.WithLocation(loc))
	}

	fsys, dir := dialect.Migrations()
	if err = migration.NewManager(store.DB(), fsys, dir, logger).Run(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return store, nil
}

// newScheduleCache builds the configured cache. The "none" driver yields a
// nil cache, which the services treat as disabled.
func newScheduleCache(ctx context.Context, cfg config.Config, now func() time.Time) (application.ScheduleCache, func() error, error) {
	switch cfg.Cache.Driver {
	case "none":
		return nil, nil, nil
	case "redis":
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return cache.NewRedis(client, "scheduler", cfg.Cache.TTL), client.Close, nil
	default:
		return cache.NewMemory(cfg.Cache.TTL, cfg.Cache.MaxEntries, now), nil, nil
	}
}

func catalogSpecs(sectors []config.SectorConfig) []application.SectorSpec {
	specs := make([]application.SectorSpec, 0, len(sectors))
	for _, sector := range sectors {
		spec := application.SectorSpec{Name: sector.Name}
		for _, room := range sector.Rooms {
			spec.Rooms = append(spec.Rooms, application.RoomSpec{
				Name:      room.Name,
				Capacity:  room.Capacity,
				Equipment: append([]string(nil), room.Equipment...),
			})
		}
		specs = append(specs, spec)
	}
	return specs
}

func newSessionToken() string {
	return randomHex(32)
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
