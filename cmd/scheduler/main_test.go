package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/room-scheduler/internal/cache"
	"github.com/example/room-scheduler/internal/config"
)

const catalogYAML = `
database:
  driver: sqlite
catalog:
  - name: Musica
    rooms:
      - name: SalaA
        capacity: 12
        equipment: [piano, leggii]
      - name: SalaB
        capacity: 4
  - name: Teatro
    rooms:
      - name: Palco
        capacity: 40
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadTestConfig(t *testing.T) config.Config {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.yaml")
	if err := os.WriteFile(path, []byte(catalogYAML), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("SCHEDULER_CONFIG", "")
	t.Setenv("SCHEDULER_DATABASE_DSN", filepath.Join(dir, "data", "scheduler.db"))
	t.Setenv("SCHEDULER_CACHE_DRIVER", "memory")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level     string
		debugOn   bool
		infoOn    bool
		warningOn bool
	}{
		{level: "debug", debugOn: true, infoOn: true, warningOn: true},
		{level: "info", infoOn: true, warningOn: true},
		{level: "warn", warningOn: true},
		{level: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := newLogger(tt.level, io.Discard)
			ctx := context.Background()
			if got := logger.Enabled(ctx, slog.LevelDebug); got != tt.debugOn {
				t.Errorf("debug enabled = %v, want %v", got, tt.debugOn)
			}
			if got := logger.Enabled(ctx, slog.LevelInfo); got != tt.infoOn {
				t.Errorf("info enabled = %v, want %v", got, tt.infoOn)
			}
			if got := logger.Enabled(ctx, slog.LevelWarn); got != tt.warningOn {
				t.Errorf("warn enabled = %v, want %v", got, tt.warningOn)
			}
		})
	}
}

func TestOpenStoreIsIdempotent(t *testing.T) {
	cfg := loadTestConfig(t)
	loc, err := cfg.Booking.LoadLocation()
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}
	ctx := context.Background()

	first, err := openStore(ctx, cfg.Database, loc, discardLogger())
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	second, err := openStore(ctx, cfg.Database, loc, logger)
	if err != nil {
		t.Fatalf("second open failed: %v", err)
	}
	defer second.Close()

	if !strings.Contains(logs.String(), "pending=0") {
		t.Errorf("expected no pending migrations on reopen, logs: %s", logs.String())
	}
	if strings.Contains(logs.String(), "applying migration") {
		t.Errorf("migrations were applied twice, logs: %s", logs.String())
	}
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	_, err := openStore(context.Background(), config.DatabaseConfig{Driver: "oracle", DSN: "x"}, time.UTC, discardLogger())
	if err == nil || !strings.Contains(err.Error(), "oracle") {
		t.Fatalf("expected unsupported driver error, got %v", err)
	}
}

func TestNewScheduleCacheDrivers(t *testing.T) {
	cfg := loadTestConfig(t)
	ctx := context.Background()

	cfg.Cache.Driver = "none"
	got, closer, err := newScheduleCache(ctx, cfg, time.Now)
	if err != nil || got != nil || closer != nil {
		t.Fatalf("none driver: got %v, %v, %v", got, closer != nil, err)
	}

	cfg.Cache.Driver = "memory"
	got, _, err = newScheduleCache(ctx, cfg, time.Now)
	if err != nil {
		t.Fatalf("memory driver: %v", err)
	}
	if _, ok := got.(*cache.Memory); !ok {
		t.Fatalf("memory driver returned %T", got)
	}

	cfg.Cache.Driver = "redis"
	cfg.Redis.Addr = "127.0.0.1:1"
	timeoutCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, _, err := newScheduleCache(timeoutCtx, cfg, time.Now); err == nil {
		t.Fatal("expected redis connection failure")
	}
}

func TestNewAppSyncsCatalogAndServes(t *testing.T) {
	cfg := loadTestConfig(t)
	ctx := context.Background()

	a, err := newApp(ctx, cfg, discardLogger())
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	defer a.Close()

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, body %s", rec.Code, rec.Body.String())
	}

	register := `{"email":"anna@example.com","password":"segreta-123","firstName":"Anna","lastName":"Verdi","birthDate":"1999-09-09","role":"student","sector":"Musica"}`
	rec = httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader(register)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{"email":"anna@example.com","password":"segreta-123"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil || len(login.Token) != 64 {
		t.Fatalf("unexpected login payload %s (%v)", rec.Body.String(), err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms?sector=Musica", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec = httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("rooms status = %d, body %s", rec.Code, rec.Body.String())
	}
	var rooms []struct {
		Name      string   `json:"name"`
		Capacity  int      `json:"capacity"`
		Equipment []string `json:"equipment"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &rooms); err != nil {
		t.Fatalf("failed to decode rooms: %v", err)
	}
	if len(rooms) != 2 || rooms[0].Name != "SalaA" || rooms[0].Capacity != 12 || len(rooms[0].Equipment) != 2 {
		t.Fatalf("unexpected rooms: %+v", rooms)
	}
}

func TestRunFailsOnMissingConfigFile(t *testing.T) {
	t.Setenv("SCHEDULER_CONFIG", "")
	err := run(context.Background(), []string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "設定ファイルを読み込めません") {
		t.Fatalf("expected config load error, got %v", err)
	}
}

func TestCatalogSpecsCopiesEquipment(t *testing.T) {
	sectors := []config.SectorConfig{{
		Name:  "Musica",
		Rooms: []config.RoomConfig{{Name: "SalaA", Capacity: 3, Equipment: []string{"piano"}}},
	}}

	specs := catalogSpecs(sectors)
	sectors[0].Rooms[0].Equipment[0] = "changed"

	if len(specs) != 1 || len(specs[0].Rooms) != 1 {
		t.Fatalf("unexpected specs: %+v", specs)
	}
	if got := specs[0].Rooms[0].Equipment[0]; got != "piano" {
		t.Fatalf("equipment aliased the config slice: %q", got)
	}
}
