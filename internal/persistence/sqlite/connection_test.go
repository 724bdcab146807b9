package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDSNCarriesPragmas(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig("/tmp/scheduler.db")
	cfg.BusyTimeout = 1500 * time.Millisecond
	dsn := cfg.DSN()

	assert.True(t, strings.HasPrefix(dsn, "file:/tmp/scheduler.db?"))
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.Contains(t, dsn, "busy_timeout%281500%29")
	assert.Contains(t, dsn, "foreign_keys%281%29")
	assert.Contains(t, dsn, "journal_mode%28WAL%29")
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty path", mutate: func(c *Config) { c.Path = " " }, wantErr: true},
		{name: "negative busy timeout", mutate: func(c *Config) { c.BusyTimeout = -time.Second }, wantErr: true},
		{name: "bad journal mode", mutate: func(c *Config) { c.JournalMode = "FAST" }, wantErr: true},
		{name: "bad synchronous", mutate: func(c *Config) { c.Synchronous = "SOMETIMES" }, wantErr: true},
		{name: "negative pool", mutate: func(c *Config) { c.MaxOpenConns = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig("scheduler.db")
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestOpenAppliesPragmasPerConnection(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig(filepath.Join(t.TempDir(), "nested", "scheduler.db"))
	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		conn, err := db.Connx(ctx)
		require.NoError(t, err)

		var foreignKeys int
		require.NoError(t, conn.GetContext(ctx, &foreignKeys, "PRAGMA foreign_keys"))
		assert.Equal(t, 1, foreignKeys)

		var busy int
		require.NoError(t, conn.GetContext(ctx, &busy, "PRAGMA busy_timeout"))
		assert.Equal(t, 5000, busy)
		defer conn.Close()
	}
}
