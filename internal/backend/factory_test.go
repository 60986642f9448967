package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/config"
	"fintrack/internal/core"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"api", Config{Type: APIBackend, APIBaseURL: "http://localhost:3000", APIToken: "t"}, false},
		{"api without token", Config{Type: APIBackend, APIBaseURL: "http://localhost:3000"}, true},
		{"api without url", Config{Type: APIBackend, APIToken: "t"}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataSource: "sqlite"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{DataSource: "api", APIBaseURL: "http://x", APIToken: "tok", AMQPQueue: "q"})
	require.NoError(t, err)
	assert.Equal(t, APIBackend, cfg.Type)
	assert.Equal(t, "tok", cfg.APIToken)
	assert.Equal(t, "q", cfg.AMQPQueue)

	assert.Equal(t, []string{"api", "memory"}, GetBackendTypeStrings())
}

func TestCreateMemoryBackendWithStore(t *testing.T) {
	dir := t.TempDir()
	seed := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(seed, []byte(`{
		"expenses": [{"amount": 12.5, "date": "2024-01-02", "category": "Food", "paymentMethod": "Cash"}],
		"income": [{"amount": 100, "date": "2024-01-01", "source": "Salary"}]
	}`), 0o600))

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:         MemoryBackend,
		SeedFile:     seed,
		SQLiteDBPath: filepath.Join(dir, "snap.db"),
	})
	require.NoError(t, err)
	defer func() { assert.NoError(t, res.Cleanup()) }()

	assert.Nil(t, res.AMQP)

	snap, err := res.Service.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Expenses.Transactions, 1)
	assert.Equal(t, core.Amount(12.5), snap.Expenses.Transactions[0].Amount)
	require.Len(t, snap.Income.Transactions, 1)
}

func TestCreateBackendRejectsMalformedSeed(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(seed, []byte(`{`), 0o600))

	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, SeedFile: seed})
	assert.Error(t, err)
}
