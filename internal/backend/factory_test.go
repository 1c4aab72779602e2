package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensedesk/internal/config"
	"expensedesk/internal/core"
	"expensedesk/internal/remote/httpapi"
)

func manager() core.User {
	return core.User{ID: 1, Username: "boss", FullName: "boss", Role: core.RoleManager}
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:    "sqlite",
		SQLiteDBPath:   "/tmp/x.db",
		LocalUserName:  " ada ",
		LocalUserRole:  "employee",
		RequestTimeout: 5 * time.Second,
		AMQPExchange:   "expensedesk",
		AMQPQueue:      "ledger_export",
	}

	bc, err := FromAppConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, bc.Type)
	assert.Equal(t, "ada", bc.LocalUser.Username)
	assert.Equal(t, core.RoleEmployee, bc.LocalUser.Role)
	assert.Equal(t, "ledger_export", bc.AMQPQueue)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory ok", Config{Type: MemoryBackend, LocalUser: manager()}, false},
		{"memory bad role", Config{Type: MemoryBackend, LocalUser: core.User{Role: "admin"}}, true},
		{"sqlite needs path", Config{Type: SQLiteBackend, LocalUser: manager()}, true},
		{"http needs token", Config{Type: HTTPBackend, APIBaseURL: "http://x"}, true},
		{"http ok", Config{Type: HTTPBackend, APIBaseURL: "http://x", APIToken: "t"}, false},
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

func TestCreateMemoryBackend(t *testing.T) {
	f := NewFactory(nil)
	res, err := f.CreateBackend(context.Background(), Config{
		Type:          MemoryBackend,
		DataDirectory: t.TempDir(),
		LocalUser:     manager(),
	})
	require.NoError(t, err)
	defer res.Close()

	assert.Nil(t, res.Publisher)
	assert.True(t, res.Tokens.Valid())

	u, err := res.Remote.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "boss", u.Username)

	cats, err := res.Remote.ListCategories(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, cats)
}

func TestCreateSQLiteBackend(t *testing.T) {
	f := NewFactory(nil)
	res, err := f.CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "desk.db"),
		LocalUser:    manager(),
	})
	require.NoError(t, err)

	cats, err := res.Remote.ListCategories(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, cats)

	assert.NoError(t, res.Close())
}

func TestCreateHTTPBackend(t *testing.T) {
	f := NewFactory(nil)
	res, err := f.CreateBackend(context.Background(), Config{
		Type:           HTTPBackend,
		APIBaseURL:     "http://localhost:8000/api/v1",
		APIToken:       "token",
		RequestTimeout: time.Second,
	})
	require.NoError(t, err)

	_, ok := res.Remote.(*httpapi.Client)
	assert.True(t, ok)
	assert.NoError(t, res.Close())
}

func TestChainCleanup(t *testing.T) {
	var calls []string
	a := func() error { calls = append(calls, "a"); return errors.New("a failed") }
	b := func() error { calls = append(calls, "b"); return nil }

	err := chainCleanup(a, nil, b)()
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.EqualError(t, err, "a failed")
}

func TestGetBackendTypeStrings(t *testing.T) {
	assert.Equal(t, []string{"http", "sqlite", "memory"}, GetBackendTypeStrings())
}
