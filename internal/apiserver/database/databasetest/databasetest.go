// Package databasetest opens throwaway sqlite stores for package tests.
package databasetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/common/config"
	"github.com/amoylab/cleanbill/internal/identity"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// New returns a migrated store backed by a sqlite file in t.TempDir()
func New(t *testing.T) *database.Store {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Type:     "sqlite",
		DBName:   filepath.Join(t.TempDir(), "cleanbill.db"),
		LogLevel: "silent",
	}
	store, err := database.Open(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

// Tenant creates an active tenant and returns an admin caller scoped to it
func Tenant(t *testing.T, store *database.Store, slug string) identity.Caller {
	t.Helper()
	tenant := &database.Tenant{Name: slug, Slug: slug, IsActive: true}
	require.NoError(t, store.CreateTenant(context.Background(), tenant))
	return identity.New(tenant.ID, tenant.Slug, "user-"+slug, identity.RoleAdmin)
}
