package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_GetDSN_Postgres(t *testing.T) {
	c := &DatabaseConfig{Type: "postgres", Host: "h", Port: 5432, User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	got := c.GetDSN()
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", got)
}

func TestDatabaseConfig_GetDSN_MySQL(t *testing.T) {
	c := &DatabaseConfig{Type: "mysql", Host: "h", Port: 3306, User: "u", Password: "p", DBName: "d"}
	got := c.GetDSN()
	assert.Equal(t, "u:p@tcp(h:3306)/d?charset=utf8mb4&parseTime=True&loc=UTC", got)
}

func TestDatabaseConfig_GetDSN_SQLite(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "data", "app.sqlite")
	c := &DatabaseConfig{Type: "sqlite", DBName: dbPath}
	got := c.GetDSN()
	assert.Equal(t, dbPath, got)
	// Directory for sqlite DB should be created
	_, err := os.Stat(filepath.Dir(dbPath))
	assert.NoError(t, err)
}

func TestDatabaseConfig_GetDSN_Unknown(t *testing.T) {
	c := &DatabaseConfig{Type: "unknown"}
	assert.Equal(t, "", c.GetDSN())
}

func TestBillingConfig_Loc(t *testing.T) {
	assert.Equal(t, time.UTC, (&BillingConfig{}).Loc())
	assert.Equal(t, time.UTC, (&BillingConfig{Location: "Not/AZone"}).Loc())
	assert.Equal(t, "Europe/Berlin", (&BillingConfig{Location: "Europe/Berlin"}).Loc().String())
}

func TestAPIServerConfig_Defaults(t *testing.T) {
	var c APIServerConfig
	c.setDefaults()
	assert.Equal(t, 5234, c.Server.Port)
	assert.Equal(t, 5, c.Billing.NumberRetries)
	assert.False(t, c.Billing.ClampNegativeTotals)
	assert.Equal(t, "UTC", c.Billing.Location)
	assert.Equal(t, "5 0 * * *", c.Scheduler.OverdueSpec)
	assert.Equal(t, 5*time.Minute, c.Scheduler.LockTTL)
	assert.Equal(t, "/metrics", c.Metrics.Path)
	assert.Equal(t, 24*time.Hour, c.JWT.Duration)
}
