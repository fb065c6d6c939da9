package database

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter atomic.Int64

// NewTestDB opens an isolated in-memory SQLite database with the full schema.
// The shared cache mode lets concurrent goroutines in a test see the same data.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("file:coursefox_test_%d?mode=memory&cache=shared&_busy_timeout=5000", testDBCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}
