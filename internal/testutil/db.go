// Package testutil builds throwaway databases for package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database and runs migrate on it.
// The pool is pinned to one connection so the in-memory database lives as
// long as the test and concurrent callers serialize on it.
func NewDB(t *testing.T, migrate func(*gorm.DB) error) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if migrate != nil {
		require.NoError(t, migrate(db))
	}
	return db
}
