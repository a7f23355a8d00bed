// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/ssiitsupport/SSI360V2/pkg/config"
	"github.com/ssiitsupport/SSI360V2/pkg/database"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDB opens a private, migrated in-memory sqlite database that is closed when the test ends
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_foreign_keys=on", name, uuid.NewString())

	db, err := database.Open(sqlite.Open(dsn), &config.DBConfig{LogLevel: "silent", MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}
