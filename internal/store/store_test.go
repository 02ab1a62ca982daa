package store_test

import (
	"strings"
	"testing"

	"securewipe/internal/domain"
	"securewipe/internal/store"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(&domain.User{}, &domain.Device{}, &domain.Certificate{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	return store.New(db)
}
