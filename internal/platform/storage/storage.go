package storage

import (
	"os"
	"path/filepath"
	"sync"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	platformerrors "papla-server-go/internal/platform/errors"
)

var (
	db     *gorm.DB
	dbOnce sync.Once
	dbErr  error
)

// InitDatabase opens the sqlite database under dataDir and migrates the
// schema. Safe to call more than once; the first call wins.
func InitDatabase(dataDir string) (*gorm.DB, error) {
	dbOnce.Do(func() {
		db, dbErr = open(dataDir)
	})
	return db, dbErr
}

// GetDB returns the database opened by InitDatabase, or nil before it.
func GetDB() *gorm.DB {
	return db
}

func open(dataDir string) (*gorm.DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage,
			"storage.open", "create data directory", err)
	}

	dsn := filepath.Join(dataDir, "papla.db")
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage,
			"storage.open", "open sqlite database", err)
	}

	if err := Migrate(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Migrate applies the schema to conn. Exposed so tests and the sqlite
// session store can migrate in-memory databases.
func Migrate(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&SessionRecord{},
		&GenerationRecord{},
		&MixRecord{},
	)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage,
			"storage.Migrate", "auto migrate schema", err)
	}
	return nil
}
