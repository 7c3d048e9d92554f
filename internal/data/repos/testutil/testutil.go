package testutil

import (
	"errors"
	"os"
	"sync"
	"testing"

	domaincluster "github.com/ds4psb/komission-core/internal/domain/cluster"
	domaincoaching "github.com/ds4psb/komission-core/internal/domain/coaching"
	domaincontent "github.com/ds4psb/komission-core/internal/domain/content"
	domaincuration "github.com/ds4psb/komission-core/internal/domain/curation"
	domainevidence "github.com/ds4psb/komission-core/internal/domain/evidence"
	domainruns "github.com/ds4psb/komission-core/internal/domain/runs"
	"github.com/ds4psb/komission-core/internal/platform/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			dbErr = errMissingDSN
			return
		}

		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if err != nil {
			dbErr = err
			return
		}

		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			dbErr = err
			return
		}

		if err := autoMigrateAll(db); err != nil {
			dbErr = err
			return
		}
	})

	if errors.Is(dbErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run repo integration tests")
	}
	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return db
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

func autoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&domainruns.Run{},
		&domainruns.Artifact{},

		&domaincontent.OutlierItem{},
		&domaincontent.PatternNode{},

		&domaincluster.PatternCluster{},
		&domaincluster.PatternRecurrenceLink{},
		&domaincluster.NotebookLibraryEntry{},

		&domaincoaching.Session{},
		&domaincoaching.Intervention{},
		&domaincoaching.Outcome{},
		&domaincoaching.UploadOutcome{},

		&domaincuration.Rule{},

		&domainevidence.Event{},
		&domainevidence.Snapshot{},
		&domainevidence.DecisionObject{},
		&domainevidence.PatternLibrary{},
		&domainevidence.DirectorPack{},
		&domainevidence.PatternPrior{},
	)
}
