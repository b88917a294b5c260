package testutil

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/uplas/uplas-backend/internal/domain"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
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

		if err := db.AutoMigrate(
			&types.ProjectBrief{},
			&types.ProjectSubmission{},
			&types.ProjectAssessment{},
			&types.VideoJob{},
		); err != nil {
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

func SeedBrief(tb testing.TB, ctx context.Context, tx *gorm.DB, title string) *types.ProjectBrief {
	tb.Helper()
	brief := &types.ProjectBrief{
		ID:                   uuid.New(),
		Title:                title,
		DifficultyLevel:      types.DifficultyIntermediate,
		ExpectedDeliverables: datatypes.JSON([]byte(`["Reconciliation report","Source repository"]`)),
		AssessmentRubric:     datatypes.JSON([]byte(`[{"criterion":"Design","weight":50},{"criterion":"Implementation","weight":50}]`)),
		LanguageCode:         "en-US",
	}
	if err := tx.WithContext(ctx).Create(brief).Error; err != nil {
		tb.Fatalf("seed brief: %v", err)
	}
	return brief
}

func SeedSubmission(tb testing.TB, ctx context.Context, tx *gorm.DB, briefID, submitterID uuid.UUID, version int) *types.ProjectSubmission {
	tb.Helper()
	sub := &types.ProjectSubmission{
		ID:                uuid.New(),
		BriefID:           briefID,
		SubmitterID:       submitterID,
		Artifacts:         datatypes.JSON([]byte(`[]`)),
		SubmissionVersion: version,
		Status:            types.SubmissionStatusSubmitted,
	}
	if err := tx.WithContext(ctx).Create(sub).Error; err != nil {
		tb.Fatalf("seed submission: %v", err)
	}
	return sub
}
