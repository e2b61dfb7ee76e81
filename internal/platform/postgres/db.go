package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	commonErrors "github.com/hirosato/ledger-engine/backend/internal/domain/errors"
)

// SQLSTATE for unique_violation
const uniqueViolation = "23505"

// Open connects to PostgreSQL through the pgx driver and, when autoMigrate
// is set, creates or updates the ledger tables.
func Open(dsn string, autoMigrate bool, logger *zap.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, commonErrors.NewValidationError("database DSN is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, commonErrors.NewPersistenceError("failed to connect postgres database", err)
	}

	if autoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		logger.Info("ledger schema migrated")
	}
	return db, nil
}

// Migrate creates the ledger tables and their unique indexes
func Migrate(db *gorm.DB) error {
	models := []interface{}{
		&AccountModel{},
		&TransactionModel{},
		&TransactionLineModel{},
		&SequenceModel{},
		&DocumentModel{},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			return commonErrors.NewPersistenceError("failed to migrate ledger schema", err)
		}
	}
	return nil
}

// uniqueConstraint returns the violated unique index name, or "" when err
// is not a unique violation
func uniqueConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName
	}
	return ""
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
