package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmanzanog/portfolio-tracker/internal/domain"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/persistence/sqldb/migrations"
	"github.com/pressly/goose/v3"
)

// pgUniqueViolation is SQLSTATE unique_violation.
const pgUniqueViolation = "23505"

type PostgresDialect struct{}

func (d *PostgresDialect) Name() string { return DriverPostgres }

func (d *PostgresDialect) DriverName() string { return "pgx" }

func (d *PostgresDialect) Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.PostgresFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "postgres"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

func (d *PostgresDialect) Rebind(query string) string { return query }

func (d *PostgresDialect) Limit(param int) string {
	return fmt.Sprintf("LIMIT $%d", param)
}

func (d *PostgresDialect) InsertStock(ctx context.Context, tx *sql.Tx, s *domain.Stock) (int64, error) {
	query := `
		INSERT INTO stocks (symbol, quantity, created_at)
		VALUES ($1, $2, $3)
		RETURNING stock_id
	`
	var id int64
	err := tx.QueryRowContext(ctx, query, s.Symbol, s.Quantity, s.CreatedAt).Scan(&id)
	return id, err
}

func (d *PostgresDialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
