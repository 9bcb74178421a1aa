package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmanzanog/portfolio-tracker/internal/domain"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/persistence/sqldb/migrations"
	"github.com/pressly/goose/v3"
)

// ER_DUP_ENTRY
const mysqlDuplicateEntry = 1062

type MySQLDialect struct{}

func (d *MySQLDialect) Name() string { return DriverMySQL }

func (d *MySQLDialect) DriverName() string { return "mysql" }

func (d *MySQLDialect) Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.MySQLFS)

	if err := goose.SetDialect("mysql"); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "mysql"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

func (d *MySQLDialect) Rebind(query string) string {
	return rebindPositional(query, "?")
}

func (d *MySQLDialect) Limit(param int) string {
	return fmt.Sprintf("LIMIT $%d", param)
}

func (d *MySQLDialect) InsertStock(ctx context.Context, tx *sql.Tx, s *domain.Stock) (int64, error) {
	query := `INSERT INTO stocks (symbol, quantity, created_at) VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, query, s.Symbol, s.Quantity, s.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (d *MySQLDialect) IsUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
