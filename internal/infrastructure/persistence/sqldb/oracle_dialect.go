package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmanzanog/portfolio-tracker/internal/domain"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/persistence/sqldb/migrations"
)

const oracleInitScript = "oracle/20240101000000_create_stocks.sql"

type OracleDialect struct{}

func (d *OracleDialect) Name() string { return DriverOracle }

func (d *OracleDialect) DriverName() string { return "oracle" }

func (d *OracleDialect) Migrate(ctx context.Context, db *sql.DB) error {
	// goose has no Oracle dialect, so the init script is split on '/' and
	// executed statement by statement.
	content, err := migrations.OracleFS.ReadFile(oracleInitScript)
	if err != nil {
		return fmt.Errorf("reading migration file: %w", err)
	}

	for _, stmt := range strings.Split(string(content), "/") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		if _, err := db.ExecContext(ctx, stmt); err != nil {
			// ORA-00955: name is already used by an existing object
			if !strings.Contains(err.Error(), "ORA-00955") {
				return fmt.Errorf("migrating: %s: %w", stmt, err)
			}
		}
	}
	return nil
}

func (d *OracleDialect) Rebind(query string) string {
	return rebindPositional(query, ":$1")
}

func (d *OracleDialect) Limit(param int) string {
	return fmt.Sprintf("FETCH FIRST $%d ROWS ONLY", param)
}

func (d *OracleDialect) InsertStock(ctx context.Context, tx *sql.Tx, s *domain.Stock) (int64, error) {
	query := `INSERT INTO stocks (symbol, quantity, created_at)
             VALUES (:1, :2, :3)
             RETURNING stock_id INTO :4`

	var id int64
	_, err := tx.ExecContext(ctx, query,
		s.Symbol,           // 1
		s.Quantity,         // 2
		s.CreatedAt,        // 3
		sql.Out{Dest: &id}, // 4
	)
	return id, err
}

// IsUniqueViolation matches ORA-00001: unique constraint violated.
func (d *OracleDialect) IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "ORA-00001")
}
