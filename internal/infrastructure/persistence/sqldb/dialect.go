package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/jmanzanog/portfolio-tracker/internal/domain"
)

// Dialect isolates the engine-specific parts of the stock queries. Queries
// in the repository are written with $n placeholders and passed through
// Rebind.
type Dialect interface {
	Name() string
	DriverName() string
	Migrate(ctx context.Context, db *sql.DB) error
	Rebind(query string) string
	// Limit returns a row-limiting clause bound to placeholder $param.
	Limit(param int) string
	// InsertStock stores s and returns the identity assigned by the engine.
	InsertStock(ctx context.Context, tx *sql.Tx, s *domain.Stock) (int64, error)
	IsUniqueViolation(err error) bool
}

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverOracle   = "oracle"
)

func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverPostgres:
		return &PostgresDialect{}, nil
	case DriverMySQL:
		return &MySQLDialect{}, nil
	case DriverOracle:
		return &OracleDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

func rebindPositional(query, replacement string) string {
	return placeholderPattern.ReplaceAllString(query, replacement)
}
