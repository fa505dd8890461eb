package monitor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/tekuonline/uptivalab/internal/models"
)

const defaultProbeQuery = "SELECT 1"

// DatabaseProbe connects to a database and runs a probe query
type DatabaseProbe struct{}

func init() {
	registerBuiltin(&DatabaseProbe{})
}

func (d *DatabaseProbe) Kind() models.Kind {
	return models.KindDatabase
}

func (d *DatabaseProbe) Check(ctx context.Context, req *CheckRequest) (*models.CheckResult, error) {
	cfg, ok := req.Config.(*DatabaseConfig)
	if !ok {
		return nil, fmt.Errorf("database probe: unexpected config %T", req.Config)
	}
	result := newResult(req)

	if cfg.DSN == "" {
		result.Message = "No connection string specified"
		return result, nil
	}

	query := cfg.Query
	if query == "" {
		query = defaultProbeQuery
	}

	checkCtx, cancel := context.WithTimeout(ctx, timeoutOr(req, 30*time.Second))
	defer cancel()

	start := time.Now()
	var err error
	switch cfg.Driver {
	case "postgres", "postgresql", "":
		err = probePostgres(checkCtx, cfg.DSN, query)
	case "mysql":
		err = probeSQL(checkCtx, "mysql", cfg.DSN, query)
	case "sqlserver", "mssql":
		err = probeSQL(checkCtx, "sqlserver", cfg.DSN, query)
	default:
		result.Message = fmt.Sprintf("Unsupported database driver: %s", cfg.Driver)
		return result, nil
	}
	latency := setLatency(result, time.Since(start))

	if err != nil {
		result.Message = fmt.Sprintf("Database check failed: %v", err)
		return result, nil
	}

	result.Status = models.StatusUp
	result.Message = fmt.Sprintf("Query OK - %dms", latency)
	return result, nil
}

func probePostgres(ctx context.Context, dsn, query string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.WithoutCancel(ctx))

	if _, err := conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("query: %w", err)
	}
	return nil
}

func probeSQL(ctx context.Context, driver, dsn, query string) error {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	return rows.Close()
}
