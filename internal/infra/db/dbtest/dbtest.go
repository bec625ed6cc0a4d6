// Package dbtest поднимает пул к тестовой базе для интеграционных тестов.
// Без STOCKFLOW_TEST_DSN тесты пропускаются.
package dbtest

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/stockflow/internal/infra/db"
	"github.com/Spok95/stockflow/migrations"
)

const EnvDSN = "STOCKFLOW_TEST_DSN"

// migrateLock: пакеты тестов идут параллельно, миграции гоняем по очереди.
const migrateLock = 7_420_001

func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skip(EnvDSN + " is not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer conn.Release()
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrateLock); err != nil {
		t.Fatalf("migration lock: %v", err)
	}
	defer func() { _, _ = conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, migrateLock) }()

	if err := migrations.Up(dsn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return pool
}

// Owner выдаёт свежего владельца на тест, чтобы данные прогонов не пересекались.
func Owner() string { return "test-" + uuid.NewString() }
