// Package migrations встраивает SQL-схему в бинарник и прогоняет её через goose.
package migrations

import (
	"embed"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

// Up применяет все новые миграции. Используется драйвер pgx/stdlib,
// чтобы не тянуть второй драйвер Postgres.
func Up(dsn string) error {
	goose.SetBaseFS(FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return goose.Up(db, ".")
}
