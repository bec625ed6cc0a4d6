package bom

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/stockflow/internal/domain/apperr"
)

type Repo struct{ pool *pgxpool.Pool }

var _ Store = (*Repo)(nil)

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Load(ctx context.Context, ownerID string, productID uuid.UUID) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT material_id, ideal_quantity, ideal_waste
		FROM bom_entries
		WHERE owner_id = $1 AND product_id = $2
		ORDER BY position
	`, ownerID, productID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFault, err, "load bom")
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.MaterialID, &e.IdealQuantityPerUnit, &e.IdealWastePerUnit); err != nil {
			return nil, apperr.Wrap(apperr.KindStorageFault, err, "scan bom entry")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFault, err, "load bom")
	}
	return out, nil
}

func (r *Repo) Replace(ctx context.Context, ownerID string, productID uuid.UUID, entries []Entry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindStorageFault, err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, `DELETE FROM bom_entries WHERE owner_id = $1 AND product_id = $2`, ownerID, productID); err != nil {
		return apperr.Wrap(apperr.KindStorageFault, err, "clear bom")
	}

	batch := &pgx.Batch{}
	for i, e := range entries {
		batch.Queue(`
			INSERT INTO bom_entries (owner_id, product_id, position, material_id, ideal_quantity, ideal_waste)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, ownerID, productID, i+1, e.MaterialID, e.IdealQuantityPerUnit, e.IdealWastePerUnit)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return apperr.Wrap(apperr.KindStorageFault, err, "insert bom entries")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.KindStorageFault, err, "commit bom")
	}
	return nil
}
