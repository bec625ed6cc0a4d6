package materials

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/stockflow/internal/domain/apperr"
)

type Repo struct{ pool *pgxpool.Pool }

var _ Store = (*Repo)(nil)

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const materialColumns = `id, owner_id, kind, name, manufacturer, description, unit_type, unit, stock, price, created_at, updated_at`

func scanMaterial(row pgx.Row) (Material, error) {
	var m Material
	err := row.Scan(
		&m.ID,
		&m.OwnerID,
		&m.Kind,
		&m.Name,
		&m.Manufacturer,
		&m.Description,
		&m.UnitType,
		&m.Unit,
		&m.Stock,
		&m.Price,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

func (r *Repo) Get(ctx context.Context, ownerID string, id uuid.UUID) (Material, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+materialColumns+`
		FROM materials
		WHERE owner_id = $1 AND id = $2
	`, ownerID, id)
	m, err := scanMaterial(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Material{}, apperr.New(apperr.KindNotFound, "material %s not found", id).WithMaterials(id)
		}
		return Material{}, apperr.Wrap(apperr.KindStorageFault, err, "get material")
	}
	return m, nil
}

func (r *Repo) List(ctx context.Context, ownerID string, kind Kind) ([]Material, error) {
	q := `SELECT ` + materialColumns + ` FROM materials WHERE owner_id = $1`
	args := []any{ownerID}
	if kind != "" {
		q += ` AND kind = $2`
		args = append(args, string(kind))
	}
	q += ` ORDER BY kind, name, id`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFault, err, "list materials")
	}
	defer rows.Close()

	var out []Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStorageFault, err, "scan material")
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFault, err, "list materials")
	}
	return out, nil
}

func (r *Repo) Create(ctx context.Context, m Material) (uuid.UUID, error) {
	if err := m.Normalize(); err != nil {
		return uuid.Nil, err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO materials (id, owner_id, kind, name, manufacturer, description, unit_type, unit, stock, price)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO NOTHING
	`, m.ID, m.OwnerID, string(m.Kind), m.Name, m.Manufacturer, m.Description,
		string(m.UnitType), string(m.Unit), m.Stock, m.Price)
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindStorageFault, err, "create material")
	}
	if tag.RowsAffected() == 0 {
		return uuid.Nil, apperr.New(apperr.KindConflict, "material %s already exists", m.ID).WithMaterials(m.ID)
	}
	return m.ID, nil
}

func (r *Repo) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM materials WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return apperr.Wrap(apperr.KindStorageFault, err, "delete material")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "material %s not found", id).WithMaterials(id)
	}
	return nil
}

func (r *Repo) ApplyDeltas(ctx context.Context, ownerID string, deltas []Delta) ([]Material, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFault, err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out, err := ApplyDeltasTx(ctx, tx, ownerID, deltas)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFault, err, "commit stock")
	}
	return out, nil
}

// ApplyDeltasTx блокирует строки (FOR UPDATE, в порядке id, чтобы параллельные
// заказы не ловили дедлок), проверяет набор целиком и только потом пишет.
// Коммит за вызывающим: так списание и запись заказа идут одной транзакцией.
func ApplyDeltasTx(ctx context.Context, tx pgx.Tx, ownerID string, deltas []Delta) ([]Material, error) {
	merged := mergeDeltas(deltas)
	ids := make([]string, 0, len(merged))
	for _, d := range merged {
		ids = append(ids, d.MaterialID.String())
	}

	rows, err := tx.Query(ctx, `
		SELECT `+materialColumns+`
		FROM materials
		WHERE owner_id = $1 AND id = ANY($2::uuid[])
		ORDER BY id
		FOR UPDATE
	`, ownerID, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFault, err, "lock materials")
	}
	current := make(map[uuid.UUID]Material, len(ids))
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			rows.Close()
			return nil, apperr.Wrap(apperr.KindStorageFault, err, "scan material")
		}
		current[m.ID] = m
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFault, err, "lock materials")
	}

	next, err := planDeltas(current, merged)
	if err != nil {
		return nil, err
	}

	out := make([]Material, 0, len(next))
	for _, m := range next {
		updated, err := scanMaterial(tx.QueryRow(ctx, `
			UPDATE materials SET stock = $3, updated_at = now()
			WHERE owner_id = $1 AND id = $2
			RETURNING `+materialColumns,
			ownerID, m.ID, m.Stock))
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStorageFault, err, "update stock")
		}
		out = append(out, updated)
	}

	// Логируем движения
	for _, d := range merged {
		if _, err = tx.Exec(ctx, `
			INSERT INTO stock_movements (owner_id, material_id, delta, note)
			VALUES ($1,$2,$3,$4)
		`, ownerID, d.MaterialID, d.Quantity, d.Note); err != nil {
			return nil, apperr.Wrap(apperr.KindStorageFault, err, "insert movement")
		}
	}
	return out, nil
}

func (r *Repo) Movements(ctx context.Context, ownerID string, materialID uuid.UUID) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, material_id, delta, note, created_at
		FROM stock_movements
		WHERE owner_id = $1 AND material_id = $2
		ORDER BY created_at DESC, id DESC
	`, ownerID, materialID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFault, err, "list movements")
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var mv Movement
		if err := rows.Scan(&mv.ID, &mv.OwnerID, &mv.MaterialID, &mv.Delta, &mv.Note, &mv.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindStorageFault, err, "scan movement")
		}
		out = append(out, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFault, err, "list movements")
	}
	return out, nil
}
