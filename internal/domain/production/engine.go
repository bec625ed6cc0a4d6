package production

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Spok95/stockflow/internal/domain/apperr"
	"github.com/Spok95/stockflow/internal/domain/bom"
	"github.com/Spok95/stockflow/internal/domain/materials"
	"github.com/Spok95/stockflow/internal/infra/metrics"
)

type Inventory interface {
	Get(ctx context.Context, ownerID string, id uuid.UUID) (materials.Material, error)
	ApplyDeltas(ctx context.Context, ownerID string, deltas []materials.Delta) ([]materials.Material, error)
}

type BOMReader interface {
	Get(ctx context.Context, ownerID string, productID uuid.UUID) ([]bom.Entry, error)
}

// Notifier получает сырьё, остаток которого после заказа упал до порога.
type Notifier interface {
	LowStock(ctx context.Context, ownerID string, m materials.Material) error
}

type Options struct {
	// LowStockThreshold <= 0 выключает оповещения.
	LowStockThreshold decimal.Decimal
	CommitTimeout     time.Duration
	Notifier          Notifier
	Now               func() time.Time
}

type Engine struct {
	inv    Inventory
	boms   BOMReader
	ledger Ledger
	log    *slog.Logger
	opts   Options
}

func NewEngine(inv Inventory, boms BOMReader, ledger Ledger, log *slog.Logger, opts Options) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		inv:    inv,
		boms:   boms,
		ledger: ledger,
		log:    log.With("component", "production"),
		opts:   opts,
	}
}

// Prepare строит план заказа по текущей спецификации и остаткам. Чистая функция
// от состояния хранилищ: повторный вызов без изменений даёт тот же план.
func (e *Engine) Prepare(ctx context.Context, ownerID string, productID uuid.UUID, quantity int64) (Plan, error) {
	if quantity <= 0 {
		return Plan{}, apperr.New(apperr.KindInvalidQuantity, "quantity to produce must be a positive integer, got %d", quantity)
	}

	product, err := e.inv.Get(ctx, ownerID, productID)
	if err != nil {
		return Plan{}, err
	}
	if product.Kind != materials.KindReady {
		return Plan{}, apperr.New(apperr.KindNotFound, "finished product %s not found", productID).WithMaterials(productID)
	}

	entries, err := e.boms.Get(ctx, ownerID, productID)
	if err != nil {
		return Plan{}, err
	}
	if len(entries) == 0 {
		return Plan{}, apperr.New(apperr.KindNoBOMDefined, "product %q has no bill of materials", product.Name).WithMaterials(productID)
	}

	plan := Plan{
		OwnerID:             ownerID,
		FinishedProductID:   productID,
		FinishedProductName: product.Name,
		Quantity:            quantity,
		Lines:               make([]Line, 0, len(entries)),
	}
	var missing []uuid.UUID
	for _, entry := range entries {
		m, err := e.rawMaterial(ctx, ownerID, entry.MaterialID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				missing = append(missing, entry.MaterialID)
				continue
			}
			return Plan{}, err
		}
		plan.Lines = append(plan.Lines, newLine(entry, m, quantity))
	}
	if len(missing) > 0 {
		return Plan{}, apperr.New(apperr.KindNotFound, "ingredient no longer exists as a raw material").WithMaterials(missing...)
	}
	return plan, nil
}

// rawMaterial: удалённый материал или ставший готовой продукцией даёт NotFound, не пропуск.
func (e *Engine) rawMaterial(ctx context.Context, ownerID string, id uuid.UUID) (materials.Material, error) {
	m, err := e.inv.Get(ctx, ownerID, id)
	if err != nil {
		return materials.Material{}, err
	}
	if m.Kind != materials.KindRaw {
		return materials.Material{}, apperr.New(apperr.KindNotFound, "raw material %s not found", id).WithMaterials(id)
	}
	return m, nil
}

// Commit проводит план: перепроверяет его по текущим остаткам, атомарно двигает
// остатки сырья и готовой продукции и пишет заказ в журнал.
func (e *Engine) Commit(ctx context.Context, plan Plan, notes string) (Order, error) {
	start := time.Now()
	order, err := e.commit(ctx, plan, notes)
	metrics.CommitDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		kind := apperr.KindOf(err)
		metrics.CommitRejected.WithLabelValues(string(kind)).Inc()
		if kind == apperr.KindStorageFault {
			e.log.Error("commit failed", "owner", plan.OwnerID, "product", plan.FinishedProductID, "err", err)
		} else {
			e.log.Warn("commit rejected", "owner", plan.OwnerID, "product", plan.FinishedProductID,
				"kind", kind, "materials", apperr.MaterialsOf(err), "err", err)
		}
		return Order{}, err
	}
	metrics.OrdersCommitted.Inc()
	metrics.UnitsProduced.Add(float64(order.QuantityProduced))
	e.log.Info("production order committed", "owner", order.OwnerID, "order", order.ID,
		"product", order.FinishedProductID, "quantity", order.QuantityProduced)
	return order, nil
}

func (e *Engine) commit(ctx context.Context, plan Plan, notes string) (Order, error) {
	if e.opts.CommitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.CommitTimeout)
		defer cancel()
	}

	if plan.Quantity <= 0 {
		return Order{}, apperr.New(apperr.KindInvalidQuantity, "quantity to produce must be a positive integer, got %d", plan.Quantity)
	}
	if len(plan.Lines) == 0 {
		return Order{}, apperr.New(apperr.KindNoBOMDefined, "plan has no lines").WithMaterials(plan.FinishedProductID)
	}
	for _, l := range plan.Lines {
		if l.ActualWaste.IsNegative() {
			return Order{}, apperr.New(apperr.KindInvalidQuantity, "waste cannot be negative, got %s", l.ActualWaste).WithMaterials(l.MaterialID)
		}
	}
	// План с нарушениями не проводится.
	if err := violationsError(Validate(plan)); err != nil {
		return Order{}, err
	}

	// Строгая перепроверка по текущему состоянию склада, а не по снимку Prepare.
	if err := e.recheck(ctx, plan); err != nil {
		return Order{}, err
	}

	orderID := uuid.New()
	note := fmt.Sprintf("production order %s", orderID)
	deltas := make([]materials.Delta, 0, len(plan.Lines)+1)
	for _, l := range plan.Lines {
		deltas = append(deltas, materials.Delta{MaterialID: l.MaterialID, Quantity: l.TotalConsumed.Neg(), Note: note})
	}
	deltas = append(deltas, materials.Delta{
		MaterialID: plan.FinishedProductID,
		Quantity:   decimal.NewFromInt(plan.Quantity),
		Note:       note,
	})

	build := func(updated []materials.Material) Order {
		return Order{
			ID:                  orderID,
			OwnerID:             plan.OwnerID,
			FinishedProductID:   plan.FinishedProductID,
			FinishedProductName: plan.FinishedProductName,
			QuantityProduced:    plan.Quantity,
			ProductionDate:      e.opts.Now(),
			Notes:               notes,
			BOMSnapshot:         snapshot(plan, updated),
		}
	}

	var (
		order   Order
		updated []materials.Material
		err     error
	)
	if sl, ok := e.ledger.(StockLedger); ok {
		order, err = sl.CommitOrder(ctx, plan.OwnerID, deltas, func(ms []materials.Material) Order {
			updated = ms
			return build(ms)
		})
		if err != nil {
			return Order{}, lostRace(err)
		}
	} else {
		updated, err = e.inv.ApplyDeltas(ctx, plan.OwnerID, deltas)
		if err != nil {
			return Order{}, lostRace(err)
		}
		order = build(updated)
		if _, err := e.ledger.Append(ctx, order); err != nil {
			e.compensate(plan.OwnerID, deltas, err)
			return Order{}, apperr.Wrap(apperr.KindStorageFault, err, "record production order")
		}
	}
	metrics.StockDeltas.Add(float64(len(deltas)))

	e.notifyLowStock(ctx, plan, updated)
	return order, nil
}

// lostRace: нехватка, найденная уже под блокировкой, значит параллельный заказ успел раньше.
func lostRace(err error) error {
	if apperr.Is(err, apperr.KindInsufficientStock) {
		return apperr.Wrap(apperr.KindConflict, err, "stock changed by a concurrent order").
			WithMaterials(apperr.MaterialsOf(err)...)
	}
	return err
}

func (e *Engine) recheck(ctx context.Context, plan Plan) error {
	var missing, changed []uuid.UUID
	for _, l := range plan.Lines {
		m, err := e.rawMaterial(ctx, plan.OwnerID, l.MaterialID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				missing = append(missing, l.MaterialID)
				continue
			}
			return err
		}
		fresh := l
		fresh.AvailableStock = m.Stock
		fresh.UnitType = m.UnitType
		if len(fresh.evaluate()) > 0 {
			changed = append(changed, l.MaterialID)
		}
	}
	if len(missing) > 0 {
		return apperr.New(apperr.KindNotFound, "ingredient no longer exists as a raw material").WithMaterials(missing...)
	}
	if len(changed) > 0 {
		return apperr.New(apperr.KindConflict, "stock changed since the plan was prepared").WithMaterials(changed...)
	}
	return nil
}

// snapshot фиксирует имена и единицы на момент проведения: поздние правки
// материалов и спецификации историю не меняют.
func snapshot(plan Plan, updated []materials.Material) []SnapshotLine {
	current := make(map[uuid.UUID]materials.Material, len(updated))
	for _, m := range updated {
		current[m.ID] = m
	}
	out := make([]SnapshotLine, 0, len(plan.Lines))
	for _, l := range plan.Lines {
		name, unit := l.MaterialName, l.Unit
		if m, ok := current[l.MaterialID]; ok {
			name, unit = m.Name, m.Unit
		}
		out = append(out, SnapshotLine{
			MaterialID:             l.MaterialID,
			MaterialName:           name,
			MaterialSize:           unit,
			IdealQuantityPerUnit:   l.IdealQuantityPerUnit,
			IdealWastePerUnit:      l.IdealWastePerUnit,
			ActualQuantityConsumed: l.TotalConsumed,
			ActualWaste:            l.ActualWaste,
		})
	}
	return out
}

// compensate возвращает остатки, если заказ не удалось записать в журнал.
func (e *Engine) compensate(ownerID string, applied []materials.Delta, cause error) {
	inverse := make([]materials.Delta, len(applied))
	for i, d := range applied {
		inverse[i] = materials.Delta{MaterialID: d.MaterialID, Quantity: d.Quantity.Neg(), Note: "rollback: " + d.Note}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := e.inv.ApplyDeltas(ctx, ownerID, inverse); err != nil {
		e.log.Error("stock rollback failed", "owner", ownerID, "cause", cause, "err", err)
		return
	}
	e.log.Warn("stock rolled back after ledger failure", "owner", ownerID, "cause", cause)
}

func (e *Engine) notifyLowStock(ctx context.Context, plan Plan, updated []materials.Material) {
	if e.opts.Notifier == nil || !e.opts.LowStockThreshold.IsPositive() {
		return
	}
	for _, m := range updated {
		if m.Kind != materials.KindRaw || m.Stock.GreaterThan(e.opts.LowStockThreshold) {
			continue
		}
		if err := e.opts.Notifier.LowStock(ctx, plan.OwnerID, m); err != nil {
			metrics.LowStockAlerts.WithLabelValues("error").Inc()
			e.log.Error("low stock notification failed", "material", m.ID, "err", err)
			continue
		}
		metrics.LowStockAlerts.WithLabelValues("sent").Inc()
	}
}

// CreateOrder принимает вход внешнего слоя целиком (план, ручные отходы, проведение).
func (e *Engine) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	plan, err := e.Prepare(ctx, req.OwnerID, req.FinishedProductID, req.Quantity)
	if err != nil {
		return Order{}, err
	}
	for _, adj := range req.IngredientAdjustments {
		plan, err = plan.Revise(adj.MaterialID, adj.ManualWaste.Round(4))
		if err != nil {
			return Order{}, err
		}
	}
	return e.Commit(ctx, plan, req.Notes)
}

// Revise: удобная обёртка над Plan.Revise для внешнего слоя.
func (e *Engine) Revise(plan Plan, adjustments []Adjustment) (Plan, error) {
	var err error
	for _, adj := range adjustments {
		plan, err = plan.Revise(adj.MaterialID, adj.ManualWaste.Round(4))
		if err != nil {
			return plan, err
		}
	}
	return plan, nil
}
