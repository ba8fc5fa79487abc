package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"inventra-system/internal/database/models"
)

// scope forces brand filtering for non-admin actors. Admins keep whatever
// filter they asked for.
func (e *Engine) scope(actor Actor, brandID *uuid.UUID) *uuid.UUID {
	if actor.IsSystemAdmin() {
		return brandID
	}
	return actor.BrandID
}

// LowStock lists balances whose on-hand quantity is under their minimum stock
// level, scoped to the actor's brand.
func (e *Engine) LowStock(ctx context.Context, actor Actor, filter StockFilter) ([]models.Stock, int64, error) {
	filter.BrandID = e.scope(actor, filter.BrandID)
	filter.BelowMinimum = true
	return e.repo.ListStocks(ctx, filter)
}

// ListBalances lists balances matching the filter, scoped to the actor's brand.
func (e *Engine) ListBalances(ctx context.Context, actor Actor, filter StockFilter) ([]models.Stock, int64, error) {
	filter.BrandID = e.scope(actor, filter.BrandID)
	return e.repo.ListStocks(ctx, filter)
}

// ListMovements returns ledger rows matching the filter, ordered by creation
// time ascending with the row id as a stable tie-break.
func (e *Engine) ListMovements(ctx context.Context, actor Actor, filter MovementFilter) ([]models.StockMovement, int64, error) {
	filter.BrandID = e.scope(actor, filter.BrandID)
	return e.repo.ListMovements(ctx, filter)
}

// PurgeMovements deletes ledger rows matching the filter. This is the sole
// exception to the append-only contract and is restricted to system admins.
func (e *Engine) PurgeMovements(ctx context.Context, actor Actor, filter MovementFilter) (int64, error) {
	if !actor.IsSystemAdmin() {
		return 0, reject(CodeUnauthorizedActor, "only system admins may purge movements")
	}

	var purged int64
	err := e.repo.Transact(ctx, func(repo Repository) error {
		var err error
		purged, err = repo.DeleteMovements(ctx, filter)
		return err
	})
	if err != nil {
		return 0, err
	}

	e.logger.Warn("movements purged",
		zap.Int64("count", purged),
		zap.String("actor", actor.Username),
	)
	return purged, nil
}

// InventoryValue sums quantity_on_hand x unit_cost over the scoped balances.
func (e *Engine) InventoryValue(ctx context.Context, actor Actor, brandID, storeID *uuid.UUID) (decimal.Decimal, error) {
	return e.repo.SumStockValue(ctx, e.scope(actor, brandID), storeID)
}
