package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"inventra-system/internal/database/models"
)

// CreateBalanceRequest seeds a balance for a product newly stocked at a store.
type CreateBalanceRequest struct {
	ProductID         uuid.UUID       `json:"product_id"`
	StoreID           uuid.UUID       `json:"store_id"`
	QuantityOnHand    int64           `json:"quantity_on_hand"`
	ReservedQuantity  int64           `json:"reserved_quantity"`
	MinimumStockLevel int64           `json:"minimum_stock_level"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
}

// CreateBalance creates the (product, store) balance row. The product and
// store must belong to the same brand and the pair must not already have one.
func (e *Engine) CreateBalance(ctx context.Context, actor Actor, req CreateBalanceRequest) (*models.Stock, error) {
	if req.QuantityOnHand < 0 || req.ReservedQuantity < 0 || req.MinimumStockLevel < 0 {
		return nil, reject(CodeInvalidQuantitySign, "quantities must not be negative")
	}
	if req.ReservedQuantity > req.QuantityOnHand {
		return nil, reject(CodeInvalidQuantitySign, "reserved quantity cannot exceed quantity on hand")
	}

	var created *models.Stock
	err := e.repo.Transact(ctx, func(repo Repository) error {
		product, err := repo.GetProduct(ctx, req.ProductID)
		if errors.Is(err, ErrNotFound) {
			return reject(CodeBalanceNotFound, "product %s not found", req.ProductID)
		}
		if err != nil {
			return err
		}
		store, err := repo.GetStore(ctx, req.StoreID)
		if errors.Is(err, ErrNotFound) {
			return reject(CodeBalanceNotFound, "store %s not found", req.StoreID)
		}
		if err != nil {
			return err
		}

		if product.BrandID != store.BrandID {
			return reject(CodeCrossBrandBalance, "product and store must belong to the same brand")
		}
		if !e.authorize(actor, product.BrandID) {
			return reject(CodeUnauthorizedActor, "actor %s may not act on this brand", actor.Username)
		}

		if _, err := repo.GetStockByProductStore(ctx, req.ProductID, req.StoreID); err == nil {
			return reject(CodeDuplicateBalance, "balance already exists for this product and store")
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		stock := &models.Stock{
			ID:                uuid.New(),
			ProductID:         req.ProductID,
			StoreID:           req.StoreID,
			QuantityOnHand:    req.QuantityOnHand,
			ReservedQuantity:  req.ReservedQuantity,
			MinimumStockLevel: req.MinimumStockLevel,
			UnitCost:          req.UnitCost,
		}
		if err := repo.CreateStock(ctx, stock); err != nil {
			if errors.Is(err, ErrDuplicate) {
				return reject(CodeDuplicateBalance, "balance already exists for this product and store")
			}
			return err
		}
		created = stock
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("balance created",
		zap.String("stock_id", created.ID.String()),
		zap.String("product_id", req.ProductID.String()),
		zap.String("store_id", req.StoreID.String()),
	)
	return created, nil
}

// GetBalance fetches one balance, enforcing brand scoping.
func (e *Engine) GetBalance(ctx context.Context, actor Actor, id uuid.UUID) (*models.Stock, error) {
	stock, err := e.repo.GetStock(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, reject(CodeBalanceNotFound, "balance %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	if !e.authorize(actor, stock.Product.BrandID) {
		return nil, reject(CodeUnauthorizedActor, "actor %s may not act on this brand", actor.Username)
	}
	return stock, nil
}

// Reserve moves quantity from available to reserved without touching the
// on-hand total, so no ledger row is written.
func (e *Engine) Reserve(ctx context.Context, actor Actor, stockID uuid.UUID, quantity int64) (*models.Stock, error) {
	if quantity <= 0 {
		return nil, reject(CodeInvalidQuantitySign, "reserve quantity must be positive")
	}
	return e.mutateReservation(ctx, actor, stockID, func(stock *models.Stock) error {
		if stock.AvailableQuantity() < quantity {
			return reject(CodeInsufficientStock,
				"insufficient stock: available %d, requested %d", stock.AvailableQuantity(), quantity)
		}
		stock.ReservedQuantity += quantity
		return nil
	})
}

// Release returns previously reserved quantity to the available pool.
func (e *Engine) Release(ctx context.Context, actor Actor, stockID uuid.UUID, quantity int64) (*models.Stock, error) {
	if quantity <= 0 {
		return nil, reject(CodeInvalidQuantitySign, "release quantity must be positive")
	}
	return e.mutateReservation(ctx, actor, stockID, func(stock *models.Stock) error {
		if stock.ReservedQuantity < quantity {
			return reject(CodeInsufficientStock,
				"insufficient reserved stock: reserved %d, requested %d", stock.ReservedQuantity, quantity)
		}
		stock.ReservedQuantity -= quantity
		return nil
	})
}

func (e *Engine) mutateReservation(ctx context.Context, actor Actor, stockID uuid.UUID, mutate func(*models.Stock) error) (*models.Stock, error) {
	var updated *models.Stock
	err := e.repo.Transact(ctx, func(repo Repository) error {
		stock, err := e.lockStock(ctx, repo, stockID)
		if err != nil {
			return err
		}
		if !e.authorize(actor, stock.Product.BrandID) {
			return reject(CodeUnauthorizedActor, "actor %s may not act on this brand", actor.Username)
		}
		if err := mutate(stock); err != nil {
			return err
		}
		if err := repo.SaveStock(ctx, stock); err != nil {
			return err
		}
		updated = stock
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
