package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"inventra-system/internal/database/models"
)

// Engine owns stock balances and the append-only movement ledger. Balances
// are mutated only here, inside repository transactions, so an observer never
// sees a balance updated without its ledger row or the other way around.
type Engine struct {
	repo      Repository
	authorize AuthorizeFunc
	logger    *zap.Logger
}

func NewEngine(repo Repository, authorize AuthorizeFunc, logger *zap.Logger) *Engine {
	if authorize == nil {
		authorize = BrandScoped
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{repo: repo, authorize: authorize, logger: logger}
}

// ApplyRequest describes one movement to apply against a balance.
type ApplyRequest struct {
	StockID            uuid.UUID        `json:"stock_id"`
	MovementType       string           `json:"movement_type"`
	Quantity           int64            `json:"quantity"`
	ReferenceNumber    string           `json:"reference_number"`
	Notes              string           `json:"notes"`
	DestinationStockID *uuid.UUID       `json:"destination_stock_id,omitempty"`
	UnitCost           *decimal.Decimal `json:"unit_cost,omitempty"`
}

// MovementResult carries the committed state: the updated balance(s) and the
// ledger row(s) appended for them. Transfers return two of each.
type MovementResult struct {
	Stocks    []models.Stock         `json:"stocks"`
	Movements []models.StockMovement `json:"movements"`
}

// ApplyMovement validates req and, if it passes, atomically updates the
// balance(s) and appends the ledger row(s). Validation rules run in a fixed
// order and the first failure wins; a rejected request has no effect.
func (e *Engine) ApplyMovement(ctx context.Context, actor Actor, req ApplyRequest) (*MovementResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var result *MovementResult
	err := e.repo.Transact(ctx, func(repo Repository) error {
		var err error
		if req.MovementType == models.MovementTransfer {
			result, err = e.applyTransfer(ctx, repo, actor, req)
		} else {
			result, err = e.applySingle(ctx, repo, actor, req)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("movement applied",
		zap.String("stock_id", req.StockID.String()),
		zap.String("movement_type", req.MovementType),
		zap.Int64("quantity", req.Quantity),
		zap.String("actor", actor.Username),
	)
	return result, nil
}

func validateRequest(req ApplyRequest) error {
	switch req.MovementType {
	case models.MovementInbound:
		if req.Quantity <= 0 {
			return reject(CodeInvalidQuantitySign, "inbound movements must have positive quantity")
		}
	case models.MovementOutbound:
		if req.Quantity >= 0 {
			return reject(CodeInvalidQuantitySign, "outbound movements must have negative quantity")
		}
	case models.MovementTransfer:
		if req.DestinationStockID == nil {
			return reject(CodeInvalidTransfer, "transfer movements require a destination balance")
		}
		if req.Quantity >= 0 {
			return reject(CodeInvalidTransfer, "transfer movements must have negative quantity")
		}
		if *req.DestinationStockID == req.StockID {
			return reject(CodeInvalidTransfer, "cannot transfer a balance to itself")
		}
	case models.MovementAdjustment:
		if req.Quantity == 0 {
			return reject(CodeInvalidQuantitySign, "adjustment quantity must be non-zero")
		}
	default:
		return reject(CodeInvalidKind, "unknown movement type %q", req.MovementType)
	}
	return nil
}

func (e *Engine) applySingle(ctx context.Context, repo Repository, actor Actor, req ApplyRequest) (*MovementResult, error) {
	stock, err := e.lockStock(ctx, repo, req.StockID)
	if err != nil {
		return nil, err
	}

	newQuantity := stock.QuantityOnHand + req.Quantity
	if req.MovementType != models.MovementAdjustment && newQuantity < 0 {
		return nil, reject(CodeInsufficientStock,
			"insufficient stock: available %d, requested %d", stock.QuantityOnHand, -req.Quantity)
	}
	if !e.authorize(actor, stock.Product.BrandID) {
		return nil, reject(CodeUnauthorizedActor, "actor %s may not act on this brand", actor.Username)
	}

	// Negative adjustments may overdraw a stale count; the balance floors
	// at zero while the ledger keeps the requested quantity.
	if newQuantity < 0 {
		newQuantity = 0
	}
	stock.QuantityOnHand = newQuantity
	if req.MovementType == models.MovementInbound && req.UnitCost != nil {
		stock.UnitCost = *req.UnitCost
	}
	if err := repo.SaveStock(ctx, stock); err != nil {
		return nil, err
	}

	movement := models.StockMovement{
		StockID:         stock.ID,
		MovementType:    req.MovementType,
		Quantity:        req.Quantity,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
		CreatedBy:       actor.ID,
		UnitCost:        req.UnitCost,
		CreatedAt:       time.Now(),
	}
	if err := repo.CreateMovement(ctx, &movement); err != nil {
		return nil, err
	}

	return &MovementResult{
		Stocks:    []models.Stock{*stock},
		Movements: []models.StockMovement{movement},
	}, nil
}

func (e *Engine) applyTransfer(ctx context.Context, repo Repository, actor Actor, req ApplyRequest) (*MovementResult, error) {
	source, dest, err := e.lockStockPair(ctx, repo, req.StockID, *req.DestinationStockID)
	if err != nil {
		return nil, err
	}

	amount := -req.Quantity
	if source.QuantityOnHand+req.Quantity < 0 {
		return nil, reject(CodeInsufficientStock,
			"insufficient stock: available %d, requested %d", source.QuantityOnHand, amount)
	}
	if !e.authorize(actor, source.Product.BrandID) {
		return nil, reject(CodeUnauthorizedActor, "actor %s may not act on this brand", actor.Username)
	}
	if dest.Product.BrandID != source.Product.BrandID {
		return nil, reject(CodeCrossBrandTransfer, "source and destination balances belong to different brands")
	}
	if dest.ProductID != source.ProductID {
		return nil, reject(CodeInvalidTransfer, "transfer must be for the same product")
	}
	if dest.StoreID == source.StoreID {
		return nil, reject(CodeInvalidTransfer, "cannot transfer to the same store")
	}

	source.QuantityOnHand -= amount
	dest.QuantityOnHand += amount
	if err := repo.SaveStock(ctx, source); err != nil {
		return nil, err
	}
	if err := repo.SaveStock(ctx, dest); err != nil {
		return nil, err
	}

	reference := req.ReferenceNumber
	if reference == "" {
		reference = fmt.Sprintf("TRF-%s", uuid.New().String())
	}
	now := time.Now()

	// Two linked rows per transfer, one per balance, sharing one reference
	// number. Both by-product and by-store views therefore see the transfer
	// on each side with equal and opposite quantities.
	outbound := models.StockMovement{
		StockID:            source.ID,
		MovementType:       models.MovementTransfer,
		Quantity:           req.Quantity,
		ReferenceNumber:    reference,
		Notes:              req.Notes,
		CreatedBy:          actor.ID,
		DestinationStockID: &dest.ID,
		UnitCost:           req.UnitCost,
		CreatedAt:          now,
	}
	inbound := models.StockMovement{
		StockID:         dest.ID,
		MovementType:    models.MovementTransfer,
		Quantity:        amount,
		ReferenceNumber: reference,
		Notes:           req.Notes,
		CreatedBy:       actor.ID,
		UnitCost:        req.UnitCost,
		CreatedAt:       now,
	}
	if err := repo.CreateMovement(ctx, &outbound); err != nil {
		return nil, err
	}
	if err := repo.CreateMovement(ctx, &inbound); err != nil {
		return nil, err
	}

	return &MovementResult{
		Stocks:    []models.Stock{*source, *dest},
		Movements: []models.StockMovement{outbound, inbound},
	}, nil
}

// lockStockPair acquires row locks on both balances in ascending id order so
// two opposing transfers cannot deadlock.
func (e *Engine) lockStockPair(ctx context.Context, repo Repository, sourceID, destID uuid.UUID) (*models.Stock, *models.Stock, error) {
	first, second := sourceID, destID
	if bytes.Compare(destID[:], sourceID[:]) < 0 {
		first, second = destID, sourceID
	}

	a, err := e.lockStock(ctx, repo, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := e.lockStock(ctx, repo, second)
	if err != nil {
		return nil, nil, err
	}

	if a.ID == sourceID {
		return a, b, nil
	}
	return b, a, nil
}

func (e *Engine) lockStock(ctx context.Context, repo Repository, id uuid.UUID) (*models.Stock, error) {
	stock, err := repo.GetStockForUpdate(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, reject(CodeBalanceNotFound, "balance %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return stock, nil
}
