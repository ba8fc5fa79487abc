package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"inventra-system/internal/database/models"
)

// Sentinel errors returned by Repository implementations. The engine
// translates them into rejections; anything else is treated as a storage
// failure and rolled back.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// MovementFilter narrows ListMovements and PurgeMovements. Nil fields are
// ignored. BrandID is the scoping filter applied on behalf of the caller.
type MovementFilter struct {
	StockID      *uuid.UUID
	ProductID    *uuid.UUID
	StoreID      *uuid.UUID
	MovementType *string
	CreatedBy    *uuid.UUID
	BrandID      *uuid.UUID
	Page         int
	PageSize     int
}

// StockFilter narrows balance listings. BelowMinimum selects only balances
// under their configured minimum stock level.
type StockFilter struct {
	ProductID    *uuid.UUID
	StoreID      *uuid.UUID
	BrandID      *uuid.UUID
	BelowMinimum bool
	Page         int
	PageSize     int
}

// Repository is the storage contract the engine runs against. The gorm
// implementation backs it with postgres row locks; tests use the in-memory
// implementation, which serializes transactions with a mutex.
type Repository interface {
	// Transact runs fn atomically. Repository calls made through the
	// argument see uncommitted state; any error from fn rolls everything
	// back. Lock acquisition via GetStockForUpdate is only valid inside fn.
	Transact(ctx context.Context, fn func(Repository) error) error

	GetStock(ctx context.Context, id uuid.UUID) (*models.Stock, error)
	GetStockForUpdate(ctx context.Context, id uuid.UUID) (*models.Stock, error)
	GetStockByProductStore(ctx context.Context, productID, storeID uuid.UUID) (*models.Stock, error)
	CreateStock(ctx context.Context, stock *models.Stock) error
	SaveStock(ctx context.Context, stock *models.Stock) error
	ListStocks(ctx context.Context, filter StockFilter) ([]models.Stock, int64, error)

	CreateMovement(ctx context.Context, movement *models.StockMovement) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]models.StockMovement, int64, error)
	DeleteMovements(ctx context.Context, filter MovementFilter) (int64, error)

	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetStore(ctx context.Context, id uuid.UUID) (*models.Store, error)

	SumStockValue(ctx context.Context, brandID, storeID *uuid.UUID) (decimal.Decimal, error)
}
