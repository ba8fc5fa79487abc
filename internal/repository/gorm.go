package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"inventra-system/internal/database/models"
	"inventra-system/internal/ledger"
)

// GormRepository backs the ledger with postgres through gorm. Transactions
// map to database transactions and GetStockForUpdate takes a row lock, so
// concurrent movements on the same balance serialize at the database.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Transact(ctx context.Context, fn func(ledger.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepository{db: tx})
	})
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ledger.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ledger.ErrDuplicate
	}
	return err
}

func (r *GormRepository) GetStock(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	var stock models.Stock
	err := r.db.WithContext(ctx).
		Preload("Product").Preload("Store").
		First(&stock, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &stock, nil
}

func (r *GormRepository) GetStockForUpdate(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	var stock models.Stock
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Product").Preload("Store").
		First(&stock, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &stock, nil
}

func (r *GormRepository) GetStockByProductStore(ctx context.Context, productID, storeID uuid.UUID) (*models.Stock, error) {
	var stock models.Stock
	err := r.db.WithContext(ctx).
		First(&stock, "product_id = ? AND store_id = ?", productID, storeID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &stock, nil
}

func (r *GormRepository) CreateStock(ctx context.Context, stock *models.Stock) error {
	return translate(r.db.WithContext(ctx).Create(stock).Error)
}

func (r *GormRepository) SaveStock(ctx context.Context, stock *models.Stock) error {
	return translate(r.db.WithContext(ctx).Save(stock).Error)
}

func (r *GormRepository) ListStocks(ctx context.Context, filter ledger.StockFilter) ([]models.Stock, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Stock{})

	if filter.ProductID != nil {
		query = query.Where("stocks.product_id = ?", *filter.ProductID)
	}
	if filter.StoreID != nil {
		query = query.Where("stocks.store_id = ?", *filter.StoreID)
	}
	if filter.BrandID != nil {
		query = query.
			Joins("JOIN products ON products.id = stocks.product_id").
			Where("products.brand_id = ?", *filter.BrandID)
	}
	if filter.BelowMinimum {
		query = query.Where("stocks.quantity_on_hand < stocks.minimum_stock_level")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var stocks []models.Stock
	offset, limit := pageBounds(filter.Page, filter.PageSize)
	err := query.
		Preload("Product").Preload("Store").
		Order("stocks.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&stocks).Error
	if err != nil {
		return nil, 0, err
	}
	return stocks, total, nil
}

func (r *GormRepository) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	return translate(r.db.WithContext(ctx).Create(movement).Error)
}

func movementQuery(db *gorm.DB, filter ledger.MovementFilter) *gorm.DB {
	query := db.Model(&models.StockMovement{})

	if filter.StockID != nil {
		query = query.Where("stock_movements.stock_id = ?", *filter.StockID)
	}
	if filter.MovementType != nil {
		query = query.Where("stock_movements.movement_type = ?", *filter.MovementType)
	}
	if filter.CreatedBy != nil {
		query = query.Where("stock_movements.created_by = ?", *filter.CreatedBy)
	}
	if filter.ProductID != nil || filter.StoreID != nil || filter.BrandID != nil {
		query = query.Joins("JOIN stocks ON stocks.id = stock_movements.stock_id")
		if filter.ProductID != nil {
			query = query.Where("stocks.product_id = ?", *filter.ProductID)
		}
		if filter.StoreID != nil {
			query = query.Where("stocks.store_id = ?", *filter.StoreID)
		}
		if filter.BrandID != nil {
			query = query.
				Joins("JOIN products ON products.id = stocks.product_id").
				Where("products.brand_id = ?", *filter.BrandID)
		}
	}
	return query
}

func (r *GormRepository) ListMovements(ctx context.Context, filter ledger.MovementFilter) ([]models.StockMovement, int64, error) {
	query := movementQuery(r.db.WithContext(ctx), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var movements []models.StockMovement
	offset, limit := pageBounds(filter.Page, filter.PageSize)
	err := query.
		Order("stock_movements.created_at ASC, stock_movements.id ASC").
		Offset(offset).Limit(limit).
		Find(&movements).Error
	if err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

func (r *GormRepository) DeleteMovements(ctx context.Context, filter ledger.MovementFilter) (int64, error) {
	sub := movementQuery(r.db.WithContext(ctx), filter).Select("stock_movements.id")
	result := r.db.WithContext(ctx).Where("id IN (?)", sub).Delete(&models.StockMovement{})
	return result.RowsAffected, result.Error
}

func (r *GormRepository) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *GormRepository) GetStore(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &store, nil
}

func (r *GormRepository) SumStockValue(ctx context.Context, brandID, storeID *uuid.UUID) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).Model(&models.Stock{})
	if storeID != nil {
		query = query.Where("stocks.store_id = ?", *storeID)
	}
	if brandID != nil {
		query = query.
			Joins("JOIN products ON products.id = stocks.product_id").
			Where("products.brand_id = ?", *brandID)
	}

	var value decimal.Decimal
	row := query.Select("COALESCE(SUM(stocks.quantity_on_hand * stocks.unit_cost), 0)").Row()
	if err := row.Scan(&value); err != nil {
		return decimal.Zero, err
	}
	return value, nil
}

func pageBounds(page, pageSize int) (offset, limit int) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}
	return (page - 1) * pageSize, pageSize
}
