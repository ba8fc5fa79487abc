package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"inventra-system/internal/database/models"
	"inventra-system/internal/ledger"
)

// MemoryRepository is an in-memory ledger.Repository with the same observable
// semantics as the gorm one: transactions are atomic (rolled back wholesale on
// error) and serialized, so the engine's locking discipline holds. Used by
// tests and local experimentation; production runs on postgres.
type MemoryRepository struct {
	mu sync.Mutex

	brands   map[uuid.UUID]models.Brand
	products map[uuid.UUID]models.Product
	stores   map[uuid.UUID]models.Store

	stocks     map[uuid.UUID]models.Stock
	movements  []models.StockMovement
	nextMoveID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		brands:     make(map[uuid.UUID]models.Brand),
		products:   make(map[uuid.UUID]models.Product),
		stores:     make(map[uuid.UUID]models.Store),
		stocks:     make(map[uuid.UUID]models.Stock),
		nextMoveID: 1,
	}
}

// AddBrand, AddProduct and AddStore seed catalog fixtures.

func (r *MemoryRepository) AddBrand(b models.Brand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.brands[b.ID] = b
}

func (r *MemoryRepository) AddProduct(p models.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
}

func (r *MemoryRepository) AddStore(s models.Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[s.ID] = s
}

func (r *MemoryRepository) Transact(ctx context.Context, fn func(ledger.Repository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.snapshot()
	if err := fn(&memTx{r: r}); err != nil {
		r.restore(snapshot)
		return err
	}
	return nil
}

type memState struct {
	stocks     map[uuid.UUID]models.Stock
	movements  []models.StockMovement
	nextMoveID int64
}

func (r *MemoryRepository) snapshot() memState {
	stocks := make(map[uuid.UUID]models.Stock, len(r.stocks))
	for id, s := range r.stocks {
		stocks[id] = s
	}
	movements := make([]models.StockMovement, len(r.movements))
	copy(movements, r.movements)
	return memState{stocks: stocks, movements: movements, nextMoveID: r.nextMoveID}
}

func (r *MemoryRepository) restore(s memState) {
	r.stocks = s.stocks
	r.movements = s.movements
	r.nextMoveID = s.nextMoveID
}

// memTx is the view handed to a transaction body. It reuses the repository's
// core operations without re-locking; the outer Transact holds the mutex.
type memTx struct {
	r *MemoryRepository
}

func (t *memTx) Transact(ctx context.Context, fn func(ledger.Repository) error) error {
	return fn(t)
}

func (t *memTx) GetStock(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	return t.r.getStock(id)
}

func (t *memTx) GetStockForUpdate(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	return t.r.getStock(id)
}

func (t *memTx) GetStockByProductStore(ctx context.Context, productID, storeID uuid.UUID) (*models.Stock, error) {
	return t.r.getStockByProductStore(productID, storeID)
}

func (t *memTx) CreateStock(ctx context.Context, stock *models.Stock) error {
	return t.r.createStock(stock)
}

func (t *memTx) SaveStock(ctx context.Context, stock *models.Stock) error {
	return t.r.saveStock(stock)
}

func (t *memTx) ListStocks(ctx context.Context, filter ledger.StockFilter) ([]models.Stock, int64, error) {
	return t.r.listStocks(filter)
}

func (t *memTx) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	return t.r.createMovement(movement)
}

func (t *memTx) ListMovements(ctx context.Context, filter ledger.MovementFilter) ([]models.StockMovement, int64, error) {
	return t.r.listMovements(filter)
}

func (t *memTx) DeleteMovements(ctx context.Context, filter ledger.MovementFilter) (int64, error) {
	return t.r.deleteMovements(filter)
}

func (t *memTx) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return t.r.getProduct(id)
}

func (t *memTx) GetStore(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	return t.r.getStore(id)
}

func (t *memTx) SumStockValue(ctx context.Context, brandID, storeID *uuid.UUID) (decimal.Decimal, error) {
	return t.r.sumStockValue(brandID, storeID)
}

// Locked wrappers for use outside a transaction.

func (r *MemoryRepository) GetStock(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getStock(id)
}

func (r *MemoryRepository) GetStockForUpdate(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getStock(id)
}

func (r *MemoryRepository) GetStockByProductStore(ctx context.Context, productID, storeID uuid.UUID) (*models.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getStockByProductStore(productID, storeID)
}

func (r *MemoryRepository) CreateStock(ctx context.Context, stock *models.Stock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createStock(stock)
}

func (r *MemoryRepository) SaveStock(ctx context.Context, stock *models.Stock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveStock(stock)
}

func (r *MemoryRepository) ListStocks(ctx context.Context, filter ledger.StockFilter) ([]models.Stock, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listStocks(filter)
}

func (r *MemoryRepository) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createMovement(movement)
}

func (r *MemoryRepository) ListMovements(ctx context.Context, filter ledger.MovementFilter) ([]models.StockMovement, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listMovements(filter)
}

func (r *MemoryRepository) DeleteMovements(ctx context.Context, filter ledger.MovementFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteMovements(filter)
}

func (r *MemoryRepository) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getProduct(id)
}

func (r *MemoryRepository) GetStore(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getStore(id)
}

func (r *MemoryRepository) SumStockValue(ctx context.Context, brandID, storeID *uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sumStockValue(brandID, storeID)
}

// Core operations. Callers hold the mutex.

func (r *MemoryRepository) getStock(id uuid.UUID) (*models.Stock, error) {
	stock, ok := r.stocks[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return r.attach(stock), nil
}

func (r *MemoryRepository) getStockByProductStore(productID, storeID uuid.UUID) (*models.Stock, error) {
	for _, stock := range r.stocks {
		if stock.ProductID == productID && stock.StoreID == storeID {
			return r.attach(stock), nil
		}
	}
	return nil, ledger.ErrNotFound
}

// attach returns a detached copy with Product and Store populated, like the
// gorm repository's preloads.
func (r *MemoryRepository) attach(stock models.Stock) *models.Stock {
	if product, ok := r.products[stock.ProductID]; ok {
		stock.Product = &product
	}
	if store, ok := r.stores[stock.StoreID]; ok {
		stock.Store = &store
	}
	return &stock
}

func (r *MemoryRepository) createStock(stock *models.Stock) error {
	if _, ok := r.stocks[stock.ID]; ok {
		return ledger.ErrDuplicate
	}
	for _, existing := range r.stocks {
		if existing.ProductID == stock.ProductID && existing.StoreID == stock.StoreID {
			return ledger.ErrDuplicate
		}
	}
	saved := *stock
	saved.Product = nil
	saved.Store = nil
	r.stocks[stock.ID] = saved
	return nil
}

func (r *MemoryRepository) saveStock(stock *models.Stock) error {
	if _, ok := r.stocks[stock.ID]; !ok {
		return ledger.ErrNotFound
	}
	saved := *stock
	saved.Product = nil
	saved.Store = nil
	r.stocks[stock.ID] = saved
	return nil
}

func (r *MemoryRepository) listStocks(filter ledger.StockFilter) ([]models.Stock, int64, error) {
	var matched []models.Stock
	for _, stock := range r.stocks {
		if filter.ProductID != nil && stock.ProductID != *filter.ProductID {
			continue
		}
		if filter.StoreID != nil && stock.StoreID != *filter.StoreID {
			continue
		}
		if filter.BrandID != nil {
			product, ok := r.products[stock.ProductID]
			if !ok || product.BrandID != *filter.BrandID {
				continue
			}
		}
		if filter.BelowMinimum && stock.QuantityOnHand >= stock.MinimumStockLevel {
			continue
		}
		matched = append(matched, *r.attach(stock))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	return paginate(matched, filter.Page, filter.PageSize), total, nil
}

func (r *MemoryRepository) createMovement(movement *models.StockMovement) error {
	movement.ID = r.nextMoveID
	r.nextMoveID++
	r.movements = append(r.movements, *movement)
	return nil
}

func (r *MemoryRepository) matchMovement(m models.StockMovement, filter ledger.MovementFilter) bool {
	if filter.StockID != nil && m.StockID != *filter.StockID {
		return false
	}
	if filter.MovementType != nil && m.MovementType != *filter.MovementType {
		return false
	}
	if filter.CreatedBy != nil && m.CreatedBy != *filter.CreatedBy {
		return false
	}
	if filter.ProductID != nil || filter.StoreID != nil || filter.BrandID != nil {
		stock, ok := r.stocks[m.StockID]
		if !ok {
			return false
		}
		if filter.ProductID != nil && stock.ProductID != *filter.ProductID {
			return false
		}
		if filter.StoreID != nil && stock.StoreID != *filter.StoreID {
			return false
		}
		if filter.BrandID != nil {
			product, ok := r.products[stock.ProductID]
			if !ok || product.BrandID != *filter.BrandID {
				return false
			}
		}
	}
	return true
}

func (r *MemoryRepository) listMovements(filter ledger.MovementFilter) ([]models.StockMovement, int64, error) {
	var matched []models.StockMovement
	for _, m := range r.movements {
		if r.matchMovement(m, filter) {
			matched = append(matched, m)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	return paginate(matched, filter.Page, filter.PageSize), total, nil
}

func (r *MemoryRepository) deleteMovements(filter ledger.MovementFilter) (int64, error) {
	var kept []models.StockMovement
	var deleted int64
	for _, m := range r.movements {
		if r.matchMovement(m, filter) {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	r.movements = kept
	return deleted, nil
}

func (r *MemoryRepository) getProduct(id uuid.UUID) (*models.Product, error) {
	product, ok := r.products[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &product, nil
}

func (r *MemoryRepository) getStore(id uuid.UUID) (*models.Store, error) {
	store, ok := r.stores[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &store, nil
}

func (r *MemoryRepository) sumStockValue(brandID, storeID *uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, stock := range r.stocks {
		if storeID != nil && stock.StoreID != *storeID {
			continue
		}
		if brandID != nil {
			product, ok := r.products[stock.ProductID]
			if !ok || product.BrandID != *brandID {
				continue
			}
		}
		total = total.Add(stock.UnitCost.Mul(decimal.NewFromInt(stock.QuantityOnHand)))
	}
	return total, nil
}

func paginate[T any](items []T, page, pageSize int) []T {
	if pageSize <= 0 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
