package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"inventra-system/internal/database/models"
	"inventra-system/internal/ledger"
)

// CatalogHTTPHandler owns the catalog CRUD surface: brands, stores, products.
// The ledger engine only reads these entities; all writes go through here.
type CatalogHTTPHandler struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewCatalogHTTPHandler(db *gorm.DB, logger *zap.Logger) *CatalogHTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHTTPHandler{db: db, logger: logger}
}

func forbid(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{
		"success": false,
		"code":    ledger.CodeUnauthorizedActor,
		"error":   "permission denied",
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   message,
	})
}

func dbError(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   "already exists",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   "database error",
	})
}

// brandAllowed reports whether the actor may manage entities of brandID.
func brandAllowed(actor ledger.Actor, brandID uuid.UUID) bool {
	if actor.IsSystemAdmin() {
		return true
	}
	return actor.Role == models.RoleBrandManager &&
		actor.BrandID != nil && *actor.BrandID == brandID
}

// Brands

type createBrandRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *CatalogHTTPHandler) CreateBrand(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	if !actor.IsSystemAdmin() {
		forbid(c)
		return
	}

	var req createBrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "brand name is required")
		return
	}

	brand := models.Brand{ID: uuid.New(), Name: req.Name, IsActive: true}
	if err := s.db.WithContext(c.Request.Context()).Create(&brand).Error; err != nil {
		dbError(c, err)
		return
	}

	success(c, http.StatusCreated, brand)
}

func (s *CatalogHTTPHandler) ListBrands(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	query := s.db.WithContext(c.Request.Context()).Model(&models.Brand{})
	if !actor.IsSystemAdmin() {
		if actor.BrandID == nil {
			success(c, http.StatusOK, []models.Brand{})
			return
		}
		query = query.Where("id = ?", *actor.BrandID)
	}

	var brands []models.Brand
	if err := query.Order("created_at DESC").Find(&brands).Error; err != nil {
		dbError(c, err)
		return
	}

	success(c, http.StatusOK, brands)
}

// Stores

type createStoreRequest struct {
	BrandID uuid.UUID `json:"brand_id" binding:"required"`
	Name    string    `json:"name" binding:"required"`
	Code    string    `json:"code" binding:"required"`
}

func (s *CatalogHTTPHandler) CreateStore(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req createStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "brand_id, name and code are required")
		return
	}
	if !brandAllowed(actor, req.BrandID) {
		forbid(c)
		return
	}

	store := models.Store{
		ID:       uuid.New(),
		BrandID:  req.BrandID,
		Name:     req.Name,
		Code:     req.Code,
		IsActive: true,
	}
	if err := s.db.WithContext(c.Request.Context()).Create(&store).Error; err != nil {
		dbError(c, err)
		return
	}

	success(c, http.StatusCreated, store)
}

func (s *CatalogHTTPHandler) ListStores(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	query := s.db.WithContext(c.Request.Context()).Model(&models.Store{})
	if !actor.IsSystemAdmin() {
		if actor.BrandID == nil {
			success(c, http.StatusOK, []models.Store{})
			return
		}
		query = query.Where("brand_id = ?", *actor.BrandID)
	}
	if brandID := parseUUIDQuery(c, "brand_id"); brandID != nil {
		query = query.Where("brand_id = ?", *brandID)
	}

	var stores []models.Store
	if err := query.Order("created_at DESC").Find(&stores).Error; err != nil {
		dbError(c, err)
		return
	}

	success(c, http.StatusOK, stores)
}

// Products

type createProductRequest struct {
	BrandID    uuid.UUID  `json:"brand_id" binding:"required"`
	SKU        string     `json:"sku" binding:"required"`
	Name       string     `json:"name" binding:"required"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
}

func (s *CatalogHTTPHandler) CreateProduct(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "brand_id, sku and name are required")
		return
	}
	if !brandAllowed(actor, req.BrandID) {
		forbid(c)
		return
	}

	if req.CategoryID != nil {
		var category models.Category
		err := s.db.WithContext(c.Request.Context()).
			First(&category, "id = ?", *req.CategoryID).Error
		if err != nil || category.BrandID != req.BrandID {
			badRequest(c, "category must belong to the same brand as the product")
			return
		}
	}

	product := models.Product{
		ID:         uuid.New(),
		BrandID:    req.BrandID,
		SKU:        req.SKU,
		Name:       req.Name,
		CategoryID: req.CategoryID,
		IsActive:   true,
	}
	if err := s.db.WithContext(c.Request.Context()).Create(&product).Error; err != nil {
		dbError(c, err)
		return
	}

	success(c, http.StatusCreated, product)
}

func (s *CatalogHTTPHandler) ListProducts(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	query := s.db.WithContext(c.Request.Context()).Model(&models.Product{})
	if !actor.IsSystemAdmin() {
		if actor.BrandID == nil {
			success(c, http.StatusOK, []models.Product{})
			return
		}
		query = query.Where("brand_id = ?", *actor.BrandID)
	}
	if search := c.Query("search"); search != "" {
		term := "%" + search + "%"
		query = query.Where("sku ILIKE ? OR name ILIKE ?", term, term)
	}

	var products []models.Product
	if err := query.Order("created_at DESC").Find(&products).Error; err != nil {
		dbError(c, err)
		return
	}

	success(c, http.StatusOK, products)
}

func (s *CatalogHTTPHandler) GetProduct(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		badRequest(c, "invalid product id")
		return
	}

	var product models.Product
	if err := s.db.WithContext(c.Request.Context()).
		Preload("Brand").Preload("Category").
		First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "product not found",
			})
			return
		}
		dbError(c, err)
		return
	}

	if !actor.IsSystemAdmin() && (actor.BrandID == nil || *actor.BrandID != product.BrandID) {
		forbid(c)
		return
	}

	success(c, http.StatusOK, product)
}
