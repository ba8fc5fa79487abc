package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"inventra-system/internal/database/models"
	"inventra-system/internal/gateway/middleware"
	"inventra-system/internal/ledger"
)

const (
	stockCachePrefix = "inventory:stock:"
	lowStockCacheKey = "inventory:low-stock"
	cacheTTLShort    = 5 * time.Minute
)

type InventoryHTTPHandler struct {
	engine *ledger.Engine
	redis  *redis.Client
	logger *zap.Logger
}

func NewInventoryHTTPHandler(engine *ledger.Engine, redisClient *redis.Client, logger *zap.Logger) *InventoryHTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHTTPHandler{
		engine: engine,
		redis:  redisClient,
		logger: logger,
	}
}

// Helper functions

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func fail(c *gin.Context, err error) {
	if rej, ok := ledger.AsRejection(err); ok {
		c.JSON(rejectionStatus(rej.Code), gin.H{
			"success": false,
			"code":    rej.Code,
			"error":   rej.Message,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   "internal error",
	})
}

func rejectionStatus(code string) int {
	switch code {
	case ledger.CodeUnauthorizedActor:
		return http.StatusForbidden
	case ledger.CodeBalanceNotFound:
		return http.StatusNotFound
	case ledger.CodeDuplicateBalance:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func actorOrAbort(c *gin.Context) (ledger.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "no authenticated actor",
		})
	}
	return actor, ok
}

func parseUUIDParam(c *gin.Context, param string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(param))
}

func parseUUIDQuery(c *gin.Context, param string) *uuid.UUID {
	str := c.Query(param)
	if str == "" {
		return nil
	}
	id, err := uuid.Parse(str)
	if err != nil {
		return nil
	}
	return &id
}

func parsePagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}

// actorScope keys cache entries per brand so one brand's view is never served
// to another. Admins share one unscoped view.
func actorScope(actor ledger.Actor) string {
	if actor.IsSystemAdmin() {
		return "admin"
	}
	if actor.BrandID == nil {
		return "none"
	}
	return actor.BrandID.String()
}

func (s *InventoryHTTPHandler) invalidateCaches(ctx context.Context, stockIDs ...uuid.UUID) {
	if s.redis == nil {
		return
	}
	patterns := []string{lowStockCacheKey + "*"}
	for _, id := range stockIDs {
		patterns = append(patterns, stockCachePrefix+id.String()+"*")
	}
	for _, pattern := range patterns {
		keys, err := s.redis.Keys(ctx, pattern).Result()
		if err != nil {
			s.logger.Warn("cache invalidation failed", zap.Error(err))
			continue
		}
		if len(keys) == 0 {
			continue
		}
		if err := s.redis.Del(ctx, keys...).Err(); err != nil {
			s.logger.Warn("cache invalidation failed", zap.Error(err))
		}
	}
}

// Movements

func (s *InventoryHTTPHandler) ApplyMovement(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req ledger.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request body: " + err.Error(),
		})
		return
	}

	result, err := s.engine.ApplyMovement(c.Request.Context(), actor, req)
	if err != nil {
		fail(c, err)
		return
	}

	ids := make([]uuid.UUID, len(result.Stocks))
	for i, stock := range result.Stocks {
		ids[i] = stock.ID
	}
	s.invalidateCaches(c.Request.Context(), ids...)

	success(c, http.StatusCreated, result)
}

func (s *InventoryHTTPHandler) ListMovements(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	filter := s.movementFilter(c)
	movements, total, err := s.engine.ListMovements(c.Request.Context(), actor, filter)
	if err != nil {
		fail(c, err)
		return
	}

	success(c, http.StatusOK, gin.H{
		"movements":   movements,
		"total_count": total,
	})
}

func (s *InventoryHTTPHandler) PurgeMovements(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	filter := s.movementFilter(c)
	purged, err := s.engine.PurgeMovements(c.Request.Context(), actor, filter)
	if err != nil {
		fail(c, err)
		return
	}

	success(c, http.StatusOK, gin.H{"purged_count": purged})
}

func (s *InventoryHTTPHandler) movementFilter(c *gin.Context) ledger.MovementFilter {
	page, pageSize := parsePagination(c)
	var movementType *string
	if t := c.Query("movement_type"); models.ValidMovementType(t) {
		movementType = &t
	}
	return ledger.MovementFilter{
		StockID:      parseUUIDQuery(c, "stock_id"),
		ProductID:    parseUUIDQuery(c, "product_id"),
		StoreID:      parseUUIDQuery(c, "store_id"),
		MovementType: movementType,
		CreatedBy:    parseUUIDQuery(c, "created_by"),
		BrandID:      parseUUIDQuery(c, "brand_id"),
		Page:         page,
		PageSize:     pageSize,
	}
}

// Balances

func (s *InventoryHTTPHandler) CreateStock(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req ledger.CreateBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request body: " + err.Error(),
		})
		return
	}

	stock, err := s.engine.CreateBalance(c.Request.Context(), actor, req)
	if err != nil {
		fail(c, err)
		return
	}

	s.invalidateCaches(c.Request.Context(), stock.ID)
	success(c, http.StatusCreated, stock)
}

func (s *InventoryHTTPHandler) GetStock(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid stock id",
		})
		return
	}

	cacheKey := fmt.Sprintf("%s%s:%s", stockCachePrefix, id, actorScope(actor))
	if s.redis != nil {
		if cached, err := s.redis.Get(c.Request.Context(), cacheKey).Result(); err == nil {
			var payload gin.H
			if json.Unmarshal([]byte(cached), &payload) == nil {
				success(c, http.StatusOK, payload)
				return
			}
		}
	}

	stock, lerr := s.engine.GetBalance(c.Request.Context(), actor, id)
	if lerr != nil {
		fail(c, lerr)
		return
	}

	payload := gin.H{
		"stock":              stock,
		"available_quantity": stock.AvailableQuantity(),
		"is_below_minimum":   stock.IsBelowMinimum(),
	}
	if s.redis != nil {
		if raw, err := json.Marshal(payload); err == nil {
			_ = s.redis.Set(c.Request.Context(), cacheKey, raw, cacheTTLShort).Err()
		}
	}

	success(c, http.StatusOK, payload)
}

func (s *InventoryHTTPHandler) ListStocks(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	page, pageSize := parsePagination(c)
	stocks, total, err := s.engine.ListBalances(c.Request.Context(), actor, ledger.StockFilter{
		ProductID: parseUUIDQuery(c, "product_id"),
		StoreID:   parseUUIDQuery(c, "store_id"),
		BrandID:   parseUUIDQuery(c, "brand_id"),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		fail(c, err)
		return
	}

	success(c, http.StatusOK, gin.H{
		"stocks":      stocks,
		"total_count": total,
	})
}

type reservationRequest struct {
	Quantity int64 `json:"quantity"`
}

func (s *InventoryHTTPHandler) ReserveStock(c *gin.Context) {
	s.mutateReservation(c, s.engine.Reserve)
}

func (s *InventoryHTTPHandler) ReleaseStock(c *gin.Context) {
	s.mutateReservation(c, s.engine.Release)
}

func (s *InventoryHTTPHandler) mutateReservation(c *gin.Context, op func(context.Context, ledger.Actor, uuid.UUID, int64) (*models.Stock, error)) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid stock id",
		})
		return
	}

	var req reservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request body: " + err.Error(),
		})
		return
	}

	stock, lerr := op(c.Request.Context(), actor, id, req.Quantity)
	if lerr != nil {
		fail(c, lerr)
		return
	}

	s.invalidateCaches(c.Request.Context(), stock.ID)
	success(c, http.StatusOK, stock)
}

// Reports

func (s *InventoryHTTPHandler) ListLowStock(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	cacheKey := fmt.Sprintf("%s:%s:%s", lowStockCacheKey, actorScope(actor), c.Request.URL.RawQuery)
	if s.redis != nil {
		if cached, err := s.redis.Get(c.Request.Context(), cacheKey).Result(); err == nil {
			var payload gin.H
			if json.Unmarshal([]byte(cached), &payload) == nil {
				success(c, http.StatusOK, payload)
				return
			}
		}
	}

	page, pageSize := parsePagination(c)
	stocks, total, err := s.engine.LowStock(c.Request.Context(), actor, ledger.StockFilter{
		StoreID:  parseUUIDQuery(c, "store_id"),
		BrandID:  parseUUIDQuery(c, "brand_id"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		fail(c, err)
		return
	}

	payload := gin.H{
		"low_stocks":  stocks,
		"total_count": total,
	}
	if s.redis != nil {
		if raw, err := json.Marshal(payload); err == nil {
			_ = s.redis.Set(c.Request.Context(), cacheKey, raw, cacheTTLShort).Err()
		}
	}

	success(c, http.StatusOK, payload)
}

func (s *InventoryHTTPHandler) InventoryValue(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	value, err := s.engine.InventoryValue(c.Request.Context(), actor,
		parseUUIDQuery(c, "brand_id"), parseUUIDQuery(c, "store_id"))
	if err != nil {
		fail(c, err)
		return
	}

	success(c, http.StatusOK, gin.H{"total_value": value})
}
