package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"inventra-system/internal/database/models"
	"inventra-system/internal/utils"
)

type AuthHTTPHandler struct {
	db       *gorm.DB
	tokenTTL time.Duration
	logger   *zap.Logger
}

func NewAuthHTTPHandler(db *gorm.DB, tokenTTL time.Duration, logger *zap.Logger) *AuthHTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHTTPHandler{db: db, tokenTTL: tokenTTL, logger: logger}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *AuthHTTPHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username and password are required")
		return
	}

	var user models.User
	err := s.db.WithContext(c.Request.Context()).
		First(&user, "username = ? AND is_active = true", req.Username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.unauthorized(c)
			return
		}
		dbError(c, err)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		s.unauthorized(c)
		return
	}

	token, expiresAt, err := utils.GenerateToken(user.ID, user.Username, user.Role, user.BrandID, s.tokenTTL)
	if err != nil {
		s.logger.Error("token generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "could not issue token",
		})
		return
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.db.WithContext(c.Request.Context()).Save(&user).Error; err != nil {
		s.logger.Warn("failed to record last login", zap.Error(err))
	}

	success(c, http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
			"brand_id": user.BrandID,
		},
	})
}

func (s *AuthHTTPHandler) unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   "invalid credentials",
	})
}
