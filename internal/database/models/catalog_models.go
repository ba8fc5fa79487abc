package models

import (
	"time"

	"github.com/google/uuid"
)

// Role names used by the policy delegate. Permissions are resolved by the
// gateway, never by the ledger engine itself.
const (
	RoleSystemAdmin  = "system_admin"
	RoleBrandManager = "brand_manager"
	RoleStoreManager = "store_manager"
	RoleStaff        = "staff"
)

type Brand struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex" json:"name"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Stores   []Store   `gorm:"foreignKey:BrandID" json:"stores,omitempty"`
	Products []Product `gorm:"foreignKey:BrandID" json:"products,omitempty"`
}

type Category struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID   uuid.UUID  `gorm:"type:uuid;index;uniqueIndex:idx_category_brand_name" json:"brand_id"`
	Name      string     `gorm:"size:255;uniqueIndex:idx_category_brand_name" json:"name"`
	ParentID  *uuid.UUID `gorm:"type:uuid" json:"parent_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Brand  *Brand    `gorm:"foreignKey:BrandID" json:"brand,omitempty"`
	Parent *Category `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
}

type Product struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID    uuid.UUID  `gorm:"type:uuid;index;uniqueIndex:idx_product_brand_sku" json:"brand_id"`
	SKU        string     `gorm:"size:100;uniqueIndex:idx_product_brand_sku" json:"sku"`
	Name       string     `gorm:"size:255" json:"name"`
	CategoryID *uuid.UUID `gorm:"type:uuid" json:"category_id,omitempty"`
	IsActive   bool       `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Brand    *Brand    `gorm:"foreignKey:BrandID" json:"brand,omitempty"`
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Stocks   []Stock   `gorm:"foreignKey:ProductID" json:"stocks,omitempty"`
}

type Store struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID   uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_store_brand_code" json:"brand_id"`
	Name      string    `gorm:"size:255" json:"name"`
	Code      string    `gorm:"size:50;uniqueIndex:idx_store_brand_code" json:"code"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Brand  *Brand  `gorm:"foreignKey:BrandID" json:"brand,omitempty"`
	Stocks []Stock `gorm:"foreignKey:StoreID" json:"stocks,omitempty"`
}

type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string     `gorm:"size:100;uniqueIndex" json:"username"`
	Email     string     `gorm:"size:255;uniqueIndex" json:"email"`
	Password  string     `gorm:"size:255" json:"-"`
	Role      string     `gorm:"size:50" json:"role"`
	BrandID   *uuid.UUID `gorm:"type:uuid" json:"brand_id,omitempty"`
	IsActive  bool       `gorm:"default:true" json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Brand *Brand `gorm:"foreignKey:BrandID" json:"brand,omitempty"`
}
