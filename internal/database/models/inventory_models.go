package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Movement types recorded in the stock ledger.
const (
	MovementInbound    = "INBOUND"
	MovementOutbound   = "OUTBOUND"
	MovementTransfer   = "TRANSFER"
	MovementAdjustment = "ADJUSTMENT"
)

// Stock is the balance row for one product at one store. Quantities are only
// ever mutated through the ledger engine, inside a transaction that also
// appends the matching StockMovement rows.
type Stock struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID         uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_stock_product_store" json:"product_id"`
	StoreID           uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_stock_product_store" json:"store_id"`
	QuantityOnHand    int64           `json:"quantity_on_hand"`
	ReservedQuantity  int64           `json:"reserved_quantity"`
	MinimumStockLevel int64           `json:"minimum_stock_level"`
	UnitCost          decimal.Decimal `gorm:"type:numeric(14,4)" json:"unit_cost"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Store   *Store   `gorm:"foreignKey:StoreID" json:"store,omitempty"`
}

// AvailableQuantity is on-hand minus reserved, floored at zero.
func (s *Stock) AvailableQuantity() int64 {
	if avail := s.QuantityOnHand - s.ReservedQuantity; avail > 0 {
		return avail
	}
	return 0
}

// IsBelowMinimum reports whether the balance has dropped under its reorder level.
func (s *Stock) IsBelowMinimum() bool {
	return s.QuantityOnHand < s.MinimumStockLevel
}

// StockMovement is one append-only ledger row. The integer primary key is
// assigned by the database in commit order, which gives a stable tie-break
// when movements share a created_at timestamp. Rows are never updated;
// deletion happens only through the privileged purge path.
type StockMovement struct {
	ID                 int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	StockID            uuid.UUID        `gorm:"type:uuid;index" json:"stock_id"`
	MovementType       string           `gorm:"size:20;index" json:"movement_type"`
	Quantity           int64            `json:"quantity"`
	ReferenceNumber    string           `gorm:"size:100;index" json:"reference_number"`
	Notes              string           `gorm:"type:text" json:"notes"`
	CreatedBy          uuid.UUID        `gorm:"type:uuid;index" json:"created_by"`
	DestinationStockID *uuid.UUID       `gorm:"type:uuid" json:"destination_stock_id,omitempty"`
	UnitCost           *decimal.Decimal `gorm:"type:numeric(14,4)" json:"unit_cost,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`

	Stock            *Stock `gorm:"foreignKey:StockID" json:"stock,omitempty"`
	DestinationStock *Stock `gorm:"foreignKey:DestinationStockID" json:"destination_stock,omitempty"`
}

// ValidMovementType reports whether t is one of the four ledger movement types.
func ValidMovementType(t string) bool {
	switch t {
	case MovementInbound, MovementOutbound, MovementTransfer, MovementAdjustment:
		return true
	}
	return false
}
