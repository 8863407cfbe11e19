package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorportal/pkg/enums"
)

// Item is the single stock record for a vendor product.
type Item struct {
	ID                uuid.UUID             `gorm:"column:id;type:text;primaryKey"`
	VendorID          string                `gorm:"column:vendor_id;not null"`
	ProductID         *string               `gorm:"column:product_id"`
	Name              string                `gorm:"column:name;not null"`
	SKU               *string               `gorm:"column:sku"`
	Description       string                `gorm:"column:description"`
	Category          string                `gorm:"column:category"`
	ImageURL          string                `gorm:"column:image_url"`
	Price             decimal.Decimal       `gorm:"column:price;type:numeric(14,2)"`
	Currency          enums.Currency        `gorm:"column:currency"`
	Quantity          int                   `gorm:"column:quantity"`
	ReservedQuantity  int                   `gorm:"column:reserved_quantity"`
	LowStockThreshold int                   `gorm:"column:low_stock_threshold"`
	Status            enums.InventoryStatus `gorm:"column:status"`
	Version           int                   `gorm:"column:version"`
	CreatedAt         time.Time             `gorm:"column:created_at"`
	UpdatedAt         time.Time             `gorm:"column:updated_at"`
	Variants          []Variant             `gorm:"foreignKey:ItemID"`
}

func (Item) TableName() string { return "inventory_items" }

// HasVariants reports whether stock is tracked per variant.
func (i Item) HasVariants() bool { return len(i.Variants) > 0 }

// Variant is a sellable option of an item with its own counts.
type Variant struct {
	ID               uuid.UUID           `gorm:"column:id;type:text;primaryKey"`
	ItemID           uuid.UUID           `gorm:"column:item_id;type:text;not null"`
	Name             string              `gorm:"column:name;not null"`
	SKU              *string             `gorm:"column:sku"`
	Price            decimal.NullDecimal `gorm:"column:price;type:numeric(14,2)"`
	Quantity         int                 `gorm:"column:quantity"`
	ReservedQuantity int                 `gorm:"column:reserved_quantity"`
	Version          int                 `gorm:"column:version"`
	CreatedAt        time.Time           `gorm:"column:created_at"`
	UpdatedAt        time.Time           `gorm:"column:updated_at"`
}

func (Variant) TableName() string { return "inventory_variants" }

// Reservation is a time-boxed hold against an item or one of its variants.
type Reservation struct {
	ID        uuid.UUID               `gorm:"column:id;type:text;primaryKey"`
	VendorID  string                  `gorm:"column:vendor_id;not null"`
	ItemID    uuid.UUID               `gorm:"column:item_id;type:text;not null"`
	VariantID *uuid.UUID              `gorm:"column:variant_id;type:text"`
	Quantity  int                     `gorm:"column:quantity"`
	Status    enums.ReservationStatus `gorm:"column:status"`
	Reference string                  `gorm:"column:reference"`
	ExpiresAt time.Time               `gorm:"column:expires_at"`
	CreatedAt time.Time               `gorm:"column:created_at"`
	UpdatedAt time.Time               `gorm:"column:updated_at"`
}

func (Reservation) TableName() string { return "inventory_reservations" }

// Expired reports whether a held reservation has passed its deadline.
func (r Reservation) Expired(now time.Time) bool {
	return r.Status == enums.ReservationStatusHeld && !now.Before(r.ExpiresAt)
}
