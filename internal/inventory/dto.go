package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorportal/pkg/enums"
	"github.com/angelmondragon/vendorportal/pkg/pagination"
	"github.com/angelmondragon/vendorportal/pkg/types"
)

// VariantInput describes a variant supplied on create.
type VariantInput struct {
	Name     string           `json:"name" validate:"required,max=120"`
	SKU      *string          `json:"sku,omitempty" validate:"omitempty,max=64"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Quantity int              `json:"quantity" validate:"gte=0"`
}

// CreateItemInput is the payload for POST /api/vendor/stock.
type CreateItemInput struct {
	Name              string                `json:"name" validate:"required,max=200"`
	SKU               *string               `json:"sku,omitempty" validate:"omitempty,max=64"`
	ProductID         *string               `json:"productId,omitempty"`
	Description       string                `json:"description" validate:"max=2000"`
	Category          string                `json:"category" validate:"max=120"`
	ImageURL          string                `json:"imageUrl" validate:"omitempty,url"`
	Price             decimal.Decimal       `json:"price"`
	Currency          enums.Currency        `json:"currency,omitempty"`
	Quantity          int                   `json:"quantity" validate:"gte=0"`
	LowStockThreshold *int                  `json:"lowStockThreshold,omitempty" validate:"omitempty,gte=0"`
	Status            enums.InventoryStatus `json:"status,omitempty"`
	Variants          []VariantInput        `json:"variants,omitempty" validate:"omitempty,dive"`
}

// UpdateItemInput carries optional field changes; nil leaves a field untouched.
type UpdateItemInput struct {
	Name              *string                `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	SKU               *string                `json:"sku,omitempty" validate:"omitempty,max=64"`
	ProductID         *string                `json:"productId,omitempty"`
	Description       *string                `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category          *string                `json:"category,omitempty" validate:"omitempty,max=120"`
	ImageURL          *string                `json:"imageUrl,omitempty" validate:"omitempty,url"`
	Price             *decimal.Decimal       `json:"price,omitempty"`
	LowStockThreshold *int                   `json:"lowStockThreshold,omitempty" validate:"omitempty,gte=0"`
	Status            *enums.InventoryStatus `json:"status,omitempty"`
}

// StockUpdateInput is the body of a stock PATCH.
type StockUpdateInput struct {
	Quantity  int                  `json:"quantity" validate:"gte=0"`
	Operation enums.StockOperation `json:"operation" validate:"required"`
}

// ReserveInput places a hold on an item, or on one variant when VariantID is set.
type ReserveInput struct {
	Quantity  int        `json:"quantity" validate:"required,gt=0"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
	Reference string     `json:"reference,omitempty" validate:"max=120"`
	// TTL overrides the configured hold duration when positive.
	TTL time.Duration `json:"-"`
}

// ListInput filters a vendor's inventory listing.
type ListInput struct {
	Status      *enums.InventoryStatus
	StockStatus *enums.StockStatus
	Search      string
	Pagination  pagination.Params
}

// VariantDTO is the response shape of a variant.
type VariantDTO struct {
	ID                uuid.UUID         `json:"id"`
	Name              string            `json:"name"`
	SKU               *string           `json:"sku,omitempty"`
	Price             *decimal.Decimal  `json:"price,omitempty"`
	Quantity          int               `json:"quantity"`
	ReservedQuantity  int               `json:"reservedQuantity"`
	AvailableQuantity int               `json:"availableQuantity"`
	StockStatus       enums.StockStatus `json:"stockStatus"`
	Version           int               `json:"version"`
}

// ItemDTO is the response shape of an inventory item.
type ItemDTO struct {
	ID                uuid.UUID             `json:"id"`
	VendorID          string                `json:"vendorId"`
	ProductID         *string               `json:"productId,omitempty"`
	Name              string                `json:"name"`
	SKU               *string               `json:"sku,omitempty"`
	Description       string                `json:"description,omitempty"`
	Category          string                `json:"category,omitempty"`
	ImageURL          string                `json:"imageUrl,omitempty"`
	Price             decimal.Decimal       `json:"price"`
	Currency          enums.Currency        `json:"currency"`
	Quantity          int                   `json:"quantity"`
	ReservedQuantity  int                   `json:"reservedQuantity"`
	AvailableQuantity int                   `json:"availableQuantity"`
	LowStockThreshold int                   `json:"lowStockThreshold"`
	Status            enums.InventoryStatus `json:"status"`
	StockStatus       enums.StockStatus     `json:"stockStatus"`
	Variants          []VariantDTO          `json:"variants"`
	Version           int                   `json:"version"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

// ReservationDTO is the response shape of a reservation.
type ReservationDTO struct {
	ID        uuid.UUID               `json:"id"`
	ItemID    uuid.UUID               `json:"itemId"`
	VariantID *uuid.UUID              `json:"variantId,omitempty"`
	Quantity  int                     `json:"quantity"`
	Status    enums.ReservationStatus `json:"status"`
	Reference string                  `json:"reference,omitempty"`
	ExpiresAt time.Time               `json:"expiresAt"`
	CreatedAt time.Time               `json:"createdAt"`
}

// NewItemDTO maps a stored item to its response shape.
func NewItemDTO(item *Item) *ItemDTO {
	if item == nil {
		return nil
	}
	available := Available(item.Quantity, item.ReservedQuantity)
	dto := &ItemDTO{
		ID:                item.ID,
		VendorID:          item.VendorID,
		ProductID:         item.ProductID,
		Name:              item.Name,
		SKU:               item.SKU,
		Description:       item.Description,
		Category:          item.Category,
		ImageURL:          item.ImageURL,
		Price:             item.Price,
		Currency:          item.Currency,
		Quantity:          item.Quantity,
		ReservedQuantity:  item.ReservedQuantity,
		AvailableQuantity: available,
		LowStockThreshold: item.LowStockThreshold,
		Status:            item.Status,
		StockStatus:       DeriveStockStatus(available, item.LowStockThreshold),
		Variants:          make([]VariantDTO, 0, len(item.Variants)),
		Version:           item.Version,
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
	}
	for _, variant := range item.Variants {
		dto.Variants = append(dto.Variants, newVariantDTO(variant, item.LowStockThreshold))
	}
	return dto
}

func newVariantDTO(variant Variant, threshold int) VariantDTO {
	available := Available(variant.Quantity, variant.ReservedQuantity)
	dto := VariantDTO{
		ID:                variant.ID,
		Name:              variant.Name,
		SKU:               variant.SKU,
		Quantity:          variant.Quantity,
		ReservedQuantity:  variant.ReservedQuantity,
		AvailableQuantity: available,
		StockStatus:       DeriveStockStatus(available, threshold),
		Version:           variant.Version,
	}
	if variant.Price.Valid {
		price := variant.Price.Decimal
		dto.Price = &price
	}
	return dto
}

// NewReservationDTO maps a stored reservation to its response shape.
func NewReservationDTO(reservation *Reservation) *ReservationDTO {
	if reservation == nil {
		return nil
	}
	return &ReservationDTO{
		ID:        reservation.ID,
		ItemID:    reservation.ItemID,
		VariantID: reservation.VariantID,
		Quantity:  reservation.Quantity,
		Status:    reservation.Status,
		Reference: reservation.Reference,
		ExpiresAt: reservation.ExpiresAt,
		CreatedAt: reservation.CreatedAt,
	}
}

// NewPublicProduct renders the buyer-facing view of an item.
func NewPublicProduct(item *Item) types.PublicProduct {
	available := Available(item.Quantity, item.ReservedQuantity)
	if item.Status != enums.InventoryStatusActive {
		available = 0
	}
	return types.PublicProduct{
		ID:          item.ID.String(),
		Name:        item.Name,
		Price:       item.Price,
		Available:   available,
		StockStatus: DeriveStockStatus(available, item.LowStockThreshold),
		ImageURL:    item.ImageURL,
	}
}
