package types

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorportal/pkg/enums"
)

// Vendor mirrors the seller account returned by the backend API.
type Vendor struct {
	ID            string    `json:"id"`
	BusinessName  string    `json:"businessName"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	LogoURL       string    `json:"logoUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// PublicProduct is the buyer-facing view of an inventory item.
type PublicProduct struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Price       decimal.Decimal   `json:"price"`
	Available   int               `json:"available"`
	StockStatus enums.StockStatus `json:"stockStatus"`
	ImageURL    string            `json:"imageUrl,omitempty"`
}

// Product is a catalog entry owned by the backend API.
type Product struct {
	ID          string          `json:"id"`
	VendorID    string          `json:"vendorId"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category,omitempty"`
	Images      []string        `json:"images,omitempty"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Transaction is a single wallet ledger row.
type Transaction struct {
	ID          string                `json:"id"`
	Type        enums.TransactionType `json:"type"`
	Amount      decimal.Decimal       `json:"amount"`
	Currency    enums.Currency        `json:"currency"`
	Description string                `json:"description,omitempty"`
	Reference   string                `json:"reference,omitempty"`
	Status      string                `json:"status"`
	CreatedAt   time.Time             `json:"createdAt"`
}

// PublicInventoryLink is a shareable storefront slug that exposes selected inventory.
type PublicInventoryLink struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	InventoryIDs []string  `json:"inventoryIds"`
	IsActive     bool      `json:"isActive"`
	ExpiresAt    time.Time `json:"expiresAt,omitzero"`
}
