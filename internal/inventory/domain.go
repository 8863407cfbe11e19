package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorportal/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
)

// ApplyStockOperation computes the new on-hand quantity. Subtract floors at zero.
func ApplyStockOperation(quantity, delta int, op enums.StockOperation) (int, error) {
	if delta < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	switch op {
	case enums.StockOperationAdd:
		return quantity + delta, nil
	case enums.StockOperationSubtract:
		if delta >= quantity {
			return 0, nil
		}
		return quantity - delta, nil
	case enums.StockOperationSet:
		return delta, nil
	default:
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "operation must be add, subtract or set")
	}
}

// Available is the sellable quantity: on hand minus held.
func Available(quantity, reserved int) int {
	if reserved >= quantity {
		return 0
	}
	return quantity - reserved
}

// ClampReserved keeps the held count within [0, quantity] after on-hand stock shrinks.
func ClampReserved(quantity, reserved int) int {
	if reserved < 0 {
		return 0
	}
	if reserved > quantity {
		return quantity
	}
	return reserved
}

// DeriveStockStatus buckets the available quantity against the low-stock threshold.
func DeriveStockStatus(available, threshold int) enums.StockStatus {
	switch {
	case available <= 0:
		return enums.StockStatusOutOfStock
	case available <= threshold:
		return enums.StockStatusLowStock
	default:
		return enums.StockStatusInStock
	}
}

// CheckReservable reports whether want units can be held out of the available stock.
func CheckReservable(status enums.InventoryStatus, quantity, reserved, want int) error {
	if want <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be positive")
	}
	if status != enums.InventoryStatusActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "item is not active").
			WithDetails(map[string]any{"status": status})
	}
	if available := Available(quantity, reserved); want > available {
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
			WithDetails(map[string]any{"requested": want, "available": available})
	}
	return nil
}

// releaseHeld returns reserved after giving back qty held units.
func releaseHeld(reserved, qty int) int {
	if qty >= reserved {
		return 0
	}
	return reserved - qty
}

// commitHeld removes qty sold units from both on-hand and held counts.
func commitHeld(quantity, reserved, qty int) (int, int) {
	newQuantity := quantity - qty
	if newQuantity < 0 {
		newQuantity = 0
	}
	return newQuantity, ClampReserved(newQuantity, releaseHeld(reserved, qty))
}

// Summary aggregates a vendor's inventory.
type Summary struct {
	ItemCount       int             `json:"itemCount"`
	TotalUnits      int             `json:"totalUnits"`
	ReservedUnits   int             `json:"reservedUnits"`
	AvailableUnits  int             `json:"availableUnits"`
	LowStockCount   int             `json:"lowStockCount"`
	OutOfStockCount int             `json:"outOfStockCount"`
	StockValue      decimal.Decimal `json:"stockValue"`
}

// Summarize folds items into a Summary. Stock value is price times on-hand quantity.
func Summarize(items []Item) Summary {
	summary := Summary{StockValue: decimal.Zero}
	for _, item := range items {
		summary.ItemCount++
		summary.TotalUnits += item.Quantity
		summary.ReservedUnits += item.ReservedQuantity
		available := Available(item.Quantity, item.ReservedQuantity)
		summary.AvailableUnits += available
		switch DeriveStockStatus(available, item.LowStockThreshold) {
		case enums.StockStatusOutOfStock:
			summary.OutOfStockCount++
		case enums.StockStatusLowStock:
			summary.LowStockCount++
		}
		summary.StockValue = summary.StockValue.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return summary
}
