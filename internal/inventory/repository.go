package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/vendorportal/pkg/enums"
	"github.com/angelmondragon/vendorportal/pkg/pagination"
)

// ErrVersionConflict means the row changed between read and write.
var ErrVersionConflict = errors.New("inventory: version conflict")

const availableExpr = "(quantity - reserved_quantity)"

// Repository persists items, variants and reservations.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func preloadVariants(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

// CreateItem inserts the item and its variants.
func (r *Repository) CreateItem(ctx context.Context, item *Item) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Omit(clause.Associations).Create(item).Error; err != nil {
		return err
	}
	if len(item.Variants) == 0 {
		return nil
	}
	return tx.Create(&item.Variants).Error
}

// FindItem loads a vendor's item with its variants.
func (r *Repository) FindItem(ctx context.Context, vendorID string, id uuid.UUID) (*Item, error) {
	var item Item
	err := r.db.WithContext(ctx).
		Preload("Variants", preloadVariants).
		Where("vendor_id = ?", vendorID).
		First(&item, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

type itemListQuery struct {
	VendorID   string
	Filters    ListInput
	Pagination pagination.Params
}

// ListItems pages a vendor's items newest first.
func (r *Repository) ListItems(ctx context.Context, query itemListQuery) ([]Item, string, error) {
	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).
		Model(&Item{}).
		Preload("Variants", preloadVariants).
		Where("vendor_id = ?", query.VendorID)

	filter := query.Filters
	if filter.Status != nil {
		qb = qb.Where("status = ?", *filter.Status)
	}
	if filter.StockStatus != nil {
		switch *filter.StockStatus {
		case enums.StockStatusOutOfStock:
			qb = qb.Where(availableExpr + " <= 0")
		case enums.StockStatusLowStock:
			qb = qb.Where(availableExpr+" > 0 AND "+availableExpr+" <= low_stock_threshold")
		case enums.StockStatusInStock:
			qb = qb.Where(availableExpr + " > low_stock_threshold")
		}
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(name) LIKE ? OR LOWER(COALESCE(sku, '')) LIKE ?)", pattern, pattern)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []Item
	err = qb.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(query.Pagination.Limit)).
		Find(&rows).
		Error
	if err != nil {
		return nil, "", err
	}

	rows, more := pagination.Trim(rows, query.Pagination.Limit)
	nextCursor := ""
	if more {
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}

// ListAllItems returns every item a vendor owns, without variants.
func (r *Repository) ListAllItems(ctx context.Context, vendorID string) ([]Item, error) {
	var rows []Item
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Find(&rows).
		Error
	return rows, err
}

// UpdateItem writes fields when the stored version still matches and bumps it.
func (r *Repository) UpdateItem(ctx context.Context, id uuid.UUID, version int, fields map[string]any) error {
	fields["version"] = version + 1
	res := r.db.WithContext(ctx).
		Model(&Item{}).
		Where("id = ? AND version = ?", id, version).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// UpdateVariant writes variant fields under the same version guard as UpdateItem.
func (r *Repository) UpdateVariant(ctx context.Context, id uuid.UUID, version int, fields map[string]any) error {
	fields["version"] = version + 1
	res := r.db.WithContext(ctx).
		Model(&Variant{}).
		Where("id = ? AND version = ?", id, version).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// DeleteItem removes a vendor's item; variants and reservations cascade.
func (r *Repository) DeleteItem(ctx context.Context, vendorID string, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("item_id = ?", id).Delete(&Reservation{}).Error; err != nil {
		return false, err
	}
	if err := tx.Where("item_id = ?", id).Delete(&Variant{}).Error; err != nil {
		return false, err
	}
	res := tx.Where("id = ? AND vendor_id = ?", id, vendorID).Delete(&Item{})
	return res.RowsAffected > 0, res.Error
}

// CountHeld returns how many held reservations reference the item.
func (r *Repository) CountHeld(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("item_id = ? AND status = ?", itemID, enums.ReservationStatusHeld).
		Count(&count).
		Error
	return count, err
}

// CreateReservation inserts a reservation row.
func (r *Repository) CreateReservation(ctx context.Context, reservation *Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

// FindReservation loads a reservation owned by the vendor.
func (r *Repository) FindReservation(ctx context.Context, vendorID string, id uuid.UUID) (*Reservation, error) {
	var reservation Reservation
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		First(&reservation, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// TransitionReservation moves a reservation out of from; it reports false when another writer got there first.
func (r *Repository) TransitionReservation(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": now})
	return res.RowsAffected > 0, res.Error
}

// ListExpired returns held reservations whose deadline passed, oldest first.
func (r *Repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]Reservation, error) {
	var rows []Reservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", enums.ReservationStatusHeld, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	return rows, err
}

// ListExpiredForItem returns the item's held reservations whose deadline passed.
func (r *Repository) ListExpiredForItem(ctx context.Context, itemID uuid.UUID, now time.Time) ([]Reservation, error) {
	var rows []Reservation
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND status = ? AND expires_at <= ?", itemID, enums.ReservationStatusHeld, now).
		Order("expires_at ASC").
		Find(&rows).
		Error
	return rows, err
}
