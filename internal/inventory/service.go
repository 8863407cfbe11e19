package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorportal/pkg/config"
	"github.com/angelmondragon/vendorportal/pkg/db"
	"github.com/angelmondragon/vendorportal/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
	"github.com/angelmondragon/vendorportal/pkg/metrics"
	"github.com/angelmondragon/vendorportal/pkg/pagination"
	"github.com/angelmondragon/vendorportal/pkg/types"
)

const (
	maxWriteAttempts         = 5
	defaultLowStockThreshold = 5
	defaultReservationTTL    = 15 * time.Minute
)

// Service manages a vendor's stock records and the holds placed against them.
type Service interface {
	List(ctx context.Context, vendorID string, input ListInput) (*pagination.Page[ItemDTO], error)
	Get(ctx context.Context, vendorID string, id uuid.UUID) (*ItemDTO, error)
	Create(ctx context.Context, vendorID string, input CreateItemInput) (*ItemDTO, error)
	Update(ctx context.Context, vendorID string, id uuid.UUID, input UpdateItemInput) (*ItemDTO, error)
	Delete(ctx context.Context, vendorID string, id uuid.UUID) error
	AdjustStock(ctx context.Context, vendorID string, id uuid.UUID, input StockUpdateInput) (*ItemDTO, error)
	AdjustVariantStock(ctx context.Context, vendorID string, id, variantID uuid.UUID, input StockUpdateInput) (*ItemDTO, error)
	Reserve(ctx context.Context, vendorID string, id uuid.UUID, input ReserveInput) (*ReservationDTO, error)
	Commit(ctx context.Context, vendorID string, reservationID uuid.UUID) (*ReservationDTO, error)
	Release(ctx context.Context, vendorID string, reservationID uuid.UUID) (*ReservationDTO, error)
	ReleaseExpired(ctx context.Context, now time.Time, limit int) (int, error)
	Summary(ctx context.Context, vendorID string) (*Summary, error)
	Preview(ctx context.Context, vendorID string, id uuid.UUID) (*types.PublicProduct, error)
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	ttl      time.Duration
	metrics  *metrics.InventoryMetrics
	now      func() time.Time
}

// NewService constructs an inventory service instance.
func NewService(repo *Repository, dbClient *db.Client, cfg config.ReservationConfig, mx *metrics.InventoryMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultReservationTTL
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		ttl:      ttl,
		metrics:  mx,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// timestamp is truncated to the precision postgres stores so cursors compare exactly.
func (s *service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// mutate runs fn in a transaction, re-running it when a version guard loses a race.
func (s *service) mutate(ctx context.Context, operation string, fn func(repo *Repository) error) error {
	var err error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
			return fn(s.repo.WithTx(tx))
		})
		if !errors.Is(err, ErrVersionConflict) {
			break
		}
		s.metrics.Conflict()
	}
	if errors.Is(err, ErrVersionConflict) {
		err = pkgerrors.Wrap(pkgerrors.CodeConflict, err, "inventory was modified concurrently; retry the request")
	}
	err = normalizeError(err, operation)
	s.metrics.Mutation(operation, err)
	return err
}

func normalizeError(err error, operation string) error {
	if err == nil || pkgerrors.As(err) != nil {
		return err
	}
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sku already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inventory "+operation)
}

func loadItem(ctx context.Context, repo *Repository, vendorID string, id uuid.UUID) (*Item, error) {
	item, err := repo.FindItem(ctx, vendorID, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}
	return item, nil
}

func loadReservation(ctx context.Context, repo *Repository, vendorID string, id uuid.UUID) (*Reservation, error) {
	reservation, err := repo.FindReservation(ctx, vendorID, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}
	return reservation, nil
}

func findVariant(item *Item, id uuid.UUID) (*Variant, error) {
	for i := range item.Variants {
		if item.Variants[i].ID == id {
			return &item.Variants[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
}

func (s *service) List(ctx context.Context, vendorID string, input ListInput) (*pagination.Page[ItemDTO], error) {
	if _, err := pagination.ParseCursor(input.Pagination.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListItems(ctx, itemListQuery{
		VendorID:   vendorID,
		Filters:    input,
		Pagination: input.Pagination,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}
	page := &pagination.Page[ItemDTO]{
		Items:      make([]ItemDTO, 0, len(rows)),
		NextCursor: next,
	}
	for i := range rows {
		page.Items = append(page.Items, *NewItemDTO(&rows[i]))
	}
	return page, nil
}

func (s *service) Get(ctx context.Context, vendorID string, id uuid.UUID) (*ItemDTO, error) {
	item, err := loadItem(ctx, s.repo, vendorID, id)
	if err != nil {
		return nil, err
	}
	return NewItemDTO(item), nil
}

func (s *service) Preview(ctx context.Context, vendorID string, id uuid.UUID) (*types.PublicProduct, error) {
	item, err := loadItem(ctx, s.repo, vendorID, id)
	if err != nil {
		return nil, err
	}
	product := NewPublicProduct(item)
	return &product, nil
}

func (s *service) Summary(ctx context.Context, vendorID string) (*Summary, error) {
	items, err := s.repo.ListAllItems(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory summary")
	}
	summary := Summarize(items)
	return &summary, nil
}

func (s *service) Create(ctx context.Context, vendorID string, input CreateItemInput) (*ItemDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyNGN
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}
	status := input.Status
	if status == "" {
		status = enums.InventoryStatusActive
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be active, inactive or discontinued")
	}
	threshold := defaultLowStockThreshold
	if input.LowStockThreshold != nil {
		if *input.LowStockThreshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "lowStockThreshold must not be negative")
		}
		threshold = *input.LowStockThreshold
	}

	now := s.timestamp()
	item := &Item{
		ID:                uuid.New(),
		VendorID:          vendorID,
		ProductID:         blankToNil(input.ProductID),
		Name:              name,
		SKU:               blankToNil(input.SKU),
		Description:       strings.TrimSpace(input.Description),
		Category:          strings.TrimSpace(input.Category),
		ImageURL:          strings.TrimSpace(input.ImageURL),
		Price:             input.Price.Round(2),
		Currency:          currency,
		Quantity:          input.Quantity,
		LowStockThreshold: threshold,
		Status:            status,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if len(input.Variants) > 0 {
		item.Quantity = 0
		for i, in := range input.Variants {
			// Variants list by created_at; stagger them to keep input order.
			variant, err := newVariant(item.ID, in, now.Add(time.Duration(i)*time.Microsecond))
			if err != nil {
				return nil, err
			}
			item.Quantity += variant.Quantity
			item.Variants = append(item.Variants, *variant)
		}
	}

	if err := s.mutate(ctx, "create", func(repo *Repository) error {
		return repo.CreateItem(ctx, item)
	}); err != nil {
		return nil, err
	}
	return s.Get(ctx, vendorID, item.ID)
}

func newVariant(itemID uuid.UUID, in VariantInput, now time.Time) (*Variant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant name is required")
	}
	if in.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant quantity must not be negative")
	}
	variant := &Variant{
		ID:        uuid.New(),
		ItemID:    itemID,
		Name:      name,
		SKU:       blankToNil(in.SKU),
		Quantity:  in.Quantity,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant price must not be negative")
		}
		variant.Price.Decimal = in.Price.Round(2)
		variant.Price.Valid = true
	}
	return variant, nil
}

func (s *service) Update(ctx context.Context, vendorID string, id uuid.UUID, input UpdateItemInput) (*ItemDTO, error) {
	fields, err := updateFields(input)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return s.Get(ctx, vendorID, id)
	}

	if err := s.mutate(ctx, "update", func(repo *Repository) error {
		item, err := loadItem(ctx, repo, vendorID, id)
		if err != nil {
			return err
		}
		changes := make(map[string]any, len(fields)+2)
		for k, v := range fields {
			changes[k] = v
		}
		changes["updated_at"] = s.timestamp()
		return repo.UpdateItem(ctx, item.ID, item.Version, changes)
	}); err != nil {
		return nil, err
	}
	return s.Get(ctx, vendorID, id)
}

func updateFields(input UpdateItemInput) (map[string]any, error) {
	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be blank")
		}
		fields["name"] = name
	}
	if input.SKU != nil {
		fields["sku"] = blankToNil(input.SKU)
	}
	if input.ProductID != nil {
		fields["product_id"] = blankToNil(input.ProductID)
	}
	if input.Description != nil {
		fields["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		fields["category"] = strings.TrimSpace(*input.Category)
	}
	if input.ImageURL != nil {
		fields["image_url"] = strings.TrimSpace(*input.ImageURL)
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
		fields["price"] = input.Price.Round(2)
	}
	if input.LowStockThreshold != nil {
		if *input.LowStockThreshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "lowStockThreshold must not be negative")
		}
		fields["low_stock_threshold"] = *input.LowStockThreshold
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be active, inactive or discontinued")
		}
		fields["status"] = *input.Status
	}
	return fields, nil
}

func (s *service) Delete(ctx context.Context, vendorID string, id uuid.UUID) error {
	return s.mutate(ctx, "delete", func(repo *Repository) error {
		item, err := loadItem(ctx, repo, vendorID, id)
		if err != nil {
			return err
		}
		held, err := repo.CountHeld(ctx, item.ID)
		if err != nil {
			return err
		}
		if held > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item has active reservations").
				WithDetails(map[string]any{"heldReservations": held})
		}
		deleted, err := repo.DeleteItem(ctx, vendorID, item.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil
	})
}

func (s *service) AdjustStock(ctx context.Context, vendorID string, id uuid.UUID, input StockUpdateInput) (*ItemDTO, error) {
	if err := s.mutate(ctx, "adjust_stock", func(repo *Repository) error {
		item, err := loadItem(ctx, repo, vendorID, id)
		if err != nil {
			return err
		}
		if item.HasVariants() {
			return pkgerrors.New(pkgerrors.CodeValidation, "item tracks stock per variant; adjust a variant instead")
		}
		quantity, err := ApplyStockOperation(item.Quantity, input.Quantity, input.Operation)
		if err != nil {
			return err
		}
		return repo.UpdateItem(ctx, item.ID, item.Version, map[string]any{
			"quantity":          quantity,
			"reserved_quantity": ClampReserved(quantity, item.ReservedQuantity),
			"updated_at":        s.timestamp(),
		})
	}); err != nil {
		return nil, err
	}
	return s.Get(ctx, vendorID, id)
}

func (s *service) AdjustVariantStock(ctx context.Context, vendorID string, id, variantID uuid.UUID, input StockUpdateInput) (*ItemDTO, error) {
	if err := s.mutate(ctx, "adjust_variant_stock", func(repo *Repository) error {
		item, err := loadItem(ctx, repo, vendorID, id)
		if err != nil {
			return err
		}
		variant, err := findVariant(item, variantID)
		if err != nil {
			return err
		}
		quantity, err := ApplyStockOperation(variant.Quantity, input.Quantity, input.Operation)
		if err != nil {
			return err
		}
		return s.writeVariantCounts(ctx, repo, item, variant, quantity, ClampReserved(quantity, variant.ReservedQuantity))
	}); err != nil {
		return nil, err
	}
	return s.Get(ctx, vendorID, id)
}

// writeVariantCounts updates one variant and re-derives the parent totals from all variants.
func (s *service) writeVariantCounts(ctx context.Context, repo *Repository, item *Item, variant *Variant, quantity, reserved int) error {
	now := s.timestamp()
	if err := repo.UpdateVariant(ctx, variant.ID, variant.Version, map[string]any{
		"quantity":          quantity,
		"reserved_quantity": reserved,
		"updated_at":        now,
	}); err != nil {
		return err
	}
	totalQuantity, totalReserved := 0, 0
	for _, v := range item.Variants {
		if v.ID == variant.ID {
			totalQuantity += quantity
			totalReserved += reserved
			continue
		}
		totalQuantity += v.Quantity
		totalReserved += v.ReservedQuantity
	}
	return repo.UpdateItem(ctx, item.ID, item.Version, map[string]any{
		"quantity":          totalQuantity,
		"reserved_quantity": totalReserved,
		"updated_at":        now,
	})
}

func (s *service) Reserve(ctx context.Context, vendorID string, id uuid.UUID, input ReserveInput) (*ReservationDTO, error) {
	ttl := input.TTL
	if ttl <= 0 {
		ttl = s.ttl
	}

	var created *Reservation
	if err := s.mutate(ctx, "reserve", func(repo *Repository) error {
		item, err := loadItem(ctx, repo, vendorID, id)
		if err != nil {
			return err
		}
		now := s.timestamp()
		expired, err := s.expireOverdue(ctx, repo, item.ID, now)
		if err != nil {
			return err
		}
		if expired > 0 {
			if item, err = loadItem(ctx, repo, vendorID, id); err != nil {
				return err
			}
		}
		reservation := &Reservation{
			ID:        uuid.New(),
			VendorID:  vendorID,
			ItemID:    item.ID,
			Quantity:  input.Quantity,
			Status:    enums.ReservationStatusHeld,
			Reference: strings.TrimSpace(input.Reference),
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
			UpdatedAt: now,
		}

		switch {
		case item.HasVariants() && input.VariantID == nil:
			return pkgerrors.New(pkgerrors.CodeValidation, "variantId is required for items with variants")
		case item.HasVariants():
			variant, err := findVariant(item, *input.VariantID)
			if err != nil {
				return err
			}
			if err := CheckReservable(item.Status, variant.Quantity, variant.ReservedQuantity, input.Quantity); err != nil {
				return err
			}
			reservation.VariantID = &variant.ID
			if err := s.writeVariantCounts(ctx, repo, item, variant, variant.Quantity, variant.ReservedQuantity+input.Quantity); err != nil {
				return err
			}
		case input.VariantID != nil:
			return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		default:
			if err := CheckReservable(item.Status, item.Quantity, item.ReservedQuantity, input.Quantity); err != nil {
				return err
			}
			if err := repo.UpdateItem(ctx, item.ID, item.Version, map[string]any{
				"reserved_quantity": item.ReservedQuantity + input.Quantity,
				"updated_at":        now,
			}); err != nil {
				return err
			}
		}

		if err := repo.CreateReservation(ctx, reservation); err != nil {
			return err
		}
		created = reservation
		return nil
	}); err != nil {
		return nil, err
	}
	return NewReservationDTO(created), nil
}

func (s *service) Commit(ctx context.Context, vendorID string, reservationID uuid.UUID) (*ReservationDTO, error) {
	return s.settle(ctx, vendorID, reservationID, enums.ReservationStatusCommitted)
}

func (s *service) Release(ctx context.Context, vendorID string, reservationID uuid.UUID) (*ReservationDTO, error) {
	return s.settle(ctx, vendorID, reservationID, enums.ReservationStatusReleased)
}

// settle moves a held reservation to target. Repeating the same transition is a no-op.
// Committing a hold past its deadline expires it instead and reports a state conflict.
func (s *service) settle(ctx context.Context, vendorID string, reservationID uuid.UUID, target enums.ReservationStatus) (*ReservationDTO, error) {
	var settled *Reservation
	var lapsed bool
	if err := s.mutate(ctx, string(target), func(repo *Repository) error {
		lapsed = false
		reservation, err := loadReservation(ctx, repo, vendorID, reservationID)
		if err != nil {
			return err
		}
		if reservation.Status == target {
			settled = reservation
			return nil
		}
		if reservation.Status != enums.ReservationStatusHeld {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("reservation is already %s", reservation.Status))
		}
		if target == enums.ReservationStatusCommitted && reservation.Expired(s.timestamp()) {
			if err := s.transition(ctx, repo, reservation, enums.ReservationStatusExpired); err != nil {
				return err
			}
			lapsed = true
			return nil
		}
		if err := s.transition(ctx, repo, reservation, target); err != nil {
			return err
		}
		settled = reservation
		return nil
	}); err != nil {
		return nil, err
	}
	if lapsed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "reservation has expired")
	}
	return NewReservationDTO(settled), nil
}

// expireOverdue releases the item's lapsed holds so they stop counting against
// available stock before the sweeper reaches them.
func (s *service) expireOverdue(ctx context.Context, repo *Repository, itemID uuid.UUID, now time.Time) (int, error) {
	overdue, err := repo.ListExpiredForItem(ctx, itemID, now)
	if err != nil {
		return 0, err
	}
	for i := range overdue {
		if err := s.transition(ctx, repo, &overdue[i], enums.ReservationStatusExpired); err != nil {
			return 0, err
		}
	}
	return len(overdue), nil
}

// transition flips a held reservation and applies its effect on stock counts.
func (s *service) transition(ctx context.Context, repo *Repository, reservation *Reservation, target enums.ReservationStatus) error {
	now := s.timestamp()
	moved, err := repo.TransitionReservation(ctx, reservation.ID, enums.ReservationStatusHeld, target, now)
	if err != nil {
		return err
	}
	if !moved {
		return ErrVersionConflict
	}
	reservation.Status = target
	reservation.UpdatedAt = now

	item, err := loadItem(ctx, repo, reservation.VendorID, reservation.ItemID)
	if err != nil {
		return err
	}
	qty := reservation.Quantity

	if reservation.VariantID != nil {
		variant, err := findVariant(item, *reservation.VariantID)
		if err != nil {
			return err
		}
		quantity, reserved := variant.Quantity, releaseHeld(variant.ReservedQuantity, qty)
		if target == enums.ReservationStatusCommitted {
			quantity, reserved = commitHeld(variant.Quantity, variant.ReservedQuantity, qty)
		}
		return s.writeVariantCounts(ctx, repo, item, variant, quantity, reserved)
	}

	quantity, reserved := item.Quantity, releaseHeld(item.ReservedQuantity, qty)
	if target == enums.ReservationStatusCommitted {
		quantity, reserved = commitHeld(item.Quantity, item.ReservedQuantity, qty)
	}
	return repo.UpdateItem(ctx, item.ID, item.Version, map[string]any{
		"quantity":          quantity,
		"reserved_quantity": reserved,
		"updated_at":        now,
	})
}

// ReleaseExpired expires up to limit overdue holds and returns how many were released.
func (s *service) ReleaseExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = pagination.MaxLimit
	}
	overdue, err := s.repo.ListExpired(ctx, now, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired reservations")
	}

	released := 0
	var errs error
	for _, candidate := range overdue {
		id := candidate.ID
		var expired bool
		err := s.mutate(ctx, "expire", func(repo *Repository) error {
			expired = false
			reservation, err := loadReservation(ctx, repo, candidate.VendorID, id)
			if err != nil {
				return err
			}
			if reservation.Status != enums.ReservationStatusHeld {
				return nil
			}
			if err := s.transition(ctx, repo, reservation, enums.ReservationStatusExpired); err != nil {
				return err
			}
			expired = true
			return nil
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reservation %s: %w", id, err))
			continue
		}
		if expired {
			released++
		}
	}
	return released, errs
}

func blankToNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
