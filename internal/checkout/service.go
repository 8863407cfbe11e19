package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/vendorportal/internal/inventory"
	"github.com/angelmondragon/vendorportal/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
	"github.com/angelmondragon/vendorportal/pkg/logger"
	"github.com/angelmondragon/vendorportal/pkg/paystack"
)

const (
	referencePrefix   = "vp_"
	defaultSessionTTL = 24 * time.Hour
	maxLines          = 50
)

// Service reserves stock for a cart and settles it against the payment gateway.
type Service interface {
	Initialize(ctx context.Context, vendorID string, input CheckoutInput) (*InitializeResult, error)
	Verify(ctx context.Context, vendorID, reference string) (*VerifyResult, error)
	HandleWebhook(ctx context.Context, event *paystack.Event) error
}

// LineInput is one cart line.
type LineInput struct {
	InventoryID uuid.UUID  `json:"inventoryId" validate:"required"`
	VariantID   *uuid.UUID `json:"variantId,omitempty"`
	Quantity    int        `json:"quantity" validate:"required,gt=0"`
}

// CheckoutInput is the payload for POST /api/checkout/initialize.
type CheckoutInput struct {
	Email       string      `json:"email" validate:"required,email"`
	Items       []LineInput `json:"items" validate:"required,min=1,dive"`
	CallbackURL string      `json:"callbackUrl,omitempty" validate:"omitempty,url"`
}

// InitializeResult is returned to the browser for the redirect.
type InitializeResult struct {
	Reference        string          `json:"reference"`
	AuthorizationURL string          `json:"authorizationUrl"`
	AccessCode       string          `json:"accessCode"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	ReservationIDs   []uuid.UUID     `json:"reservationIds"`
}

// VerifyResult reports the payment outcome and what happened to the holds.
type VerifyResult struct {
	Reference string              `json:"reference"`
	Status    enums.PaymentStatus `json:"status"`
	Amount    decimal.Decimal     `json:"amount"`
	Currency  string              `json:"currency"`
	PaidAt    *time.Time          `json:"paidAt,omitempty"`
}

type gateway interface {
	InitializeTransaction(ctx context.Context, in paystack.InitializeInput) (*paystack.Initialization, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.Verification, error)
}

// ServiceParams wire the checkout service.
type ServiceParams struct {
	Inventory      inventory.Service
	Gateway        gateway
	Store          SessionStore
	Logger         *logger.Logger
	Currency       string
	ReservationTTL time.Duration
	SessionTTL     time.Duration
}

type service struct {
	inventory      inventory.Service
	gateway        gateway
	store          SessionStore
	logg           *logger.Logger
	currency       string
	reservationTTL time.Duration
	sessionTTL     time.Duration
	now            func() time.Time
	newReference   func() string
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	store := params.Store
	if store == nil {
		store = NewMemoryStore()
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = string(enums.CurrencyNGN)
	}
	sessionTTL := params.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	return &service{
		inventory:      params.Inventory,
		gateway:        params.Gateway,
		store:          store,
		logg:           logg,
		currency:       currency,
		reservationTTL: params.ReservationTTL,
		sessionTTL:     sessionTTL,
		now:            func() time.Time { return time.Now().UTC() },
		newReference: func() string {
			return referencePrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}, nil
}

func (s *service) Initialize(ctx context.Context, vendorID string, input CheckoutInput) (*InitializeResult, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	if len(input.Items) > maxLines {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d items per checkout", maxLines))
	}

	reference := s.newReference()
	ctx = s.logg.WithField(ctx, "reference", reference)

	total := decimal.Zero
	held := make([]uuid.UUID, 0, len(input.Items))
	for i, line := range input.Items {
		if line.Quantity <= 0 {
			s.releaseAll(ctx, vendorID, held)
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"line": i})
		}
		price, err := s.linePrice(ctx, vendorID, line)
		if err != nil {
			s.releaseAll(ctx, vendorID, held)
			return nil, err
		}
		reservation, err := s.inventory.Reserve(ctx, vendorID, line.InventoryID, inventory.ReserveInput{
			Quantity:  line.Quantity,
			VariantID: line.VariantID,
			Reference: reference,
			TTL:       s.reservationTTL,
		})
		if err != nil {
			s.releaseAll(ctx, vendorID, held)
			return nil, err
		}
		held = append(held, reservation.ID)
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	if !total.IsPositive() {
		s.releaseAll(ctx, vendorID, held)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout total must be positive")
	}

	initialized, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeInput{
		Email:       email,
		Amount:      total,
		Currency:    s.currency,
		Reference:   reference,
		CallbackURL: strings.TrimSpace(input.CallbackURL),
		Metadata: map[string]any{
			"vendorId":       vendorID,
			"reservationIds": held,
		},
	})
	if err != nil {
		s.releaseAll(ctx, vendorID, held)
		return nil, err
	}

	session := &Session{
		Reference:      reference,
		VendorID:       vendorID,
		Email:          email,
		Amount:         total,
		Currency:       s.currency,
		ReservationIDs: held,
		Status:         enums.PaymentStatusPending,
		CreatedAt:      s.now(),
	}
	if err := s.store.Save(ctx, session, s.sessionTTL); err != nil {
		s.releaseAll(ctx, vendorID, held)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store checkout session")
	}

	s.logg.Info(s.logg.WithField(ctx, "amount", total.String()), "checkout initialized")
	return &InitializeResult{
		Reference:        reference,
		AuthorizationURL: initialized.AuthorizationURL,
		AccessCode:       initialized.AccessCode,
		Amount:           total,
		Currency:         s.currency,
		ReservationIDs:   held,
	}, nil
}

// linePrice uses the variant price when one is set, otherwise the item price.
func (s *service) linePrice(ctx context.Context, vendorID string, line LineInput) (decimal.Decimal, error) {
	item, err := s.inventory.Get(ctx, vendorID, line.InventoryID)
	if err != nil {
		return decimal.Zero, err
	}
	if line.VariantID != nil {
		for _, variant := range item.Variants {
			if variant.ID == *line.VariantID && variant.Price != nil {
				return *variant.Price, nil
			}
		}
	}
	return item.Price, nil
}

func (s *service) Verify(ctx context.Context, vendorID, reference string) (*VerifyResult, error) {
	reference = strings.TrimSpace(reference)
	session, err := s.loadSession(ctx, reference)
	if err != nil {
		return nil, err
	}
	if session.VendorID != vendorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}
	ctx = s.logg.WithField(ctx, "reference", reference)

	verification, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}

	status := enums.PaymentStatus(strings.ToLower(verification.Status))
	if status == enums.PaymentStatusSuccess && verification.Amount.LessThan(session.Amount) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"expected": session.Amount.String(),
			"paid":     verification.Amount.String(),
		}), "paid amount below checkout total")
		status = enums.PaymentStatusFailed
	}
	if err := s.settle(ctx, session, status); err != nil {
		return nil, err
	}

	return &VerifyResult{
		Reference: reference,
		Status:    status,
		Amount:    verification.Amount,
		Currency:  verification.Currency,
		PaidAt:    verification.PaidAt,
	}, nil
}

func (s *service) HandleWebhook(ctx context.Context, event *paystack.Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"reference": event.Reference, "event": event.Name})

	var status enums.PaymentStatus
	switch event.Name {
	case paystack.EventChargeSuccess:
		status = enums.PaymentStatusSuccess
	case paystack.EventChargeFailed:
		status = enums.PaymentStatusFailed
	default:
		s.logg.Debug(ctx, "ignoring webhook event")
		return nil
	}

	session, err := s.store.Load(ctx, event.Reference)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}
	if session == nil {
		s.logg.Warn(ctx, "webhook for unknown checkout reference")
		return nil
	}
	if status == enums.PaymentStatusSuccess && event.Amount.LessThan(session.Amount) {
		s.logg.Warn(ctx, "webhook amount below checkout total")
		status = enums.PaymentStatusFailed
	}
	return s.settle(ctx, session, status)
}

func (s *service) loadSession(ctx context.Context, reference string) (*Session, error) {
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}
	session, err := s.store.Load(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}
	return session, nil
}

// settle commits holds on success and releases them on a terminal failure.
// Pending statuses leave the holds in place.
func (s *service) settle(ctx context.Context, session *Session, status enums.PaymentStatus) error {
	if session.Settled() {
		return nil
	}

	var errs error
	switch status {
	case enums.PaymentStatusSuccess:
		for _, id := range session.ReservationIDs {
			if _, err := s.inventory.Commit(ctx, session.VendorID, id); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("commit %s: %w", id, err))
			}
		}
	case enums.PaymentStatusFailed, enums.PaymentStatusAbandoned, enums.PaymentStatusReversed:
		s.releaseAll(ctx, session.VendorID, session.ReservationIDs)
	default:
		return nil
	}

	if errs != nil {
		s.logg.Error(ctx, "payment captured but some holds could not be committed", errs)
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, errs, "payment confirmed but reserved stock is no longer held").
			WithDetails(map[string]any{"reference": session.Reference})
	}

	session.Status = status
	if err := s.store.Save(ctx, session, s.sessionTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store checkout session")
	}
	s.logg.Info(s.logg.WithField(ctx, "status", string(status)), "checkout settled")
	return nil
}

// releaseAll is best effort; unreleased holds still expire through the sweeper.
func (s *service) releaseAll(ctx context.Context, vendorID string, ids []uuid.UUID) {
	for _, id := range ids {
		if _, err := s.inventory.Release(ctx, vendorID, id); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "reservation_id", id.String()), "failed to release reservation", err)
		}
	}
}
