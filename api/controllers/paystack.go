package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorportal/api/responses"
	"github.com/angelmondragon/vendorportal/api/validators"
	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
	"github.com/angelmondragon/vendorportal/pkg/logger"
	"github.com/angelmondragon/vendorportal/pkg/paystack"
)

type paystackGateway interface {
	InitializeTransaction(ctx context.Context, in paystack.InitializeInput) (*paystack.Initialization, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.Verification, error)
	ListBanks(ctx context.Context, country string) ([]paystack.Bank, error)
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.ResolvedAccount, error)
}

// PaystackInitializeRequest starts a one-off payment such as a wallet top-up.
type PaystackInitializeRequest struct {
	Email       string          `json:"email" validate:"required,email"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	Reference   string          `json:"reference,omitempty" validate:"omitempty,max=100"`
	CallbackURL string          `json:"callbackUrl,omitempty" validate:"omitempty,url"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
}

// PaystackRoutes answers the /api/paystack endpoints directly when the portal holds
// a secret key, and proxies them to the backend API otherwise.
type PaystackRoutes struct {
	gateway     paystackGateway
	fallback    http.HandlerFunc
	currency    string
	callbackURL string
	logg        *logger.Logger
}

func NewPaystackRoutes(gateway paystackGateway, fallback http.HandlerFunc, currency, callbackURL string, logg *logger.Logger) *PaystackRoutes {
	if client, ok := gateway.(*paystack.Client); ok && client == nil {
		gateway = nil
	}
	return &PaystackRoutes{
		gateway:     gateway,
		fallback:    fallback,
		currency:    strings.ToUpper(strings.TrimSpace(currency)),
		callbackURL: strings.TrimSpace(callbackURL),
		logg:        logg,
	}
}

func (p *PaystackRoutes) direct(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p.gateway != nil {
			fn(w, r)
			return
		}
		if p.fallback == nil {
			responses.WriteError(r.Context(), p.logg, w, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway unavailable"))
			return
		}
		p.fallback(w, r)
	}
}

func (p *PaystackRoutes) Banks() http.HandlerFunc {
	return p.direct(func(w http.ResponseWriter, r *http.Request) {
		banks, err := p.gateway.ListBanks(r.Context(), r.URL.Query().Get("country"))
		if err != nil {
			responses.WriteError(r.Context(), p.logg, w, err)
			return
		}
		responses.WriteSuccess(w, banks)
	})
}

// Resolve accepts snake_case (gateway style) or camelCase query parameters.
func (p *PaystackRoutes) Resolve() http.HandlerFunc {
	return p.direct(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		accountNumber := firstNonEmpty(query.Get("account_number"), query.Get("accountNumber"))
		bankCode := firstNonEmpty(query.Get("bank_code"), query.Get("bankCode"))
		account, err := p.gateway.ResolveAccount(r.Context(), accountNumber, bankCode)
		if err != nil {
			responses.WriteError(r.Context(), p.logg, w, err)
			return
		}
		responses.WriteSuccess(w, account)
	})
}

func (p *PaystackRoutes) Initialize() http.HandlerFunc {
	return p.direct(func(w http.ResponseWriter, r *http.Request) {
		var body PaystackInitializeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), p.logg, w, err)
			return
		}
		if !body.Amount.IsPositive() {
			responses.WriteError(r.Context(), p.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{"amount": "must be greater than 0"}))
			return
		}

		in := paystack.InitializeInput{
			Email:       strings.ToLower(strings.TrimSpace(body.Email)),
			Amount:      body.Amount,
			Currency:    firstNonEmpty(strings.ToUpper(body.Currency), p.currency),
			Reference:   firstNonEmpty(body.Reference, "vp_"+strings.ReplaceAll(uuid.NewString(), "-", "")),
			CallbackURL: firstNonEmpty(body.CallbackURL, p.callbackURL),
			Metadata:    body.Metadata,
		}
		started, err := p.gateway.InitializeTransaction(r.Context(), in)
		if err != nil {
			responses.WriteError(r.Context(), p.logg, w, err)
			return
		}
		responses.WriteSuccess(w, started)
	})
}

func (p *PaystackRoutes) Verify() http.HandlerFunc {
	return p.direct(func(w http.ResponseWriter, r *http.Request) {
		verification, err := p.gateway.VerifyTransaction(r.Context(), chi.URLParam(r, "reference"))
		if err != nil {
			responses.WriteError(r.Context(), p.logg, w, err)
			return
		}
		responses.WriteSuccess(w, verification)
	})
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
