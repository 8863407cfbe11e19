package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/vendorportal/api/controllers/vendorcontext"
	"github.com/angelmondragon/vendorportal/api/responses"
	"github.com/angelmondragon/vendorportal/api/validators"
	"github.com/angelmondragon/vendorportal/internal/checkout"
	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
	"github.com/angelmondragon/vendorportal/pkg/logger"
	"github.com/angelmondragon/vendorportal/pkg/paystack"
)

const maxWebhookBytes = 1 << 20

// CheckoutInitialize holds stock for the cart and opens a payment.
func CheckoutInitialize(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "checkout unavailable"))
			return
		}
		vendorID, err := vendorcontext.RequireVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkout.CheckoutInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Initialize(r.Context(), vendorID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func CheckoutVerify(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "checkout unavailable"))
			return
		}
		vendorID, err := vendorcontext.RequireVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Verify(r.Context(), vendorID, chi.URLParam(r, "reference"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type webhookVerifier interface {
	VerifySignature(body []byte, signature string) bool
}

type webhookHandler interface {
	HandleWebhook(ctx context.Context, event *paystack.Event) error
}

// PaystackWebhook settles checkout holds from gateway notifications. The body
// must carry a valid HMAC-SHA512 signature of the secret key.
func PaystackWebhook(svc webhookHandler, verifier webhookVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "webhook processing unavailable"))
			return
		}
		if client, ok := verifier.(*paystack.Client); ok && client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "webhook processing unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}
		if !verifier.VerifySignature(payload, r.Header.Get(paystack.SignatureHeader)) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		event, err := paystack.ParseEvent(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"event": event.Name, "reference": event.Reference})
		}
		if err := svc.HandleWebhook(ctx, event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(ctx, "paystack.webhook.processed")
		}
		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}
