package inventory

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/vendorportal/api/controllers/vendorcontext"
	"github.com/angelmondragon/vendorportal/api/responses"
	"github.com/angelmondragon/vendorportal/api/validators"
	inventorysvc "github.com/angelmondragon/vendorportal/internal/inventory"
	"github.com/angelmondragon/vendorportal/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
	"github.com/angelmondragon/vendorportal/pkg/logger"
	"github.com/angelmondragon/vendorportal/pkg/pagination"
)

const maxSearchLength = 100

// handle resolves the vendor and writes err through the shared error envelope.
func handle(svc inventorysvc.Service, logg *logger.Logger, fn func(w http.ResponseWriter, r *http.Request, vendorID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		vendorID, err := vendorcontext.RequireVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := fn(w, r, vendorID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
		}
	}
}

func List(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, func(w http.ResponseWriter, r *http.Request, vendorID string) error {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			return err
		}
		query := r.URL.Query()
		input := inventorysvc.ListInput{
			Search:     validators.SanitizeString(query.Get("search"), maxSearchLength),
			Pagination: pagination.Params{Limit: limit, Cursor: strings.TrimSpace(query.Get("cursor"))},
		}
		if raw := strings.TrimSpace(query.Get("status")); raw != "" {
			status, err := enums.ParseInventoryStatus(raw)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
			}
			input.Status = &status
		}
		if raw := strings.TrimSpace(query.Get("stockStatus")); raw != "" {
			stockStatus, err := enums.ParseStockStatus(raw)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stock status filter")
			}
			input.StockStatus = &stockStatus
		}

		page, err := svc.List(r.Context(), vendorID, input)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, page)
		return nil
	})
}

func Get(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, func(w http.ResponseWriter, r *http.Request, vendorID string) error {
		id, err := pathID(r, "id")
		if err != nil {
			return err
		}
		item, err := svc.Get(r.Context(), vendorID, id)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, item)
		return nil
	})
}

func Create(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, func(w http.ResponseWriter, r *http.Request, vendorID string) error {
		var body inventorysvc.CreateItemInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return err
		}
		item, err := svc.Create(r.Context(), vendorID, body)
		if err != nil {
			return err
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
		return nil
	})
}

func Update(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, func(w http.ResponseWriter, r *http.Request, vendorID string) error {
		id, err := pathID(r, "id")
		if err != nil {
			return err
		}
		var body inventorysvc.UpdateItemInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return err
		}
		item, err := svc.Update(r.Context(), vendorID, id, body)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, item)
		return nil
	})
}

func Delete(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, func(w http.ResponseWriter, r *http.Request, vendorID string) error {
		id, err := pathID(r, "id")
		if err != nil {
			return err
		}
		if err := svc.Delete(r.Context(), vendorID, id); err != nil {
			return err
		}
		responses.WriteSuccess(w, map[string]string{"id": id.String(), "message": "Inventory item deleted"})
		return nil
	})
}

// AdjustStock applies {quantity, operation} to the item totals.
func AdjustStock(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, func(w http.ResponseWriter, r *http.Request, vendorID string) error {
		id, err := pathID(r, "id")
		if err != nil {
			return err
		}
		var body inventorysvc.StockUpdateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return err
		}
		item, err := svc.AdjustStock(r.Context(), vendorID, id, body)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, item)
		return nil
	})
}

func AdjustVariantStock(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, func(w http.ResponseWriter, r *http.Request, vendorID string) error {
		id, err := pathID(r, "id")
		if err != nil {
			return err
		}
		variantID, err := pathID(r, "variantId")
		if err != nil {
			return err
		}
		var body inventorysvc.StockUpdateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return err
		}
		item, err := svc.AdjustVariantStock(r.Context(), vendorID, id, variantID, body)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, item)
		return nil
	})
}

func Reserve(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, func(w http.ResponseWriter, r *http.Request, vendorID string) error {
		id, err := pathID(r, "id")
		if err != nil {
			return err
		}
		var body inventorysvc.ReserveInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return err
		}
		reservation, err := svc.Reserve(r.Context(), vendorID, id, body)
		if err != nil {
			return err
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, reservation)
		return nil
	})
}

func Commit(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, func(w http.ResponseWriter, r *http.Request, vendorID string) error {
		id, err := pathID(r, "reservationId")
		if err != nil {
			return err
		}
		reservation, err := svc.Commit(r.Context(), vendorID, id)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, reservation)
		return nil
	})
}

func Release(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, func(w http.ResponseWriter, r *http.Request, vendorID string) error {
		id, err := pathID(r, "reservationId")
		if err != nil {
			return err
		}
		reservation, err := svc.Release(r.Context(), vendorID, id)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, reservation)
		return nil
	})
}

func Summary(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, func(w http.ResponseWriter, r *http.Request, vendorID string) error {
		summary, err := svc.Summary(r.Context(), vendorID)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, summary)
		return nil
	})
}

// Preview renders the item the way buyers see it on the public storefront.
func Preview(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, func(w http.ResponseWriter, r *http.Request, vendorID string) error {
		id, err := pathID(r, "id")
		if err != nil {
			return err
		}
		product, err := svc.Preview(r.Context(), vendorID, id)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, product)
		return nil
	})
}

func pathID(r *http.Request, param string) (uuid.UUID, error) {
	return validators.ParseUUID(chi.URLParam(r, param), param)
}
