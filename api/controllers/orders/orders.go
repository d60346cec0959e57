package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmcarrell/storefront-backend/api/responses"
	"github.com/dmcarrell/storefront-backend/api/validators"
	"github.com/dmcarrell/storefront-backend/internal/recalc"
	pkgerrors "github.com/dmcarrell/storefront-backend/pkg/errors"
	"github.com/dmcarrell/storefront-backend/pkg/logger"
)

type recalculateRequest struct {
	// Force recalculates an order frozen by partial payment.
	Force bool `json:"force"`
}

// Recalculate re-resolves prices, discounts, shipping and tax for the order
// and persists the new totals.
func Recalculate(svc recalc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req recalculateRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		ctx := logg.WithOrderID(r.Context(), orderID.String())
		result, err := svc.Recalculate(ctx, orderID, recalc.Options{Force: req.Force, Persist: true})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, recalc.NewResultView(result))
	}
}

// Quote computes the totals the order would settle at without writing
// anything. Frozen orders return their stored totals unchanged.
func Quote(svc recalc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithOrderID(r.Context(), orderID.String())
		result, err := svc.Recalculate(ctx, orderID, recalc.Options{Persist: false})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, recalc.NewResultView(result))
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id must be a UUID").WithDetails(map[string]any{"order_id": raw})
	}
	return id, nil
}
