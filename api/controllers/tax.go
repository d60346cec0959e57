package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/dmcarrell/storefront-backend/api/responses"
	"github.com/dmcarrell/storefront-backend/api/validators"
	"github.com/dmcarrell/storefront-backend/internal/tax"
	pkgerrors "github.com/dmcarrell/storefront-backend/pkg/errors"
	"github.com/dmcarrell/storefront-backend/pkg/logger"
)

type taxQuoteResponse struct {
	Processor string          `json:"processor"`
	TaxClass  string          `json:"tax_class"`
	Price     decimal.Decimal `json:"price"`
	Tax       decimal.Decimal `json:"tax"`
}

// TaxQuote prices a single amount through the active tax processor, for
// storefront display ahead of checkout.
func TaxQuote(processor tax.Processor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if processor == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tax processor unavailable"))
			return
		}

		taxClass := validators.SanitizeString(r.URL.Query().Get("tax_class"), 64)
		if taxClass == "" {
			taxClass = "Default"
		}

		rawPrice := validators.SanitizeString(r.URL.Query().Get("price"), 32)
		price, err := decimal.NewFromString(rawPrice)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "price must be a decimal amount").WithDetails(map[string]any{"price": rawPrice}))
			return
		}
		if price.IsNegative() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative"))
			return
		}

		amount, err := processor.ByPrice(r.Context(), taxClass, price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "tax quote failed"))
			return
		}

		responses.WriteSuccess(w, taxQuoteResponse{
			Processor: processor.Name(),
			TaxClass:  taxClass,
			Price:     price,
			Tax:       amount,
		})
	}
}
