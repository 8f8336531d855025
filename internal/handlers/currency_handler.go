package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"pftsystem/internal/currency"
	apperrors "pftsystem/internal/errors"
	"pftsystem/internal/validator"
)

// CurrencyConverter converts an amount between two currencies.
type CurrencyConverter interface {
	Convert(ctx context.Context, from, to string, amount decimal.Decimal) (*currency.Conversion, error)
}

// CurrencyHandler serves currency conversions.
type CurrencyHandler struct {
	converter CurrencyConverter
}

// NewCurrencyHandler creates a new CurrencyHandler.
func NewCurrencyHandler(converter CurrencyConverter) *CurrencyHandler {
	return &CurrencyHandler{converter: converter}
}

// Convert converts an amount using the current exchange rate.
// @Summary     Convert currency
// @Tags        currency
// @Produce     json
// @Security    BearerAuth
// @Param       from   query string true "Source ISO 4217 code"
// @Param       to     query string true "Target ISO 4217 code"
// @Param       amount query string true "Amount to convert"
// @Success     200 {object} currency.Conversion "Conversion"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     502 {object} ErrorResponse "Rates service failed"
// @Router      /currency/convert [get]
func (h *CurrencyHandler) Convert(c *gin.Context) {
	from := strings.ToUpper(c.Query("from"))
	to := strings.ToUpper(c.Query("to"))
	if !validator.IsCurrency(from) || !validator.IsCurrency(to) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "from and to must be ISO 4217 currency codes"))
		return
	}

	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil || amount.IsNegative() {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be a non-negative number"))
		return
	}

	conversion, err := h.converter.Convert(c.Request.Context(), from, to, amount)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrUpstream, err))
		return
	}

	c.JSON(http.StatusOK, conversion)
}
