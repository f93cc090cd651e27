package trader

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/signalalpha/coinex-trading/internal/api"
)

var (
	// ErrBelowMinAmount is returned when a rounded amount is under the market minimum
	ErrBelowMinAmount = errors.New("amount below market minimum")
	// ErrMissingPrice is returned for a limit order without a positive price
	ErrMissingPrice = errors.New("price is required for limit orders")
)

// RoundAmount truncates amount to the base currency precision. Amounts are
// never rounded up so an order cannot exceed the available balance.
func RoundAmount(amount decimal.Decimal, market api.MarketInfo) decimal.Decimal {
	return amount.Truncate(market.BaseCcyPrecision)
}

// RoundPrice rounds price half-up to the quote currency precision
func RoundPrice(price decimal.Decimal, market api.MarketInfo) decimal.Decimal {
	return price.Round(market.QuoteCcyPrecision)
}

// FormatAmount renders amount at base precision without trailing zeros
func FormatAmount(amount decimal.Decimal, market api.MarketInfo) string {
	return RoundAmount(amount, market).String()
}

// FormatPrice renders price at quote precision without trailing zeros
func FormatPrice(price decimal.Decimal, market api.MarketInfo) string {
	return RoundPrice(price, market).String()
}

// NormalizeOrder adjusts req to the precision rules of market and rejects
// orders the exchange would refuse.
func NormalizeOrder(req api.PlaceOrderRequest, market api.MarketInfo) (api.PlaceOrderRequest, error) {
	if market.Market != "" && req.Market != "" && market.Market != req.Market {
		return req, errors.Errorf("market mismatch: order for %s, rules for %s", req.Market, market.Market)
	}

	out := req
	if isQuoteSized(req) {
		// min_amount is a base currency minimum and cannot be applied to a
		// quote sized order without a price
		out.Amount = req.Amount.Truncate(market.QuoteCcyPrecision)
		if !out.Amount.IsPositive() {
			return req, errors.Errorf("amount %s rounds to zero at precision %d", req.Amount, market.QuoteCcyPrecision)
		}
	} else {
		out.Amount = RoundAmount(req.Amount, market)
		if !out.Amount.IsPositive() {
			return req, errors.Errorf("amount %s rounds to zero at precision %d", req.Amount, market.BaseCcyPrecision)
		}
		if out.Amount.LessThan(market.MinAmount) {
			return req, errors.Wrapf(ErrBelowMinAmount, "%s < %s", out.Amount, market.MinAmount)
		}
	}

	if req.Type == api.OrderTypeLimit {
		out.Price = RoundPrice(req.Price, market)
		if !out.Price.IsPositive() {
			return req, ErrMissingPrice
		}
	} else {
		out.Price = decimal.Zero
	}
	return out, nil
}

// isQuoteSized reports whether req.Amount is in the quote currency, which is
// the case for market buys
func isQuoteSized(req api.PlaceOrderRequest) bool {
	return req.Type == api.OrderTypeMarket && req.Side == api.OrderSideBuy
}
