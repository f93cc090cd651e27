package trader

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/signalalpha/coinex-trading/internal/api"
)

var (
	// ErrInsufficientFunds is returned when the available balance cannot cover an order
	ErrInsufficientFunds = errors.New("insufficient available balance")
	// ErrOrderTooLarge is returned when an order's quote value exceeds the configured maximum
	ErrOrderTooLarge = errors.New("order value exceeds limit")
	// ErrTradeTooSoon is returned when orders are placed faster than the configured interval
	ErrTradeTooSoon = errors.New("minimum trade interval not elapsed")
)

// RiskConfig holds the pre-trade limits. Zero values disable a check.
type RiskConfig struct {
	MaxOrderValue    decimal.Decimal
	MinTradeInterval time.Duration
}

// RiskManager runs pre-trade checks against current balances
type RiskManager struct {
	config        RiskConfig
	mu            sync.Mutex
	lastTradeTime time.Time
	now           func() time.Time
}

// NewRiskManager creates a risk manager
func NewRiskManager(config RiskConfig) *RiskManager {
	return &RiskManager{
		config: config,
		now:    time.Now,
	}
}

// OrderValue returns the quote currency value of req. Market sells carry no
// price, so their value is unknown and reported as zero.
func OrderValue(req api.PlaceOrderRequest) decimal.Decimal {
	switch {
	case req.Type == api.OrderTypeLimit:
		return req.Amount.Mul(req.Price)
	case isQuoteSized(req):
		return req.Amount
	default:
		return decimal.Zero
	}
}

// CheckOrder verifies req against the configured limits and balances
func (r *RiskManager) CheckOrder(req api.PlaceOrderRequest, market api.MarketInfo, balances api.SpotBalanceList) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config.MinTradeInterval > 0 && !r.lastTradeTime.IsZero() {
		if elapsed := r.now().Sub(r.lastTradeTime); elapsed < r.config.MinTradeInterval {
			return errors.Wrapf(ErrTradeTooSoon, "%s since last order, need %s", elapsed.Round(time.Millisecond), r.config.MinTradeInterval)
		}
	}

	value := OrderValue(req)
	if r.config.MaxOrderValue.IsPositive() && value.GreaterThan(r.config.MaxOrderValue) {
		return errors.Wrapf(ErrOrderTooLarge, "%s %s > %s", value, market.QuoteCcy, r.config.MaxOrderValue)
	}

	ccy, need := market.QuoteCcy, value
	if req.Side == api.OrderSideSell {
		ccy, need = market.BaseCcy, req.Amount
	}
	if have := available(balances, ccy); have.LessThan(need) {
		return errors.Wrapf(ErrInsufficientFunds, "need %s %s, available %s", need, ccy, have)
	}
	return nil
}

// RecordTrade marks an order as placed for interval checks
func (r *RiskManager) RecordTrade() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastTradeTime = r.now()
}

func available(balances api.SpotBalanceList, ccy string) decimal.Decimal {
	for _, b := range balances {
		if b.Ccy == ccy {
			return b.Available
		}
	}
	return decimal.Zero
}
