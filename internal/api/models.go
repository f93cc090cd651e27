package api

import "github.com/shopspring/decimal"

// SpotBalance represents one currency in the spot account.
// Response format from /v2/assets/spot/balance:
//
//	[
//	  {
//	    "ccy": "USDT",
//	    "available": "5413.06877369",
//	    "frozen": "81.28240000"
//	  }
//	]
type SpotBalance struct {
	Ccy       string          `json:"ccy"`
	Available decimal.Decimal `json:"available"`
	Frozen    decimal.Decimal `json:"frozen"`
}

// SpotBalanceList is the payload of the spot balance endpoint
type SpotBalanceList []SpotBalance

// SubAccount represents a sub-account of the authenticated user
type SubAccount struct {
	SubUserName  string   `json:"sub_user_name"`
	IsFrozen     bool     `json:"is_frozen"`
	IsAuthorized bool     `json:"is_authorized"`
	Permissions  []string `json:"permissions"`
	BalanceUSD   string   `json:"balance_usd"`
}

// SubAccountList is the payload of the sub-account endpoint
type SubAccountList []SubAccount

// SubAccountQuery filters the sub-account listing. Unset fields are not sent.
type SubAccountQuery struct {
	IsFrozen    *bool
	SubUserName string
}

// OrderSide represents order side (buy or sell)
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType represents order type
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// MarketTypeSpot is the only market type this client trades
const MarketTypeSpot = "SPOT"

// PlaceOrderRequest represents a request to create a spot order.
// Price is ignored for market orders.
type PlaceOrderRequest struct {
	Market     string
	MarketType string
	Type       OrderType
	Side       OrderSide
	Amount     decimal.Decimal
	Price      decimal.Decimal
	ClientID   string
}

// placeOrderBody is the wire form of PlaceOrderRequest. Field order fixes
// the JSON serialization.
type placeOrderBody struct {
	Market     string `json:"market"`
	MarketType string `json:"market_type"`
	Type       string `json:"type"`
	Side       string `json:"side"`
	Amount     string `json:"amount"`
	Price      string `json:"price,omitempty"`
	ClientID   string `json:"client_id,omitempty"`
}

// cancelOrderBody is the wire form of a cancel request
type cancelOrderBody struct {
	Market     string `json:"market"`
	MarketType string `json:"market_type"`
	OrderID    int64  `json:"order_id"`
}

// SpotOrder represents an order as returned by the order endpoints
type SpotOrder struct {
	OrderID        int64           `json:"order_id"`
	Market         string          `json:"market"`
	MarketType     string          `json:"market_type"`
	Ccy            string          `json:"ccy"`
	Side           OrderSide       `json:"side"`
	Type           OrderType       `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	Price          decimal.Decimal `json:"price"`
	UnfilledAmount decimal.Decimal `json:"unfilled_amount"`
	FilledAmount   decimal.Decimal `json:"filled_amount"`
	FilledValue    decimal.Decimal `json:"filled_value"`
	ClientID       string          `json:"client_id"`
	BaseFee        decimal.Decimal `json:"base_fee"`
	QuoteFee       decimal.Decimal `json:"quote_fee"`
	DiscountFee    decimal.Decimal `json:"discount_fee"`
	MakerFeeRate   decimal.Decimal `json:"maker_fee_rate"`
	TakerFeeRate   decimal.Decimal `json:"taker_fee_rate"`
	LastFillAmount decimal.Decimal `json:"last_fill_amount"`
	LastFillPrice  decimal.Decimal `json:"last_fill_price"`
	CreatedAt      int64           `json:"created_at"`
	UpdatedAt      int64           `json:"updated_at"`
}

// SpotOrderList is the payload of the order listing endpoints
type SpotOrderList []SpotOrder

// OrderQuery filters the pending and finished order listings
type OrderQuery struct {
	Market     string
	MarketType string
	Side       OrderSide
	Page       int
	Limit      int
}

// MarketInfo describes a spot market and its precision rules
type MarketInfo struct {
	Market            string          `json:"market"`
	BaseCcy           string          `json:"base_ccy"`
	QuoteCcy          string          `json:"quote_ccy"`
	BaseCcyPrecision  int32           `json:"base_ccy_precision"`
	QuoteCcyPrecision int32           `json:"quote_ccy_precision"`
	MinAmount         decimal.Decimal `json:"min_amount"`
	MakerFeeRate      decimal.Decimal `json:"maker_fee_rate"`
	TakerFeeRate      decimal.Decimal `json:"taker_fee_rate"`
	IsAMMAvailable    bool            `json:"is_amm_available"`
	IsMarginAvailable bool            `json:"is_margin_available"`
}

// MarketInfoList is the payload of the market endpoint
type MarketInfoList []MarketInfo

// DepositAddress is a deposit address for a currency on a chain
type DepositAddress struct {
	Address string `json:"address"`
	Memo    string `json:"memo"`
}
