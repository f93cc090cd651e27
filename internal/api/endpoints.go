package api

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Endpoint paths
const (
	PathSpotBalance    = "/v2/assets/spot/balance"
	PathSubAccounts    = "/v2/account/subs"
	PathSpotOrder      = "/v2/spot/order"
	PathCancelOrder    = "/v2/spot/cancel-order"
	PathPendingOrders  = "/v2/spot/pending-order"
	PathFinishedOrders = "/v2/spot/finished-order"
	PathSpotMarket     = "/v2/spot/market"
	PathDepositAddress = "/v2/assets/deposit-address"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// GetSpotBalance retrieves the spot account balances
func (c *Client) GetSpotBalance(ctx context.Context) (SpotBalanceList, error) {
	var balances SpotBalanceList
	if err := c.get(ctx, PathSpotBalance, nil, &balances); err != nil {
		return nil, err
	}
	return balances, nil
}

// ListSubAccounts retrieves the sub-accounts matching q
func (c *Client) ListSubAccounts(ctx context.Context, q SubAccountQuery) (SubAccountList, error) {
	var params Params
	if q.IsFrozen != nil {
		params.Add("is_frozen", strconv.FormatBool(*q.IsFrozen))
	}
	params.AddIfSet("sub_user_name", q.SubUserName)

	var accounts SubAccountList
	if err := c.get(ctx, PathSubAccounts, params, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// PlaceOrder creates a new spot order
func (c *Client) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*SpotOrder, error) {
	body, err := newPlaceOrderBody(req)
	if err != nil {
		return nil, err
	}

	var order SpotOrder
	if err := c.post(ctx, PathSpotOrder, body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// PlaceLimitOrder creates a limit order for amount at price
func (c *Client) PlaceLimitOrder(ctx context.Context, market string, side OrderSide, amount, price decimal.Decimal) (*SpotOrder, error) {
	return c.PlaceOrder(ctx, PlaceOrderRequest{
		Market: market,
		Type:   OrderTypeLimit,
		Side:   side,
		Amount: amount,
		Price:  price,
	})
}

// PlaceMarketOrder creates a market order for amount
func (c *Client) PlaceMarketOrder(ctx context.Context, market string, side OrderSide, amount decimal.Decimal) (*SpotOrder, error) {
	return c.PlaceOrder(ctx, PlaceOrderRequest{
		Market: market,
		Type:   OrderTypeMarket,
		Side:   side,
		Amount: amount,
	})
}

// CancelOrder cancels a pending spot order and returns its final state
func (c *Client) CancelOrder(ctx context.Context, market string, orderID int64) (*SpotOrder, error) {
	if market == "" {
		return nil, errors.New("market is required")
	}
	if orderID <= 0 {
		return nil, errors.Errorf("invalid order id: %d", orderID)
	}

	body := &cancelOrderBody{
		Market:     market,
		MarketType: MarketTypeSpot,
		OrderID:    orderID,
	}

	var order SpotOrder
	if err := c.post(ctx, PathCancelOrder, body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListPendingOrders retrieves unfilled orders
func (c *Client) ListPendingOrders(ctx context.Context, q OrderQuery) (SpotOrderList, error) {
	return c.listOrders(ctx, PathPendingOrders, q)
}

// ListFinishedOrders retrieves filled and cancelled orders
func (c *Client) ListFinishedOrders(ctx context.Context, q OrderQuery) (SpotOrderList, error) {
	orders, err := c.listOrders(ctx, PathFinishedOrders, q)
	if err != nil {
		return nil, err
	}
	c.logger.WithField("count", len(orders)).Debug("finished orders")
	return orders, nil
}

func (c *Client) listOrders(ctx context.Context, path string, q OrderQuery) (SpotOrderList, error) {
	var orders SpotOrderList
	if err := c.get(ctx, path, q.params(), &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetSpotMarkets retrieves market definitions. With no markets given the
// exchange returns all of them.
func (c *Client) GetSpotMarkets(ctx context.Context, markets ...string) (MarketInfoList, error) {
	var params Params
	params.AddIfSet("market", strings.Join(markets, ","))

	var infos MarketInfoList
	if err := c.get(ctx, PathSpotMarket, params, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// GetSpotMarket retrieves a single market definition
func (c *Client) GetSpotMarket(ctx context.Context, market string) (*MarketInfo, error) {
	infos, err := c.GetSpotMarkets(ctx, market)
	if err != nil {
		return nil, err
	}
	for i := range infos {
		if strings.EqualFold(infos[i].Market, market) {
			return &infos[i], nil
		}
	}
	return nil, errors.Errorf("market %s not found", market)
}

// GetDepositAddress retrieves the deposit address for ccy on chain
func (c *Client) GetDepositAddress(ctx context.Context, ccy, chain string) (*DepositAddress, error) {
	var params Params
	params.Add("ccy", ccy)
	params.Add("chain", chain)

	var addr DepositAddress
	if err := c.get(ctx, PathDepositAddress, params, &addr); err != nil {
		return nil, err
	}
	return &addr, nil
}

func (q OrderQuery) params() Params {
	marketType := q.MarketType
	if marketType == "" {
		marketType = MarketTypeSpot
	}
	page := q.Page
	if page <= 0 {
		page = defaultPage
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var params Params
	params.AddIfSet("market", q.Market)
	params.Add("market_type", marketType)
	params.AddIfSet("side", string(q.Side))
	params.Add("page", strconv.Itoa(page))
	params.Add("limit", strconv.Itoa(limit))
	return params
}

func newPlaceOrderBody(req PlaceOrderRequest) (*placeOrderBody, error) {
	if req.Market == "" {
		return nil, errors.New("market is required")
	}
	if req.Side != OrderSideBuy && req.Side != OrderSideSell {
		return nil, errors.Errorf("invalid side: %s (must be buy or sell)", req.Side)
	}
	if !req.Amount.IsPositive() {
		return nil, errors.Errorf("invalid amount: %s", req.Amount)
	}

	body := &placeOrderBody{
		Market:     req.Market,
		MarketType: req.MarketType,
		Type:       string(req.Type),
		Side:       string(req.Side),
		Amount:     req.Amount.String(),
		ClientID:   req.ClientID,
	}
	if body.MarketType == "" {
		body.MarketType = MarketTypeSpot
	}

	switch req.Type {
	case OrderTypeLimit:
		if !req.Price.IsPositive() {
			return nil, errors.New("price is required for limit orders")
		}
		body.Price = req.Price.String()
	case OrderTypeMarket:
	default:
		return nil, errors.Errorf("invalid order type: %s (must be market or limit)", req.Type)
	}
	return body, nil
}
