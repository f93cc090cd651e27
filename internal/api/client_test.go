package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey    = "test-key"
	testSecret = "test-secret"
)

// recordedRequest is what the fake exchange saw
type recordedRequest struct {
	Method     string
	RequestURI string
	Body       string
	Header     http.Header
}

// fakeExchange verifies signatures like the real server and answers with
// canned envelopes per path.
type fakeExchange struct {
	t         *testing.T
	server    *httptest.Server
	signer    *Signer
	mu        sync.Mutex
	requests  []recordedRequest
	responses map[string]string
	status    map[string]int
}

func newFakeExchange(t *testing.T) *fakeExchange {
	t.Helper()
	signer, err := NewSigner(testSecret)
	require.NoError(t, err)

	f := &fakeExchange{
		t:         t,
		signer:    signer,
		responses: map[string]string{},
		status:    map[string]int{},
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeExchange) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method:     r.Method,
		RequestURI: r.URL.RequestURI(),
		Body:       string(body),
		Header:     r.Header.Clone(),
	})
	f.mu.Unlock()

	ts, err := strconv.ParseInt(r.Header.Get(HeaderTimestamp), 10, 64)
	if err != nil || r.Header.Get(HeaderKey) != testKey {
		writeEnvelope(w, http.StatusOK, `{"code":11003,"data":{},"message":"invalid access id"}`)
		return
	}
	want := f.signer.Sign(r.Method, r.URL.RequestURI(), string(body), ts)
	if r.Header.Get(HeaderSign) != want {
		writeEnvelope(w, http.StatusOK, `{"code":25,"data":{},"message":"signature error"}`)
		return
	}

	status := http.StatusOK
	if s, ok := f.status[r.URL.Path]; ok {
		status = s
	}
	resp, ok := f.responses[r.URL.Path]
	if !ok {
		writeEnvelope(w, http.StatusNotFound, `not found`)
		return
	}
	writeEnvelope(w, status, resp)
}

func (f *fakeExchange) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(f.t, f.requests)
	return f.requests[len(f.requests)-1]
}

func writeEnvelope(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func ok(data string) string {
	return fmt.Sprintf(`{"code":0,"data":%s,"message":""}`, data)
}

func newTestClient(t *testing.T, f *fakeExchange) *Client {
	t.Helper()
	c, err := NewClient(f.server.URL, testKey, testSecret, WithTimeout(5*time.Second))
	require.NoError(t, err)
	return c
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("", testKey, "")
	var signingErr *SigningError
	assert.ErrorAs(t, err, &signingErr)

	_, err = NewClient("", "", testSecret)
	assert.ErrorIs(t, err, ErrEmptyKey)

	_, err = NewClient("::not a url", testKey, testSecret)
	assert.Error(t, err)

	c, err := NewClient("", testKey, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "api.coinex.com", c.builder.base.Host)
}

func TestGetSpotBalance(t *testing.T) {
	f := newFakeExchange(t)
	f.responses[PathSpotBalance] = ok(`[{"ccy":"USDT","available":"5413.06877369","frozen":"81.2824"},{"ccy":"BTC","available":"0.5","frozen":"0"}]`)
	c := newTestClient(t, f)

	balances, err := c.GetSpotBalance(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "USDT", balances[0].Ccy)
	assert.True(t, balances[0].Available.Equal(decimal.RequireFromString("5413.06877369")))
	assert.True(t, balances[1].Frozen.IsZero())

	req := f.last()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/v2/assets/spot/balance", req.RequestURI)
	assert.Empty(t, req.Body)
	assert.Equal(t, "application/json", req.Header.Get(HeaderContentType))
}

func TestListSubAccounts(t *testing.T) {
	f := newFakeExchange(t)
	f.responses[PathSubAccounts] = ok(`[{"sub_user_name":"alice","is_frozen":false,"is_authorized":true,"permissions":["SPOT"],"balance_usd":"12.5"}]`)
	c := newTestClient(t, f)

	frozen := false
	accounts, err := c.ListSubAccounts(context.Background(), SubAccountQuery{IsFrozen: &frozen, SubUserName: "alice"})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "alice", accounts[0].SubUserName)
	assert.True(t, accounts[0].IsAuthorized)
	assert.Equal(t, []string{"SPOT"}, accounts[0].Permissions)
	assert.Equal(t, "/v2/account/subs?is_frozen=false&sub_user_name=alice", f.last().RequestURI)

	_, err = c.ListSubAccounts(context.Background(), SubAccountQuery{})
	require.NoError(t, err)
	assert.Equal(t, "/v2/account/subs", f.last().RequestURI)
}

func TestPlaceOrder(t *testing.T) {
	f := newFakeExchange(t)
	f.responses[PathSpotOrder] = ok(`{"order_id":13400,"market":"BTCUSDT","market_type":"SPOT","side":"buy","type":"limit","amount":"0.01","price":"30000","unfilled_amount":"0.01","filled_amount":"0","created_at":1700000000000,"updated_at":1700000000000}`)
	c := newTestClient(t, f)

	order, err := c.PlaceLimitOrder(context.Background(), "BTCUSDT", OrderSideBuy,
		decimal.RequireFromString("0.01"), decimal.RequireFromString("30000"))
	require.NoError(t, err)
	assert.Equal(t, int64(13400), order.OrderID)
	assert.Equal(t, OrderTypeLimit, order.Type)
	assert.True(t, order.Price.Equal(decimal.NewFromInt(30000)))

	req := f.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/v2/spot/order", req.RequestURI)
	assert.Equal(t, `{"market":"BTCUSDT","market_type":"SPOT","type":"limit","side":"buy","amount":"0.01","price":"30000"}`, req.Body)
}

func TestPlaceMarketOrderOmitsPrice(t *testing.T) {
	f := newFakeExchange(t)
	f.responses[PathSpotOrder] = ok(`{"order_id":1,"market":"BTCUSDT","type":"market","side":"sell","amount":"0.5","price":"0"}`)
	c := newTestClient(t, f)

	_, err := c.PlaceMarketOrder(context.Background(), "BTCUSDT", OrderSideSell, decimal.RequireFromString("0.5"))
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(f.last().Body), &body))
	assert.NotContains(t, body, "price")
	assert.Equal(t, "market", body["type"])
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFakeExchange(t)
	c := newTestClient(t, f)

	tests := []struct {
		name string
		req  PlaceOrderRequest
	}{
		{name: "missing market", req: PlaceOrderRequest{Type: OrderTypeMarket, Side: OrderSideBuy, Amount: decimal.NewFromInt(1)}},
		{name: "bad side", req: PlaceOrderRequest{Market: "BTCUSDT", Type: OrderTypeMarket, Side: "hold", Amount: decimal.NewFromInt(1)}},
		{name: "zero amount", req: PlaceOrderRequest{Market: "BTCUSDT", Type: OrderTypeMarket, Side: OrderSideBuy}},
		{name: "limit without price", req: PlaceOrderRequest{Market: "BTCUSDT", Type: OrderTypeLimit, Side: OrderSideBuy, Amount: decimal.NewFromInt(1)}},
		{name: "bad type", req: PlaceOrderRequest{Market: "BTCUSDT", Type: "stop", Side: OrderSideBuy, Amount: decimal.NewFromInt(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.PlaceOrder(context.Background(), tt.req)
			assert.Error(t, err)
		})
	}
	assert.Empty(t, f.requests, "invalid orders must not reach the exchange")
}

func TestCancelOrder(t *testing.T) {
	f := newFakeExchange(t)
	f.responses[PathCancelOrder] = ok(`{"order_id":13400,"market":"BTCUSDT","market_type":"SPOT","side":"buy","type":"limit","amount":"0.01","price":"30000","unfilled_amount":"0.01","filled_amount":"0"}`)
	c := newTestClient(t, f)

	order, err := c.CancelOrder(context.Background(), "BTCUSDT", 13400)
	require.NoError(t, err)
	assert.Equal(t, int64(13400), order.OrderID)

	req := f.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/v2/spot/cancel-order", req.RequestURI)
	assert.Equal(t, `{"market":"BTCUSDT","market_type":"SPOT","order_id":13400}`, req.Body)
}

func TestCancelOrderValidation(t *testing.T) {
	f := newFakeExchange(t)
	c := newTestClient(t, f)

	_, err := c.CancelOrder(context.Background(), "", 1)
	assert.Error(t, err)
	_, err = c.CancelOrder(context.Background(), "BTCUSDT", 0)
	assert.Error(t, err)
	assert.Empty(t, f.requests)
}

func TestListOrders(t *testing.T) {
	f := newFakeExchange(t)
	orders := ok(`[{"order_id":1,"market":"BTCUSDT","side":"buy","type":"limit","amount":"1","price":"2","updated_at":10},{"order_id":2,"market":"BTCUSDT","side":"buy","type":"limit","amount":"3","price":"4","updated_at":20}]`)
	f.responses[PathPendingOrders] = orders
	f.responses[PathFinishedOrders] = orders
	c := newTestClient(t, f)

	q := OrderQuery{Market: "BTCUSDT", Side: OrderSideBuy, Page: 2, Limit: 50}

	pending, err := c.ListPendingOrders(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
	assert.Equal(t, "/v2/spot/pending-order?market=BTCUSDT&market_type=SPOT&side=buy&page=2&limit=50", f.last().RequestURI)

	finished, err := c.ListFinishedOrders(context.Background(), OrderQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(20), finished[1].UpdatedAt)
	assert.Equal(t, "/v2/spot/finished-order?market_type=SPOT&page=1&limit=10", f.last().RequestURI)
}

func TestGetSpotMarket(t *testing.T) {
	f := newFakeExchange(t)
	f.responses[PathSpotMarket] = ok(`[{"market":"BTCUSDT","base_ccy":"BTC","quote_ccy":"USDT","base_ccy_precision":8,"quote_ccy_precision":2,"min_amount":"0.0001","maker_fee_rate":"0.002","taker_fee_rate":"0.002"}]`)
	c := newTestClient(t, f)

	info, err := c.GetSpotMarket(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, int32(8), info.BaseCcyPrecision)
	assert.Equal(t, int32(2), info.QuoteCcyPrecision)
	assert.Equal(t, "/v2/spot/market?market=BTCUSDT", f.last().RequestURI)

	_, err = c.GetSpotMarket(context.Background(), "ETHUSDT")
	assert.Error(t, err)
}

func TestGetDepositAddress(t *testing.T) {
	f := newFakeExchange(t)
	f.responses[PathDepositAddress] = ok(`{"address":"0xabc","memo":""}`)
	c := newTestClient(t, f)

	addr, err := c.GetDepositAddress(context.Background(), "USDT", "CSC")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", addr.Address)
	assert.Equal(t, "/v2/assets/deposit-address?ccy=USDT&chain=CSC", f.last().RequestURI)
}

func TestClientSurfacesAPIError(t *testing.T) {
	f := newFakeExchange(t)
	f.responses[PathSpotOrder] = `{"code":3109,"data":{},"message":"balance not enough"}`
	c := newTestClient(t, f)

	_, err := c.PlaceMarketOrder(context.Background(), "BTCUSDT", OrderSideBuy, decimal.NewFromInt(1))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 3109, apiErr.Code)
	assert.Len(t, f.requests, 1, "errors must not be retried")
}

func TestClientSurfacesTransportError(t *testing.T) {
	f := newFakeExchange(t)
	f.responses[PathSpotBalance] = ok(`[]`)
	f.status[PathSpotBalance] = http.StatusInternalServerError
	c := newTestClient(t, f)

	_, err := c.GetSpotBalance(context.Background())

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusInternalServerError, transportErr.StatusCode)
	assert.Len(t, f.requests, 1, "errors must not be retried")
}

func TestClientSurfacesSignatureMismatch(t *testing.T) {
	f := newFakeExchange(t)
	f.responses[PathSpotBalance] = ok(`[]`)
	c, err := NewClient(f.server.URL, testKey, "wrong-secret")
	require.NoError(t, err)

	_, err = c.GetSpotBalance(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 25, apiErr.Code)
}

func TestClientMalformedPayload(t *testing.T) {
	f := newFakeExchange(t)
	f.responses[PathSpotBalance] = ok(`{"ccy":"USDT"}`)
	c := newTestClient(t, f)

	_, err := c.GetSpotBalance(context.Background())

	var malformed *MalformedResponseError
	assert.ErrorAs(t, err, &malformed)
}

func TestClientHonorsContext(t *testing.T) {
	f := newFakeExchange(t)
	f.responses[PathSpotBalance] = ok(`[]`)
	c := newTestClient(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetSpotBalance(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientTimeoutIgnoresOptionOrder(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want time.Duration
	}{
		{name: "default", want: defaultTimeout},
		{name: "timeout only", opts: []Option{WithTimeout(2 * time.Second)}, want: 2 * time.Second},
		{name: "timeout before http client", opts: []Option{WithTimeout(2 * time.Second), WithHTTPClient(&http.Client{})}, want: 2 * time.Second},
		{name: "timeout after http client", opts: []Option{WithHTTPClient(&http.Client{}), WithTimeout(3 * time.Second)}, want: 3 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient("", testKey, testSecret, tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.http.GetClient().Timeout)
		})
	}
}
