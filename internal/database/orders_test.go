package database

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalalpha/coinex-trading/internal/api"
)

func TestBuildListQuery(t *testing.T) {
	query, args := buildListQuery(OrderFilter{Account: "main", Market: "BTCUSDT", Since: 10, Limit: 5})

	assert.Contains(t, query, "AND account = $1")
	assert.Contains(t, query, "AND market = $2")
	assert.Contains(t, query, "AND updated_at >= $3")
	assert.True(t, strings.HasSuffix(query, "ORDER BY updated_at DESC LIMIT $4"))
	assert.Equal(t, []interface{}{"main", "BTCUSDT", int64(10), 5}, args)

	query, args = buildListQuery(OrderFilter{})
	assert.NotContains(t, query, "$")
	assert.Empty(t, args)
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "coinex", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=coinex sslmode=disable", cfg.DSN())
}

// TestOrderStore runs against a real PostgreSQL named by COINEX_TEST_DSN_HOST.
func TestOrderStore(t *testing.T) {
	host := os.Getenv("COINEX_TEST_DSN_HOST")
	if host == "" {
		t.Skip("COINEX_TEST_DSN_HOST not set")
	}

	ctx := context.Background()
	db, err := New(ctx, Config{Host: host, Port: 5432, User: "postgres", DBName: "coinex_test", SSLMode: "disable"})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.InitSchema(ctx))

	_, err = db.ExecContext(ctx, `DELETE FROM spot_orders WHERE account = 'test'`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `DELETE FROM sync_status WHERE account = 'test'`)
	require.NoError(t, err)

	empty, err := db.ListOrders(ctx, OrderFilter{Account: "test"})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	orders := []api.SpotOrder{
		{OrderID: 1, Market: "BTCUSDT", MarketType: "SPOT", Side: api.OrderSideBuy, Type: api.OrderTypeLimit, Amount: decimal.NewFromInt(1), Price: decimal.NewFromInt(2), UpdatedAt: 100},
		{OrderID: 2, Market: "BTCUSDT", MarketType: "SPOT", Side: api.OrderSideSell, Type: api.OrderTypeMarket, Amount: decimal.NewFromInt(3), UpdatedAt: 200},
	}

	n, err := db.SaveOrders(ctx, "test", orders)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = db.SaveOrders(ctx, "test", orders)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "duplicates must be ignored")

	status, err := db.LastSyncStatus(ctx, "test", "BTCUSDT")
	require.NoError(t, err)
	assert.Zero(t, status.LastUpdatedAt)
	assert.Zero(t, status.ResumePage)

	require.NoError(t, db.SaveSyncStatus(ctx, SyncStatus{Account: "test", Market: "BTCUSDT", LastUpdatedAt: 100, HighUpdatedAt: 200, ResumePage: 3, Status: "partial"}))
	status, err = db.LastSyncStatus(ctx, "test", "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, int64(100), status.LastUpdatedAt)
	assert.Equal(t, int64(200), status.HighUpdatedAt)
	assert.Equal(t, 3, status.ResumePage)
	assert.Equal(t, "partial", status.Status)

	stored, err := db.ListOrders(ctx, OrderFilter{Account: "test"})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, int64(2), stored[0].OrderID)
}
