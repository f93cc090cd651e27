package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/signalalpha/coinex-trading/internal/api"
)

// Order is a persisted spot order
type Order struct {
	ID           int64           `json:"id"`
	Account      string          `json:"account"`
	OrderID      int64           `json:"order_id"`
	Market       string          `json:"market"`
	MarketType   string          `json:"market_type"`
	Side         string          `json:"side"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Price        decimal.Decimal `json:"price"`
	FilledAmount decimal.Decimal `json:"filled_amount"`
	FilledValue  decimal.Decimal `json:"filled_value"`
	BaseFee      decimal.Decimal `json:"base_fee"`
	QuoteFee     decimal.Decimal `json:"quote_fee"`
	ClientID     string          `json:"client_id"`
	CreatedAt    int64           `json:"created_at"`
	UpdatedAt    int64           `json:"updated_at"`
	SyncedAt     time.Time       `json:"synced_at"`
}

// SyncStatus records the outcome of one sync pass for an account and market.
// Every order updated at or after LastUpdatedAt is stored, except while a
// backfill is running: then ResumePage is the next page to fetch and
// HighUpdatedAt is the newest order seen, which becomes the watermark once
// the backfill reaches LastUpdatedAt.
type SyncStatus struct {
	Account       string
	Market        string
	LastUpdatedAt int64
	HighUpdatedAt int64
	ResumePage    int
	RecordsCount  int
	Status        string
	ErrorMessage  string
}

// OrderFilter narrows ListOrders. Zero values are ignored.
type OrderFilter struct {
	Account string
	Market  string
	Since   int64
	Until   int64
	Limit   int
}

const insertOrder = `
	INSERT INTO spot_orders (
		account, order_id, market, market_type, side, type,
		amount, price, filled_amount, filled_value, base_fee, quote_fee,
		client_id, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (account, order_id)
	DO NOTHING
`

// SaveOrders saves orders in one transaction and returns how many were new
func (db *DB) SaveOrders(ctx context.Context, account string, orders []api.SpotOrder) (int, error) {
	if len(orders) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertOrder)
	if err != nil {
		return 0, errors.Wrap(err, "failed to prepare statement")
	}
	defer stmt.Close()

	saved := 0
	for _, o := range orders {
		result, err := stmt.ExecContext(ctx,
			account,
			o.OrderID,
			o.Market,
			o.MarketType,
			string(o.Side),
			string(o.Type),
			o.Amount,
			o.Price,
			o.FilledAmount,
			o.FilledValue,
			o.BaseFee,
			o.QuoteFee,
			o.ClientID,
			o.CreatedAt,
			o.UpdatedAt,
		)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to save order %d", o.OrderID)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			saved++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit transaction")
	}
	return saved, nil
}

// LastSyncStatus returns the most recent sync status for account and market,
// or a zero status when none has been recorded.
func (db *DB) LastSyncStatus(ctx context.Context, account, market string) (SyncStatus, error) {
	st := SyncStatus{Account: account, Market: market}
	var errMsg sql.NullString
	query := `
		SELECT COALESCE(last_updated_at, 0), high_updated_at, resume_page,
		       records_count, status, error_message
		FROM sync_status
		WHERE account = $1 AND market = $2
		ORDER BY id DESC
		LIMIT 1
	`
	err := db.QueryRowContext(ctx, query, account, market).Scan(
		&st.LastUpdatedAt,
		&st.HighUpdatedAt,
		&st.ResumePage,
		&st.RecordsCount,
		&st.Status,
		&errMsg,
	)
	if err == sql.ErrNoRows {
		return SyncStatus{Account: account, Market: market}, nil
	}
	if err != nil {
		return st, errors.Wrap(err, "failed to get last sync status")
	}
	st.ErrorMessage = errMsg.String
	return st, nil
}

// SaveSyncStatus saves sync status
func (db *DB) SaveSyncStatus(ctx context.Context, s SyncStatus) error {
	query := `
		INSERT INTO sync_status (
			account, market, last_sync_time, last_updated_at,
			high_updated_at, resume_page, records_count, status, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := db.ExecContext(ctx, query,
		s.Account,
		s.Market,
		time.Now(),
		s.LastUpdatedAt,
		s.HighUpdatedAt,
		s.ResumePage,
		s.RecordsCount,
		s.Status,
		s.ErrorMessage,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save sync status")
	}
	return nil
}

// ListOrders queries stored orders, newest first
func (db *DB) ListOrders(ctx context.Context, f OrderFilter) ([]Order, error) {
	query, args := buildListQuery(f)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query orders")
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		var (
			o        Order
			clientID sql.NullString
		)
		err := rows.Scan(
			&o.ID,
			&o.Account,
			&o.OrderID,
			&o.Market,
			&o.MarketType,
			&o.Side,
			&o.Type,
			&o.Amount,
			&o.Price,
			&o.FilledAmount,
			&o.FilledValue,
			&o.BaseFee,
			&o.QuoteFee,
			&clientID,
			&o.CreatedAt,
			&o.UpdatedAt,
			&o.SyncedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan order")
		}
		o.ClientID = clientID.String
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read orders")
	}
	return orders, nil
}

func buildListQuery(f OrderFilter) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, account, order_id, market, market_type, side, type,
		       amount, price, filled_amount, filled_value, base_fee, quote_fee,
		       client_id, created_at, updated_at, synced_at
		FROM spot_orders
		WHERE 1=1`)

	var args []interface{}
	add := func(clause string, v interface{}) {
		args = append(args, v)
		fmt.Fprintf(&sb, " AND %s $%d", clause, len(args))
	}

	if f.Account != "" {
		add("account =", f.Account)
	}
	if f.Market != "" {
		add("market =", f.Market)
	}
	if f.Since > 0 {
		add("updated_at >=", f.Since)
	}
	if f.Until > 0 {
		add("updated_at <=", f.Until)
	}

	sb.WriteString(" ORDER BY updated_at DESC")

	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	return sb.String(), args
}
