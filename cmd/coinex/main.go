package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/signalalpha/coinex-trading/internal/api"
	"github.com/signalalpha/coinex-trading/internal/config"
	"github.com/signalalpha/coinex-trading/internal/monitor"
	"github.com/signalalpha/coinex-trading/internal/trader"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func marketFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "market",
		Aliases: []string{"m"},
		Usage:   "market symbol, defaults to trading.default_market",
	}
}

func orderQueryFlags() []cli.Flag {
	return []cli.Flag{
		marketFlag(),
		&cli.StringFlag{
			Name:    "side",
			Aliases: []string{"d"},
			Usage:   "filter by side (buy/sell)",
		},
		&cli.IntFlag{
			Name:  "page",
			Value: 1,
			Usage: "page number",
		},
		&cli.IntFlag{
			Name:  "limit",
			Value: 10,
			Usage: "records per page",
		},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "coinex",
		Usage:   "CoinEx spot trading API client",
		Version: fmt.Sprintf("%s (build: %s, commit: %s)", Version, BuildTime, GitCommit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file path",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "balance",
				Usage:  "show spot balances",
				Action: cmdBalance,
			},
			{
				Name:  "subs",
				Usage: "list sub-accounts",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "filter by sub-account name",
					},
					&cli.BoolFlag{
						Name:  "frozen",
						Usage: "filter by frozen state",
					},
				},
				Action: cmdSubAccounts,
			},
			{
				Name:  "order",
				Usage: "place a spot order",
				Flags: []cli.Flag{
					marketFlag(),
					&cli.StringFlag{
						Name:    "side",
						Aliases: []string{"d"},
						Value:   "buy",
						Usage:   "order side (buy/sell)",
					},
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Value:   "limit",
						Usage:   "order type (market/limit)",
					},
					&cli.StringFlag{
						Name:     "amount",
						Aliases:  []string{"a"},
						Usage:    "order amount",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "price",
						Usage: "limit price (required for limit orders)",
					},
					&cli.StringFlag{
						Name:  "client-id",
						Usage: "client order id, generated when empty",
					},
					&cli.BoolFlag{
						Name:  "normalize",
						Usage: "round amount and price to the market precision first",
					},
					&cli.BoolFlag{
						Name:  "check",
						Usage: "verify balances and trading.max_order_value before placing",
					},
				},
				Action: cmdPlaceOrder,
			},
			{
				Name:  "cancel",
				Usage: "cancel a pending spot order",
				Flags: []cli.Flag{
					marketFlag(),
					&cli.Int64Flag{
						Name:     "id",
						Usage:    "order id",
						Required: true,
					},
				},
				Action: cmdCancelOrder,
			},
			{
				Name:   "pending",
				Usage:  "list pending orders",
				Flags:  orderQueryFlags(),
				Action: cmdPendingOrders,
			},
			{
				Name:   "finished",
				Usage:  "list finished orders",
				Flags:  orderQueryFlags(),
				Action: cmdFinishedOrders,
			},
			{
				Name:      "market",
				Usage:     "show market definitions",
				ArgsUsage: "[market...]",
				Action:    cmdMarket,
			},
			{
				Name:  "deposit-address",
				Usage: "show the deposit address for a currency",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "ccy",
						Usage:    "currency",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "chain",
						Usage:    "chain",
						Required: true,
					},
				},
				Action: cmdDepositAddress,
			},
			{
				Name:   "check",
				Usage:  "probe the public market endpoint and the authenticated balance endpoint",
				Action: cmdCheck,
			},
		},
		Before: func(c *cli.Context) error {
			_ = godotenv.Load()

			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			if c.String("log-level") != "" {
				cfg.Log.Level = c.String("log-level")
			}

			c.App.Metadata["config"] = cfg
			c.App.Metadata["logger"] = monitor.NewLogger(cfg.Log)
			return nil
		},
		After: func(c *cli.Context) error {
			if logger, ok := c.App.Metadata["logger"].(*monitor.Logger); ok {
				return logger.Close()
			}
			return nil
		},
	}
}

func getConfig(c *cli.Context) *config.Config {
	return c.App.Metadata["config"].(*config.Config)
}

func getLogger(c *cli.Context) *monitor.Logger {
	return c.App.Metadata["logger"].(*monitor.Logger)
}

func getClient(c *cli.Context) (*api.Client, error) {
	cfg := getConfig(c)
	return api.NewClient(
		cfg.CoinEx.APIBaseURL,
		cfg.CoinEx.APIKey,
		cfg.CoinEx.SecretKey,
		api.WithTimeout(time.Duration(cfg.CoinEx.TimeoutSeconds)*time.Second),
		api.WithLogger(getLogger(c)),
	)
}

func getMarket(c *cli.Context) string {
	if m := c.String("market"); m != "" {
		return strings.ToUpper(m)
	}
	return getConfig(c).Trading.DefaultMarket
}

func printJSON(data interface{}) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(jsonData))
}

func cmdBalance(c *cli.Context) error {
	client, err := getClient(c)
	if err != nil {
		return err
	}

	balances, err := client.GetSpotBalance(c.Context)
	if err != nil {
		return fmt.Errorf("failed to get spot balance: %w", err)
	}
	printJSON(balances)
	return nil
}

func cmdSubAccounts(c *cli.Context) error {
	client, err := getClient(c)
	if err != nil {
		return err
	}

	q := api.SubAccountQuery{SubUserName: c.String("name")}
	if c.IsSet("frozen") {
		frozen := c.Bool("frozen")
		q.IsFrozen = &frozen
	}

	accounts, err := client.ListSubAccounts(c.Context, q)
	if err != nil {
		return fmt.Errorf("failed to list sub-accounts: %w", err)
	}
	printJSON(accounts)
	return nil
}

func cmdPlaceOrder(c *cli.Context) error {
	client, err := getClient(c)
	if err != nil {
		return err
	}
	logger := getLogger(c)

	req, err := orderRequest(c)
	if err != nil {
		return err
	}

	if c.Bool("normalize") || c.Bool("check") {
		market, err := client.GetSpotMarket(c.Context, req.Market)
		if err != nil {
			return fmt.Errorf("failed to get market %s: %w", req.Market, err)
		}
		if c.Bool("normalize") {
			if req, err = trader.NormalizeOrder(req, *market); err != nil {
				return err
			}
		}
		if c.Bool("check") {
			if err := checkOrder(c, client, req, *market); err != nil {
				return err
			}
		}
	}

	logger.WithFields(map[string]interface{}{
		"market":    req.Market,
		"side":      req.Side,
		"type":      req.Type,
		"amount":    req.Amount.String(),
		"price":     req.Price.String(),
		"client_id": req.ClientID,
	}).Info("Placing order")

	order, err := client.PlaceOrder(c.Context, req)
	if err != nil {
		return fmt.Errorf("failed to place order: %w", err)
	}
	printJSON(order)
	return nil
}

func checkOrder(c *cli.Context, client *api.Client, req api.PlaceOrderRequest, market api.MarketInfo) error {
	balances, err := client.GetSpotBalance(c.Context)
	if err != nil {
		return fmt.Errorf("failed to get spot balance: %w", err)
	}
	risk := trader.NewRiskManager(trader.RiskConfig{
		MaxOrderValue: decimal.NewFromFloat(getConfig(c).Trading.MaxOrderValue),
	})
	if err := risk.CheckOrder(req, market, balances); err != nil {
		return fmt.Errorf("order rejected by pre-trade check: %w", err)
	}
	return nil
}

func orderRequest(c *cli.Context) (api.PlaceOrderRequest, error) {
	amount, err := decimal.NewFromString(c.String("amount"))
	if err != nil {
		return api.PlaceOrderRequest{}, fmt.Errorf("invalid amount %q: %w", c.String("amount"), err)
	}

	req := api.PlaceOrderRequest{
		Market:   getMarket(c),
		Side:     api.OrderSide(strings.ToLower(c.String("side"))),
		Type:     api.OrderType(strings.ToLower(c.String("type"))),
		Amount:   amount,
		ClientID: c.String("client-id"),
	}
	if req.ClientID == "" {
		req.ClientID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	if req.Type == api.OrderTypeLimit {
		if c.String("price") == "" {
			return req, errors.New("price is required for limit orders")
		}
		price, err := decimal.NewFromString(c.String("price"))
		if err != nil {
			return req, fmt.Errorf("invalid price %q: %w", c.String("price"), err)
		}
		req.Price = price
	}
	return req, nil
}

func cmdCancelOrder(c *cli.Context) error {
	client, err := getClient(c)
	if err != nil {
		return err
	}

	market := getMarket(c)
	getLogger(c).WithFields(map[string]interface{}{
		"market":   market,
		"order_id": c.Int64("id"),
	}).Info("Cancelling order")

	order, err := client.CancelOrder(c.Context, market, c.Int64("id"))
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	printJSON(order)
	return nil
}

func orderQuery(c *cli.Context) api.OrderQuery {
	q := api.OrderQuery{
		Side:  api.OrderSide(strings.ToLower(c.String("side"))),
		Page:  c.Int("page"),
		Limit: c.Int("limit"),
	}
	if m := c.String("market"); m != "" {
		q.Market = strings.ToUpper(m)
	}
	return q
}

func cmdPendingOrders(c *cli.Context) error {
	client, err := getClient(c)
	if err != nil {
		return err
	}

	orders, err := client.ListPendingOrders(c.Context, orderQuery(c))
	if err != nil {
		return fmt.Errorf("failed to list pending orders: %w", err)
	}
	printJSON(orders)
	return nil
}

func cmdFinishedOrders(c *cli.Context) error {
	client, err := getClient(c)
	if err != nil {
		return err
	}

	orders, err := client.ListFinishedOrders(c.Context, orderQuery(c))
	if err != nil {
		return fmt.Errorf("failed to list finished orders: %w", err)
	}
	printJSON(orders)
	return nil
}

func cmdMarket(c *cli.Context) error {
	client, err := getClient(c)
	if err != nil {
		return err
	}

	var markets []string
	for _, m := range c.Args().Slice() {
		markets = append(markets, strings.ToUpper(m))
	}

	infos, err := client.GetSpotMarkets(c.Context, markets...)
	if err != nil {
		return fmt.Errorf("failed to get markets: %w", err)
	}
	printJSON(infos)
	return nil
}

func cmdDepositAddress(c *cli.Context) error {
	client, err := getClient(c)
	if err != nil {
		return err
	}

	addr, err := client.GetDepositAddress(c.Context, strings.ToUpper(c.String("ccy")), strings.ToUpper(c.String("chain")))
	if err != nil {
		return fmt.Errorf("failed to get deposit address: %w", err)
	}
	printJSON(addr)
	return nil
}

func cmdCheck(c *cli.Context) error {
	client, err := getClient(c)
	if err != nil {
		return err
	}
	logger := getLogger(c)

	ctx, cancel := context.WithTimeout(c.Context, time.Minute)
	defer cancel()

	market := getMarket(c)
	logger.WithField("market", market).Info("Step 1: public market endpoint")
	info, err := client.GetSpotMarket(ctx, market)
	if err != nil {
		return fmt.Errorf("public endpoint failed: %w", err)
	}
	logger.WithFields(map[string]interface{}{
		"base_precision":  info.BaseCcyPrecision,
		"quote_precision": info.QuoteCcyPrecision,
		"min_amount":      info.MinAmount.String(),
	}).Info("Market endpoint reachable")

	logger.Info("Step 2: authenticated balance endpoint")
	balances, err := client.GetSpotBalance(ctx)
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			logger.Error("Check the API key, secret and IP whitelist in the CoinEx API settings")
		}
		return fmt.Errorf("authenticated endpoint failed: %w", err)
	}
	logger.WithField("currencies", len(balances)).Info("Credentials accepted")

	fmt.Println("check passed")
	return nil
}
