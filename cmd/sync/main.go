package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/signalalpha/coinex-trading/internal/api"
	"github.com/signalalpha/coinex-trading/internal/config"
	"github.com/signalalpha/coinex-trading/internal/database"
	"github.com/signalalpha/coinex-trading/internal/monitor"
	"github.com/signalalpha/coinex-trading/internal/sync"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "coinex-sync",
		Usage:   "CoinEx finished order sync service",
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
			&cli.BoolFlag{
				Name:  "once",
				Usage: "run a single sync pass and exit",
			},
		},
		Action: runSync,
		Commands: []*cli.Command{
			{
				Name:  "history",
				Usage: "list synced orders from the database",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "account",
						Usage: "filter by account name",
					},
					&cli.StringFlag{
						Name:    "market",
						Aliases: []string{"m"},
						Usage:   "filter by market",
					},
					&cli.DurationFlag{
						Name:  "since",
						Usage: "only orders updated within this duration (e.g. 24h)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Value: 50,
						Usage: "maximum number of orders",
					},
				},
				Action: runHistory,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ValidateSync(); err != nil {
		return nil, fmt.Errorf("invalid sync configuration: %w", err)
	}
	return cfg, nil
}

func openDB(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func runHistory(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	db, err := openDB(c.Context, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	filter := database.OrderFilter{
		Account: c.String("account"),
		Market:  strings.ToUpper(c.String("market")),
		Limit:   c.Int("limit"),
	}
	if since := c.Duration("since"); since > 0 {
		filter.Since = time.Now().Add(-since).UnixMilli()
	}

	orders, err := db.ListOrders(c.Context, filter)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(orders, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runSync(c *cli.Context) error {
	configPath := c.String("config")
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if logLevel := c.String("log-level"); logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger := monitor.NewLogger(cfg.Log)
	defer logger.Close()

	logger.Info("Starting CoinEx order sync service")
	logger.WithFields(map[string]interface{}{
		"config_file": configPath,
		"log_level":   cfg.Log.Level,
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("Database connected")

	timeout := time.Duration(cfg.CoinEx.TimeoutSeconds) * time.Second
	newClient := func(acc config.AccountConfig) (sync.OrderSource, error) {
		client, err := api.NewClient(
			cfg.CoinEx.APIBaseURL,
			acc.APIKey,
			acc.SecretKey,
			api.WithTimeout(timeout),
			api.WithLogger(logger.WithField("account", acc.Name)),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	settings := sync.Settings{
		Interval: time.Duration(cfg.Sync.IntervalSeconds) * time.Second,
		PageSize: cfg.Sync.PageSize,
		MaxPages: cfg.Sync.MaxPages,
		Markets:  cfg.Sync.Markets,
		Accounts: cfg.SyncAccounts(),
	}
	service := sync.NewService(db, newClient, settings, logger)

	logger.WithFields(map[string]interface{}{
		"interval_seconds": cfg.Sync.IntervalSeconds,
		"page_size":        cfg.Sync.PageSize,
		"max_pages":        cfg.Sync.MaxPages,
		"markets":          cfg.Sync.Markets,
		"accounts_count":   len(settings.Accounts),
	}).Info("Sync settings")

	if c.Bool("once") {
		if err := db.InitSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize database schema: %w", err)
		}
		service.SyncAll(ctx)
		return nil
	}

	if err := service.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sync service: %w", err)
	}

	logger.Info("Order sync service running, press Ctrl+C to stop")
	<-ctx.Done()
	logger.Info("Received stop signal, shutting down")

	service.Stop()
	return nil
}
