package sync

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/signalalpha/coinex-trading/internal/api"
	"github.com/signalalpha/coinex-trading/internal/config"
	"github.com/signalalpha/coinex-trading/internal/database"
)

// OrderSource lists finished orders for one account
type OrderSource interface {
	ListFinishedOrders(ctx context.Context, q api.OrderQuery) (api.SpotOrderList, error)
}

// ClientFactory builds an OrderSource for an account
type ClientFactory func(acc config.AccountConfig) (OrderSource, error)

// Store persists synced orders
type Store interface {
	InitSchema(ctx context.Context) error
	SaveOrders(ctx context.Context, account string, orders []api.SpotOrder) (int, error)
	LastSyncStatus(ctx context.Context, account, market string) (database.SyncStatus, error)
	SaveSyncStatus(ctx context.Context, s database.SyncStatus) error
}

// Settings controls the sync loop
type Settings struct {
	Interval time.Duration
	PageSize int
	MaxPages int
	Markets  []string
	Accounts []config.AccountConfig
}

// Service handles syncing finished orders from the CoinEx API to the database
type Service struct {
	store     Store
	newClient ClientFactory
	settings  Settings
	logger    logrus.FieldLogger
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewService creates a new sync service
func NewService(store Store, newClient ClientFactory, settings Settings, logger logrus.FieldLogger) *Service {
	if settings.PageSize <= 0 {
		settings.PageSize = 100
	}
	if settings.MaxPages <= 0 {
		settings.MaxPages = 1
	}
	return &Service{
		store:     store,
		newClient: newClient,
		settings:  settings,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Start initializes the schema and starts the sync loop
func (s *Service) Start(ctx context.Context) error {
	if err := s.store.InitSchema(ctx); err != nil {
		return errors.Wrap(err, "failed to initialize database schema")
	}
	s.logger.Info("Database schema initialized")

	s.wg.Add(1)
	go s.syncLoop()

	s.logger.Info("Order sync service started")
	return nil
}

// Stop stops the sync loop and waits for the running pass to finish
func (s *Service) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("Order sync service stopped")
}

func (s *Service) syncLoop() {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(s.settings.Interval)
	defer ticker.Stop()

	// Run immediately on start
	s.SyncAll(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.SyncAll(ctx)
		}
	}
}

// SyncAll syncs every enabled account and market once
func (s *Service) SyncAll(ctx context.Context) {
	s.logger.Info("Starting order sync pass")

	for _, acc := range s.settings.Accounts {
		if !acc.Enabled {
			s.logger.WithField("account", acc.Name).Info("Skipping disabled account")
			continue
		}

		client, err := s.newClient(acc)
		if err != nil {
			s.logger.WithError(err).WithField("account", acc.Name).Error("Failed to create CoinEx client")
			for _, market := range s.settings.Markets {
				s.saveError(ctx, s.loadState(ctx, acc.Name, market), err)
			}
			continue
		}

		for _, market := range s.settings.Markets {
			if ctx.Err() != nil {
				return
			}
			s.syncAccountMarket(ctx, client, acc.Name, market)
		}
	}

	s.logger.Info("Order sync pass finished")
}

func (s *Service) syncAccountMarket(ctx context.Context, client OrderSource, account, market string) {
	start := time.Now()
	log := s.logger.WithFields(logrus.Fields{
		"account": account,
		"market":  market,
	})

	state := s.loadState(ctx, account, market)

	res, err := s.fetchNewOrders(ctx, client, market, state)
	if err != nil {
		log.WithError(err).Error("Failed to fetch finished orders")
		s.saveError(ctx, state, err)
		return
	}

	saved, err := s.store.SaveOrders(ctx, account, res.orders)
	if err != nil {
		log.WithError(err).WithField("count", len(res.orders)).Error("Failed to save orders")
		s.saveError(ctx, state, err)
		return
	}

	next := database.SyncStatus{
		Account:       account,
		Market:        market,
		LastUpdatedAt: state.LastUpdatedAt,
		HighUpdatedAt: res.high,
		RecordsCount:  saved,
		Status:        "success",
	}
	if res.nextPage > 0 {
		// older orders remain beyond the page cap; keep the watermark until
		// the backfill reaches it
		next.ResumePage = res.nextPage
		next.Status = "partial"
	} else {
		next.LastUpdatedAt = res.high
	}

	log.WithFields(logrus.Fields{
		"fetched":     res.fetched,
		"new":         len(res.orders),
		"saved":       saved,
		"resume_page": next.ResumePage,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Sync succeeded")

	s.saveStatus(ctx, next)
}

type fetchResult struct {
	orders   []api.SpotOrder
	fetched  int
	high     int64
	nextPage int // 0 when the watermark was reached
}

// fetchNewOrders pages through finished orders, newest first, starting at the
// resume page of an unfinished backfill. It stops at a short page, at a page
// reaching below the watermark, or after MaxPages.
func (s *Service) fetchNewOrders(ctx context.Context, client OrderSource, market string, state database.SyncStatus) (fetchResult, error) {
	res := fetchResult{high: state.HighUpdatedAt}
	if res.high < state.LastUpdatedAt {
		res.high = state.LastUpdatedAt
	}

	first := 1
	if state.ResumePage > 0 {
		first = state.ResumePage
	}

	for page := first; page < first+s.settings.MaxPages; page++ {
		orders, err := client.ListFinishedOrders(ctx, api.OrderQuery{
			Market: market,
			Page:   page,
			Limit:  s.settings.PageSize,
		})
		if err != nil {
			return res, errors.Wrapf(err, "page %d", page)
		}
		res.fetched += len(orders)

		reached := false
		for _, o := range orders {
			// equal timestamps are refetched; the store ignores duplicates
			if o.UpdatedAt < state.LastUpdatedAt {
				reached = true
				continue
			}
			res.orders = append(res.orders, o)
			if o.UpdatedAt > res.high {
				res.high = o.UpdatedAt
			}
		}

		if len(orders) < s.settings.PageSize || reached {
			res.nextPage = 0
			return res, nil
		}
		res.nextPage = page + 1
	}
	return res, nil
}

func (s *Service) loadState(ctx context.Context, account, market string) database.SyncStatus {
	state, err := s.store.LastSyncStatus(ctx, account, market)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"account": account,
			"market":  market,
		}).Warn("Failed to read sync state, fetching from the first page")
		state = database.SyncStatus{}
	}
	state.Account = account
	state.Market = market
	return state
}

// saveError records a failed pass without moving the sync state
func (s *Service) saveError(ctx context.Context, state database.SyncStatus, err error) {
	state.RecordsCount = 0
	state.Status = "error"
	state.ErrorMessage = err.Error()
	s.saveStatus(ctx, state)
}

func (s *Service) saveStatus(ctx context.Context, status database.SyncStatus) {
	if err := s.store.SaveSyncStatus(ctx, status); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"account": status.Account,
			"market":  status.Market,
		}).Warn("Failed to save sync status")
	}
}
