// Package bot runs the Telegram front end: it polls for updates and
// routes commands, free-text searches and inline-keyboard callbacks
// into the registry search / pagination / export flows.
package bot

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	rcron "github.com/robfig/cron/v3"

	"github.com/shohabbosdev/registrybot/internal/actionlog"
	"github.com/shohabbosdev/registrybot/internal/config"
	"github.com/shohabbosdev/registrybot/internal/registry"
	"github.com/shohabbosdev/registrybot/internal/session"
)

// TelegramBot interface for mocking telegram bot API
type TelegramBot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetSelf() tgbotapi.User
}

// tgBotWrapper wraps tgbotapi.BotAPI to implement TelegramBot interface
type tgBotWrapper struct {
	bot *tgbotapi.BotAPI
}

func (w *tgBotWrapper) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return w.bot.GetUpdatesChan(config)
}

func (w *tgBotWrapper) StopReceivingUpdates() {
	w.bot.StopReceivingUpdates()
}

func (w *tgBotWrapper) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return w.bot.Send(c)
}

func (w *tgBotWrapper) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return w.bot.Request(c)
}

func (w *tgBotWrapper) GetSelf() tgbotapi.User {
	return w.bot.Self
}

// BotFactory creates TelegramBot instances (allows mocking)
type BotFactory func(token, apiEndpoint string, client *http.Client) (TelegramBot, error)

// defaultBotFactory creates real telegram bot
var defaultBotFactory BotFactory = func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &tgBotWrapper{bot: bot}, nil
}

// RowUpdater writes one registry row back to the source (admin edits).
type RowUpdater interface {
	UpdateRow(ctx context.Context, spreadsheetID, worksheet string, rowIndex int, values []string) error
}

type Service struct {
	cfg        *config.Config
	engine     *registry.Engine
	cache      *registry.SnapshotCache
	updater    RowUpdater
	sessions   *session.Store
	actions    *actionlog.Log
	key        registry.Key
	bot        TelegramBot
	botFactory BotFactory
	cron       *rcron.Cron
	cancel     context.CancelFunc
	signalChan chan os.Signal // for testing
}

// New wires the bot service. fetcher feeds the snapshot cache; updater
// may be nil when the deployment has no admin row editing.
func New(cfg *config.Config, fetcher registry.Fetcher, updater RowUpdater) (*Service, error) {
	return NewWithFactory(cfg, fetcher, updater, defaultBotFactory)
}

// NewWithFactory creates a Service with a custom bot factory (for testing)
func NewWithFactory(cfg *config.Config, fetcher registry.Fetcher, updater RowUpdater, factory BotFactory) (*Service, error) {
	if cfg.Telegram.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if cfg.Sheet.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	return &Service{
		cfg:        cfg,
		engine:     registry.NewEngine(cfg.Registry.RequiredStatus),
		cache:      registry.NewSnapshotCache(fetcher, cfg.CacheTTL()),
		updater:    updater,
		sessions:   session.NewStore(),
		actions:    actionlog.New(cfg.Registry.ActionLogPath),
		key:        registry.Key{SourceID: cfg.Sheet.SpreadsheetID, View: cfg.Sheet.Worksheet},
		botFactory: factory,
	}, nil
}

func (s *Service) initBot() error {
	client := http.DefaultClient
	if s.cfg.Telegram.Proxy != "" {
		proxyURL, err := url.Parse(s.cfg.Telegram.Proxy)
		if err != nil {
			return fmt.Errorf("parse proxy url: %w", err)
		}
		client = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}

	bot, err := s.botFactory(s.cfg.Telegram.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	s.bot = bot
	log.Printf("[bot] authorized as @%s", bot.GetSelf().UserName)
	return nil
}

// Start begins polling. Each update is handled on its own goroutine:
// sessions are partitioned per chat and the snapshot cache is the only
// shared resource, so cross-conversation ordering does not matter.
func (s *Service) Start(ctx context.Context) error {
	if err := s.initBot(); err != nil {
		return err
	}

	ctx, s.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := s.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case update := <-updates:
				go s.handleUpdate(ctx, update)
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := s.startWarmRefresh(ctx); err != nil {
		log.Printf("[bot] warm refresh disabled: %v", err)
	}

	log.Printf("[bot] polling started")
	return nil
}

// startWarmRefresh schedules the optional cache re-warm job.
func (s *Service) startWarmRefresh(ctx context.Context) error {
	spec := s.cfg.Cache.RefreshSpec
	if spec == "" {
		return nil
	}
	s.cron = rcron.New(rcron.WithSeconds())
	_, err := s.cron.AddFunc(spec, func() {
		s.cache.Invalidate(s.key)
		if _, err := s.cache.Snapshot(ctx, s.key); err != nil {
			log.Printf("[bot] warm refresh failed: %v", err)
			return
		}
		log.Printf("[bot] snapshot cache re-warmed")
	})
	if err != nil {
		s.cron = nil
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	s.cron.Start()
	log.Printf("[bot] warm refresh scheduled: %s", spec)
	return nil
}

// Run starts the service and blocks until SIGINT/SIGTERM.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.Start(ctx); err != nil {
		return err
	}

	sigCh := s.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh

	log.Printf("[bot] shutting down...")
	return s.Stop()
}

func (s *Service) Stop() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.bot != nil {
		s.bot.StopReceivingUpdates()
	}
	log.Printf("[bot] stopped")
	return nil
}

// SetBot sets the bot (for testing)
func (s *Service) SetBot(bot TelegramBot) {
	s.bot = bot
}

func (s *Service) isAdmin(chatID int64) bool {
	for _, id := range s.cfg.Telegram.AdminIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

// logAction records one user action; log-write failures never affect
// the handling of the triggering event.
func (s *Service) logAction(chatID int64, action string) {
	if err := s.actions.Record(chatID, action); err != nil {
		log.Printf("[bot] action log write failed: %v", err)
	}
}
