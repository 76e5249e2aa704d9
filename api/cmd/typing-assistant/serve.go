package main

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"typing-assistant/api/internal/config"
	"typing-assistant/api/internal/correction"
	"typing-assistant/api/internal/handle"
	"typing-assistant/api/internal/httpserver"
	"typing-assistant/api/internal/llm"
	"typing-assistant/api/internal/observe"
	"typing-assistant/api/internal/store"
	"typing-assistant/api/internal/telegram"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web form, JSON API and (if configured) the Telegram bot",
		Long: `Start the HTTP server.

Routes:
  GET/POST /          - correction form
  POST /v1/correct    - JSON correction API
  GET  /v1/history    - recent corrections (needs DATABASE_URL)
  GET  /v1/history/ID - one stored correction
  GET  /v1/engines    - configured engines
  GET  /healthz       - liveness
  GET  /readyz        - readiness (pings the database when configured)
  GET  /metrics       - Prometheus metrics

The Telegram bot starts when TELEGRAM_BOT_TOKEN is set: webhook mode when
WEBHOOK_URL is set, long polling otherwise.

Examples:
  typing-assistant serve
  typing-assistant serve --port 8080 --config ./typing-assistant.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "override the listening port")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	engs, def, err := buildEngines(cfg, logger)
	if err != nil {
		return err
	}
	metrics := observe.New()

	req := correction.NewRequestor(def, logger.Named("correction"))
	req.Observer = metrics

	var (
		history  handle.HistoryReader
		checkers []httpserver.Checker
	)
	if cfg.DatabaseEnabled() {
		db, err := store.Open(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()

		repo := store.NewHistoryRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		req.History = repo
		history = repo
		checkers = append(checkers, httpserver.Checker{Name: "database", Check: repo.Ping})
		logger.Info("history store enabled")
	}

	srv := httpserver.New(cfg.Addr(), metrics, logger.Named("http"), checkers...)
	handle.New(req, engs, history, logger.Named("handle")).Register(srv.Mux())

	g, gctx := errgroup.WithContext(ctx)

	if cfg.TelegramEnabled() {
		router, run, err := startBot(cfg, srv, req, engs, def, metrics, logger.Named("telegram"))
		if err != nil {
			return err
		}
		defer router.Wait()
		if run != nil {
			g.Go(func() error { return run(gctx) })
		}
	}

	logger.Info("typing assistant starting",
		zap.String("addr", cfg.Addr()),
		zap.String("engine", def.Name()),
		zap.String("model", def.GetModel()),
		zap.Strings("engines", engs.Names()),
	)
	g.Go(func() error { return srv.Run(gctx) })
	return g.Wait()
}

// startBot wires the Telegram router. In webhook mode the handler is mounted on
// srv and run is nil; in polling mode run is the polling loop.
func startBot(
	cfg *config.Config,
	srv *httpserver.Server,
	req *correction.Requestor,
	engs *llm.Engines,
	def llm.Engine,
	metrics *observe.Metrics,
	logger *zap.Logger,
) (*telegram.Router, func(context.Context) error, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, nil, fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false

	router := telegram.NewRouter(bot, req, engs, llm.NewManager(def), logger)
	router.Recorder = metrics
	if err := router.RegisterCommands(); err != nil {
		logger.Warn("set bot commands failed", zap.Error(err))
	}

	if cfg.Telegram.WebhookURL != "" {
		path := telegram.WebhookPath(bot.Token)
		srv.Handle("POST "+path, router.WebhookHandler(bot))
		if err := router.SetWebhook(cfg.Telegram.WebhookURL, path); err != nil {
			return nil, nil, fmt.Errorf("telegram webhook: %w", err)
		}
		logger.Info("telegram webhook mode", zap.String("bot", bot.Self.UserName))
		return router, nil, nil
	}

	// a webhook left over from an earlier deployment blocks getUpdates
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		logger.Warn("delete webhook failed", zap.Error(err))
	}
	logger.Info("telegram polling mode", zap.String("bot", bot.Self.UserName))
	return router, func(ctx context.Context) error { return router.RunPolling(ctx, bot) }, nil
}
