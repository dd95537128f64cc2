package telegram

import (
	"ImeiGuard/internal/shared/config"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const jobBuffer = 100

// UpdateHandler consumes one Telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update *tgbotapi.Update)
}

// BotServer is responsible for running the bot (polling or webhook)
type BotServer struct {
	api     *tgbotapi.BotAPI
	handler UpdateHandler
	cfg     *config.BotConfig
	log     zerolog.Logger
}

// NewBotServer creates a new server instance
func NewBotServer(
	api *tgbotapi.BotAPI,
	handler UpdateHandler,
	cfg *config.BotConfig,
	baseLogger *zerolog.Logger,
) *BotServer {
	return &BotServer{
		api:     api,
		handler: handler,
		cfg:     cfg,
		log:     baseLogger.With().Str("component", "bot_server").Logger(),
	}
}

// Start begins the bot server based on the config mode
func (s *BotServer) Start(ctx context.Context) error {
	s.log.Info().Str("mode", s.cfg.Mode).Msg("Starting bot server...")

	switch s.cfg.Mode {
	case "polling":
		// startPolling will block until the context is cancelled
		return s.startPolling(ctx)
	case "webhook":
		// startWebhook will block until the context is cancelled
		return s.startWebhook(ctx)
	default:
		return fmt.Errorf("unknown bot mode: %s", s.cfg.Mode)
	}
}

// startPolling starts the bot in long polling mode with a worker pool
func (s *BotServer) startPolling(ctx context.Context) error {
	s.log.Info().Int("workers", s.cfg.Polling.WorkerPoolSize).Msg("Starting bot in POLLING mode")

	// 1. Clear any existing webhook
	deleteWebhookConfig := tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: false,
	}
	if _, err := s.api.Request(deleteWebhookConfig); err != nil {
		s.log.Warn().Err(err).Msg("Failed to delete webhook (continuing anyway)")
	} else {
		s.log.Info().Msg("Webhook deleted successfully")
	}

	// 2. Create the channel for updates
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.api.GetUpdatesChan(u)

	s.log.Info().Msg("Polling update listener started")
	pool := newWorkerPool(s.cfg.Polling.WorkerPoolSize, s.handler, s.log)
	pool.Run(ctx, updates)

	s.api.StopReceivingUpdates()
	s.log.Info().Msg("Polling stopped gracefully")
	return nil
}

// startWebhook starts the bot in webhook mode (for production)
func (s *BotServer) startWebhook(ctx context.Context) error {
	s.log.Info().
		Int("port", s.cfg.Webhook.ListenPort).
		Int("workers", s.cfg.Polling.WorkerPoolSize). // We reuse the worker pool size
		Msg("Starting bot in WEBHOOK mode")

	// 1. Set the webhook
	webhookURL := fmt.Sprintf("%s/webhook/%s", s.cfg.Webhook.URL, s.api.Token)
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to create webhook config")
		return err
	}
	if _, err = s.api.Request(wh); err != nil {
		s.log.Error().Err(err).Msg("Failed to set webhook")
		return err
	}

	// 2. Add GetWebhookInfo check
	info, err := s.api.GetWebhookInfo()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get webhook info")
		return err
	}
	if info.LastErrorDate != 0 {
		s.log.Error().
			Str("error_message", info.LastErrorMessage).
			Msg("Telegram webhook has a last error")
	} else {
		s.log.Info().Msg("Webhook set successfully, no last error")
	}

	// 3. Get the update channel from the bot library
	// This sets up the http.DefaultServeMux
	updates := s.api.ListenForWebhook("/webhook/" + s.api.Token)

	// 4. Start the HTTP server in a goroutine
	// We use ListenAndServe, not ListenAndServeTLS,
	// assuming a reverse proxy (Nginx, Caddy) is handling SSL.
	listenAddr := fmt.Sprintf("127.0.0.1:%d", s.cfg.Webhook.ListenPort)
	s.log.Info().Str("addr", listenAddr).Msg("Starting HTTP server for webhook")

	httpServer := &http.Server{Addr: listenAddr}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("Webhook HTTP server failed")
		}
	}()

	s.log.Info().Msg("Webhook update listener started")
	pool := newWorkerPool(s.cfg.Polling.WorkerPoolSize, s.handler, s.log)
	pool.Run(ctx, updates)

	s.log.Info().Msg("Shutting down HTTP server...")
	if err := httpServer.Shutdown(context.Background()); err != nil {
		s.log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	s.log.Info().Msg("Webhook server stopped gracefully")
	return nil
}

// workerPool hands updates to a fixed set of workers. Updates of one chat
// always go to the same worker so they are handled in arrival order.
type workerPool struct {
	size    int
	handler UpdateHandler
	log     zerolog.Logger
}

func newWorkerPool(size int, handler UpdateHandler, log zerolog.Logger) *workerPool {
	if size < 1 {
		size = 1
	}
	return &workerPool{size: size, handler: handler, log: log}
}

// Run dispatches updates until ctx is done or updates is closed, then
// waits for the workers to drain their queues.
func (p *workerPool) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	// Handlers outlive the shutdown signal so in-flight replies are sent.
	handlerCtx := context.WithoutCancel(ctx)

	jobs := make([]chan tgbotapi.Update, p.size)
	var wg sync.WaitGroup
	for w := range jobs {
		jobs[w] = make(chan tgbotapi.Update, jobBuffer)
		wg.Add(1)
		go func(id int, queue <-chan tgbotapi.Update) {
			defer wg.Done()
			log := p.log.With().Int("worker_id", id).Logger()
			log.Info().Msg("Starting worker")
			for job := range queue {
				p.handler.HandleUpdate(handlerCtx, &job)
			}
			log.Info().Msg("Stopping worker (channel closed)")
		}(w+1, jobs[w])
	}

	defer func() {
		for _, queue := range jobs {
			close(queue)
		}
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done(): // Shutdown signal received
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			jobs[p.shard(&update)] <- update
		}
	}
}

func (p *workerPool) shard(update *tgbotapi.Update) int {
	chat := update.FromChat()
	if chat == nil {
		return 0
	}
	id := chat.ID
	if id < 0 {
		id = -id
	}
	return int(id % int64(p.size))
}
