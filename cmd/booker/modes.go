package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/example/class-booker/internal/announce"
	"github.com/example/class-booker/internal/application"
	"github.com/example/class-booker/internal/browser"
	"github.com/example/class-booker/internal/chat"
	"github.com/example/class-booker/internal/config"
	"github.com/example/class-booker/internal/persistence"
	"github.com/example/class-booker/internal/persistence/jsonfile"
	"github.com/example/class-booker/internal/persistence/sqlite"
	"github.com/example/class-booker/internal/portal"
	"github.com/example/class-booker/internal/queue"
	"github.com/example/class-booker/internal/scheduler"
	"github.com/example/class-booker/internal/telegram"
)

func runAnnounce(ctx context.Context, cfg config.Config, _ io.Writer, logger *slog.Logger) error {
	if err := cfg.RequireChat(); err != nil {
		return err
	}
	bot, err := telegram.NewBot(cfg.TelegramToken)
	if err != nil {
		return err
	}
	job := announce.Job{
		Fetcher: browser.AnnouncementFetcher{
			URL:      cfg.AnnounceURL,
			Link:     cfg.AnnounceLink,
			Headless: cfg.Headless,
			Logger:   logger,
		},
		Notifier: telegram.NewNotifier(bot, cfg.TelegramChatID),
		Logger:   logger,
	}
	return job.Run(ctx)
}

func runBookWeek(ctx context.Context, cfg config.Config, stdout io.Writer, logger *slog.Logger) (err error) {
	if err := cfg.RequirePortal(); err != nil {
		return err
	}
	s, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.close()) }()

	// The chat is optional here; without it the summary only goes to stdout.
	var notifier application.Notifier
	if cfg.RequireChat() == nil {
		bot, err := telegram.NewBot(cfg.TelegramToken)
		if err != nil {
			return err
		}
		notifier = telegram.NewNotifier(bot, cfg.TelegramChatID)
	}

	batch := application.NewBatchServiceWithLogger(newProvider(cfg, logger), s.queue, cfg.WeeklyClasses, notifier, s.attempts,
		application.BatchOptions{Portal: cfg.PortalConfig()}, logger)
	report, err := batch.BookTemplate(ctx)
	fmt.Fprintln(stdout, report.Summary())
	return err
}

func runBot(ctx context.Context, cfg config.Config, _ io.Writer, logger *slog.Logger) (err error) {
	if err := errors.Join(cfg.RequirePortal(), cfg.RequireChat()); err != nil {
		return err
	}
	s, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.close()) }()

	bot, err := telegram.NewBot(cfg.TelegramToken)
	if err != nil {
		return err
	}
	notifier := telegram.NewNotifier(bot, cfg.TelegramChatID)
	provider := newProvider(cfg, logger)
	options := application.BatchOptions{Portal: cfg.PortalConfig()}

	booking := application.NewBookingServiceWithLogger(provider, s.queue, s.attempts, cfg.PortalConfig(), uuid.NewString, logger)
	// bookweek from chat replies with the summary itself, so it gets no notifier.
	chatBatch := application.NewBatchServiceWithLogger(provider, s.queue, cfg.WeeklyClasses, nil, s.attempts, options, logger)
	weekly := application.NewBatchServiceWithLogger(provider, s.queue, cfg.WeeklyClasses, notifier, s.attempts, options, logger)

	trigger, err := scheduler.NewTrigger(cfg.BatchSchedule, cfg.Location, func(ctx context.Context) error {
		_, err := weekly.RunWeekly(ctx)
		return err
	}, logger)
	if err != nil {
		return err
	}
	stopped := trigger.Start(ctx)
	defer func() { <-stopped }()

	dispatcher := chat.NewDispatcher(booking, chatBatch, logger)
	return telegram.NewTransport(bot, cfg.TelegramChatID, dispatcher, logger).Run(ctx)
}

func newProvider(cfg config.Config, logger *slog.Logger) portal.Provider {
	return portal.Exclusive(browser.NewProviderWithLogger(browser.Options{
		PortalURL:     cfg.PortalURL,
		NavLinks:      cfg.NavLinks,
		FrameHost:     cfg.FrameHost,
		Email:         cfg.PortalEmail,
		Password:      cfg.PortalPassword,
		SessionPath:   cfg.SessionPath,
		Headless:      cfg.Headless,
		ActionTimeout: cfg.Timeouts.Confirm * 2,
	}, logger))
}

// stores are the queue and the optional attempt history. With a SQLite DSN
// both live in the database; otherwise the queue is a JSON file and no
// history is kept.
type stores struct {
	queue    *queue.Queue
	attempts persistence.AttemptRepository
	close    func() error
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (stores, error) {
	if cfg.SQLiteDSN == "" {
		file := jsonfile.NewStoreWithLogger(cfg.QueuePath, logger)
		logger.Info("using queue file", "path", file.Path())
		return stores{
			queue: queue.NewWithLogger(file, logger),
			close: func() error { return nil },
		}, nil
	}

	storage, err := sqlite.Open(ctx, cfg.SQLiteDSN, logger)
	if err != nil {
		return stores{}, fmt.Errorf("open sqlite storage: %w", err)
	}
	return stores{
		queue:    queue.NewWithLogger(storage, logger),
		attempts: storage,
		close:    storage.Close,
	}, nil
}
