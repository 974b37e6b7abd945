package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/campusconnect/campusconnect/internal/api"
	"github.com/campusconnect/campusconnect/internal/bot"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and, when BOT_TOKEN is set, the Telegram bot",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var tg *tgbotapi.BotAPI
	if token := cfg.Telegram.BotToken; token != "" {
		tg, err = tgbotapi.NewBotAPI(token)
		if err != nil {
			return err
		}
		tg.Debug = false
		log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

		// Register bot commands for Telegram's command menu
		bot.RegisterCommands(tg)
	} else {
		log.Info().Msg("BOT_TOKEN is not set, telegram bot disabled")
	}

	router := api.NewRouter(api.Deps{
		Advisor:     a.advisor,
		Sessions:    a.sessions,
		Listings:    a.listings,
		Analyzer:    a.analyzer,
		CORSOrigins: cfg.Server.CORSOrigins,
		Version:     Version,
	})
	server := api.NewServer(router, api.ServerOpts{
		Addr:            cfg.Server.Address(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run(ctx)
	})

	if tg != nil {
		b := bot.NewBot(tg, a.advisor, a.sessions, a.basePrices.Categories())
		if a.analyzer != nil {
			b.SetAnalyzer(a.analyzer)
		}
		g.Go(func() error {
			return runBot(ctx, tg, b)
		})
	}

	err = g.Wait()

	if n, endErr := a.sessions.EndAll(); endErr != nil {
		log.Error().Err(endErr).Msg("failed to end sessions")
	} else {
		log.Info().Int("count", n).Msg("ended open sessions")
	}

	if err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("shutdown with error")
		return err
	}
	log.Info().Msg("shutdown complete")
	return nil
}

func runBot(ctx context.Context, tg *tgbotapi.BotAPI, b *bot.Bot) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			tg.StopReceivingUpdates()
			log.Info().Msg("waiting for active handlers to finish")
			wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}
