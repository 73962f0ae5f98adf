package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alqaedgcb/legal-telegram-bot/internal/common/config"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/common/logger"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/features/access/repository/memory"
	accesssvc "github.com/Alqaedgcb/legal-telegram-bot/internal/features/access/service"
	moderationmodels "github.com/Alqaedgcb/legal-telegram-bot/internal/features/moderation/models"
	moderationsvc "github.com/Alqaedgcb/legal-telegram-bot/internal/features/moderation/service"
	relaysvc "github.com/Alqaedgcb/legal-telegram-bot/internal/features/relay/service"
	apphttp "github.com/Alqaedgcb/legal-telegram-bot/internal/http"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/platform/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("config load: %v", err))
	}

	logger.Init("legal-telegram-bot", cfg.Debug)

	client := telegram.NewClient(cfg.Telegram.BotToken)
	registry := memory.NewStore()

	policy := moderationmodels.NewPolicy(cfg.Moderation.ForbiddenTerms, cfg.Moderation.BanThreshold)
	engine := moderationsvc.NewModerationEngine(policy, registry)
	gateway := accesssvc.NewApprovalGateway(registry, client, cfg.Telegram.ApproverChatID)
	relay := relaysvc.NewRelayController(gateway, engine, registry, client, cfg.Telegram.ApproverChatID)

	// Inbound path: webhook push when a public URL is configured,
	// otherwise long polling. Both feed the same controller.
	if cfg.Telegram.WebhookURL != "" {
		if err := client.SetWebhook(ctx, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			logger.Fatal().Err(err).Msg("webhook registration failed")
		}
	} else {
		if err := client.DeleteWebhook(ctx); err != nil {
			logger.Warn().Err(err).Msg("webhook cleanup failed, polling may see no updates")
		}
		poller := telegram.NewPoller(client, relay, cfg.Telegram.PollTimeoutSec)
		go poller.Run(ctx)
	}

	router := apphttp.NewRouter(cfg, client, relay)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	logger.Info().Msg("server exited")
}
