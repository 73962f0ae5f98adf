package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/Alqaedgcb/legal-telegram-bot/internal/common/config"
	relaysvc "github.com/Alqaedgcb/legal-telegram-bot/internal/features/relay/service"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/platform/telegram"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// NewRouter builds the HTTP surface: webhook intake, health probes and the
// metrics endpoint.
func NewRouter(cfg *config.Config, client *telegram.Client, relay relaysvc.RelayController) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RequestID())
	router.Use(gin.Recovery())

	router.POST("/webhook", webhookHandler(cfg.Telegram.WebhookSecret, relay))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "legal-telegram-bot",
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if _, err := client.GetMe(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "telegram unavailable",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// webhookHandler is the push-side inbound adapter. It normalizes the
// update through the same path the poller uses and hands off processing so
// Telegram gets its 200 without waiting on the relay.
func webhookHandler(secret string, relay relaysvc.RelayController) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret != "" && c.GetHeader(secretTokenHeader) != secret {
			c.Status(http.StatusForbidden)
			return
		}

		var upd telegram.Update
		if err := c.ShouldBindJSON(&upd); err != nil {
			log.Warn().Err(err).Str("request_id", c.GetString("request_id")).Msg("malformed webhook payload dropped")
			// 200 regardless: a 4xx would make Telegram retry the same
			// broken payload forever.
			c.Status(http.StatusOK)
			return
		}

		if ev, ok := telegram.Normalize(upd); ok {
			ev.ID = c.GetString("request_id")
			go relay.Handle(context.WithoutCancel(c.Request.Context()), ev)
		}
		c.Status(http.StatusOK)
	}
}

// RequestID middleware для добавления ID запроса
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
