package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"notification-engine/internal/repository"
	"notification-engine/pkg/mq"
	"notification-engine/pkg/outbox"
)

// Router exposes the worker's operational surface: health probes,
// Prometheus metrics, notification lookups and outbox replay.
type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	db *pgxpool.Pool,
	publisher *mq.Publisher,
	notifications *repository.NotificationRepository,
	replay *outbox.ReplayService,
	outboxRepo *outbox.Repository,
	logger *zap.Logger,
) *Router {
	r := gin.Default()

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		if !publisher.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ops := r.Group("/ops")
	{
		ops.GET("/notifications/:id", func(c *gin.Context) {
			id, err := strconv.ParseInt(c.Param("id"), 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
				return
			}

			n, err := notifications.FindByID(c.Request.Context(), id)
			if errors.Is(err, pgx.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
				return
			}
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, n)
		})

		ops.GET("/outbox/failed", func(c *gin.Context) {
			limit := parseLimit(c.Query("limit"), 50)
			events, err := outboxRepo.GetFailedEvents(c.Request.Context(), limit)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
		})

		ops.POST("/outbox/replay/:id", func(c *gin.Context) {
			id, err := strconv.ParseInt(c.Param("id"), 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
				return
			}

			if err := replay.ReplayEvent(c.Request.Context(), id); err != nil {
				logger.Error("Outbox replay failed", zap.Int64("event_id", id), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "requeued", "event_id": id})
		})

		ops.POST("/outbox/replay-failed", func(c *gin.Context) {
			limit := parseLimit(c.Query("limit"), 50)
			requeued, err := replay.ReplayFailedEvents(c.Request.Context(), limit)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "requeued": requeued})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "ok", "requeued": requeued})
		})
	}

	return &Router{Engine: r}
}

func parseLimit(raw string, def int) int {
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
