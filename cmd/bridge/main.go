// Command bridge connects the room sensor/actuator network to storage and to
// the live dashboards: it decodes the raw MQTT payloads, persists them, and
// fans normalized series out over WebSocket.
package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/duckception/wbudowane-backend/internal/api"
	"github.com/duckception/wbudowane-backend/internal/config"
	"github.com/duckception/wbudowane-backend/internal/decode"
	"github.com/duckception/wbudowane-backend/internal/hub"
	"github.com/duckception/wbudowane-backend/internal/ingest"
	"github.com/duckception/wbudowane-backend/internal/logging"
	"github.com/duckception/wbudowane-backend/internal/monitor"
	"github.com/duckception/wbudowane-backend/internal/query"
	"github.com/duckception/wbudowane-backend/internal/reading"
	"github.com/duckception/wbudowane-backend/internal/store"
)

func main() {
	cfg := config.LoadConfig()

	// The MQTT client comes up before the logger so log lines can be
	// multi-written to the broker from the very start.
	opts := mqtt.NewClientOptions().AddBroker(cfg.MQTTBroker).SetClientID(cfg.MQTTClientID)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		slog.Error("Fatal MQTT error", "broker", cfg.MQTTBroker, "error", token.Error())
		os.Exit(1)
	}
	defer client.Disconnect(250)

	multi := io.MultiWriter(os.Stdout, logging.NewMQTTWriter(client, cfg.MQTTClientID))
	logger := slog.New(slog.NewJSONHandler(multi, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("Starting room bridge", "config", cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores: Postgres is the source of truth, Valkey the hot path. If
	// either is down at startup there is nothing useful to do; the
	// container restarts and tries again.
	repo, err := store.NewRepository(ctx, store.Options{
		PostgresURL: cfg.PostgresURL,
		ValkeyAddr:  cfg.ValkeyAddr,
	}, logger)
	if err != nil {
		logger.Error("Cannot connect to stores", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("Cannot prepare schema", "error", err)
		os.Exit(1)
	}
	logger.Info("Stores connected")

	engine := query.NewEngine(repo)

	h := hub.NewHub(logger,
		func(ctx context.Context, roomID string) (any, error) {
			return engine.Query(ctx, roomID, "ALL", query.DefaultLimit)
		},
		func(cmd hub.RelayCommand) {
			// Actuator commands pass through to the feedback topic
			// untouched; the device answers on the same topic.
			topic := reading.CommandTopic(cmd.ID)
			token := client.Publish(topic, 0, false, cmd.Message)
			token.Wait()
			if token.Error() != nil {
				logger.Error("Relay command publish failed", "topic", topic, "error", token.Error())
			} else {
				logger.Debug("Relay command forwarded", "topic", topic, "message", cmd.Message)
			}
		},
	)
	go h.Run(ctx)

	pipeline := ingest.NewPipeline(repo, engine, h, logger)

	// One subscription per room topic; the channel decides which payload
	// shapes the decoder accepts and how the room key is derived.
	subscribe := func(topic string, ch decode.Channel) {
		handler := func(_ mqtt.Client, msg mqtt.Message) {
			msgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			pipeline.Handle(msgCtx, ch, msg.Topic(), string(msg.Payload()))
		}
		if token := client.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
			logger.Error("Subscribe failed", "topic", topic, "error", token.Error())
			os.Exit(1)
		}
		logger.Info("Subscribed", "topic", topic)
	}

	for _, id := range cfg.RoomIDs {
		subscribe(reading.RoomName(id), decode.Telemetry)
		subscribe(reading.CommandTopic(id), decode.Feedback)
	}

	go startHTTPServer(cfg.HTTPPort, h, engine, repo, logger)

	if cfg.StatsIntervalSec > 0 {
		mon := monitor.NewMonitor(client, logger, time.Duration(cfg.StatsIntervalSec)*time.Second)
		go mon.Run(ctx)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
}

// startHTTPServer serves the WebSocket endpoint, the query API, metrics and
// the healthcheck on one port.
func startHTTPServer(port string, h *hub.Hub, engine *query.Engine, repo *store.Repository, logger *slog.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ws", h.ServeWS)
	api.NewAPIHandler(engine, repo, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	logger.Info("HTTP server listening", "port", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Error("HTTP server died", "error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
