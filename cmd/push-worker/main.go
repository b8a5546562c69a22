// cmd/push-worker/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"push-workers/internal/common/broker"
	"push-workers/internal/common/config"
	"push-workers/internal/common/database"
	"push-workers/internal/common/directory"
	"push-workers/internal/common/email"
	"push-workers/internal/common/gateway"
	"push-workers/internal/common/idempotency"
	"push-workers/internal/common/logger"
	"push-workers/internal/common/observability"
	"push-workers/internal/common/push"
	"push-workers/internal/common/render"

	ed "push-workers/internal/workers/delivery/email-deliver"
	pd "push-workers/internal/workers/delivery/push-deliver"
)

// retryWithBackoff attempts an operation with exponential backoff.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting delivery workers...",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Broker connection with retry ---
	var brokerClient *broker.Client
	err = retryWithBackoff(func() error {
		var err error
		brokerClient, err = broker.NewClientWithConfig(&broker.ClientConfig{
			GatewayAddress:         cfg.Broker.GatewayAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         time.Duration(cfg.Broker.RequestTimeout) * time.Millisecond,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Broker client initialization")
	if err != nil {
		zapLog.Fatal("broker client failed after retries", zap.Error(err))
	}
	defer brokerClient.Close()
	zapLog.Info("Broker connected successfully")

	// --- Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	store := idempotency.NewRedisStore(redisClient.Client, idempotency.DefaultLease)

	// --- Collaborator service clients ---
	directoryClient := directory.NewClient(
		cfg.Services.Directory.BaseURL,
		time.Duration(cfg.Services.Directory.Timeout)*time.Millisecond,
	)
	renderClient := render.NewClient(
		cfg.Services.Render.BaseURL,
		time.Duration(cfg.Services.Render.Timeout)*time.Millisecond,
	)

	var workers []*broker.Worker

	// --- Push delivery worker ---
	if wcfg, ok := cfg.Workers[pd.TaskType]; ok && wcfg.Enabled && cfg.Push.Enabled {
		dispatcher, err := push.NewDispatcher(ctx, cfg.Push.AWSRegion)
		if err != nil {
			zapLog.Fatal("failed to create push dispatcher", zap.Error(err))
		}

		reporter := gateway.NewReporter(
			cfg.Services.StatusReport.BaseURL,
			"push",
			time.Duration(cfg.Services.StatusReport.Timeout)*time.Millisecond,
			log,
		)

		service := pd.NewService(pd.ServiceDependencies{
			Store:      store,
			Directory:  directoryClient,
			Renderer:   renderClient,
			Dispatcher: dispatcher,
			Reporter:   reporter,
			Logger:     log,
		})
		handler := pd.NewHandler(
			&pd.Config{
				Timeout:      time.Duration(wcfg.Timeout) * time.Millisecond,
				RetryBackoff: time.Duration(wcfg.RetryBackoff) * time.Millisecond,
			},
			service, obs, log,
		)

		workers = append(workers, broker.StartWorker(
			brokerClient.GetClient(), pd.TaskType,
			wcfg.MaxJobsActive, time.Duration(cfg.Broker.Timeout)*time.Millisecond,
			handler.Handle, zapLog,
		))
	} else {
		zapLog.Info("push delivery worker disabled")
	}

	// --- Email delivery worker ---
	if wcfg, ok := cfg.Workers[ed.TaskType]; ok && wcfg.Enabled && cfg.Email.Enabled {
		sender, err := email.NewSender(ctx, cfg.Email.AWSRegion, cfg.Email.FromEmail)
		if err != nil {
			zapLog.Fatal("failed to create email sender", zap.Error(err))
		}

		reporter := gateway.NewReporter(
			cfg.Services.StatusReport.BaseURL,
			"email",
			time.Duration(cfg.Services.StatusReport.Timeout)*time.Millisecond,
			log,
		)

		service := ed.NewService(ed.ServiceDependencies{
			Store:     store,
			Directory: directoryClient,
			Renderer:  renderClient,
			Sender:    sender,
			Reporter:  reporter,
			Logger:    log,
		})
		handler := ed.NewHandler(
			&ed.Config{
				Timeout:      time.Duration(wcfg.Timeout) * time.Millisecond,
				RetryBackoff: time.Duration(wcfg.RetryBackoff) * time.Millisecond,
			},
			service, obs, log,
		)

		workers = append(workers, broker.StartWorker(
			brokerClient.GetClient(), ed.TaskType,
			wcfg.MaxJobsActive, time.Duration(cfg.Broker.Timeout)*time.Millisecond,
			handler.Handle, zapLog,
		))
	} else {
		zapLog.Info("email delivery worker disabled")
	}

	if len(workers) == 0 {
		zapLog.Fatal("no delivery workers enabled, nothing to do")
	}
	zapLog.Info("All delivery workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	httpServer := &http.Server{Addr: cfg.Server.Address, Handler: buildMux(brokerClient, redisClient, store)}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	zapLog.Info("Delivery workers stopped gracefully")
}

func buildMux(brokerClient *broker.Client, redisClient *database.RedisClient, store idempotency.Store) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := brokerClient.HealthCheck(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready", "reason": "broker unreachable",
			})
			return
		}
		if err := redisClient.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready", "reason": "redis unreachable",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Delivery status lookup for operators and upstream services.
	mux.HandleFunc("/status/", func(w http.ResponseWriter, r *http.Request) {
		notificationID := strings.TrimPrefix(r.URL.Path, "/status/")
		if notificationID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false, "error": "notification id required",
			})
			return
		}

		status, found, err := store.GetStatus(r.Context(), notificationID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success": false, "error": "status lookup failed",
			})
			return
		}
		if !found {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{
				"success": false, "error": "unknown notification",
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]string{
				"notification_id": notificationID,
				"status":          string(status),
			},
		})
	})

	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
