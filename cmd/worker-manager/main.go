// cmd/worker-manager/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"admissions-portal/internal/admissions/lookup"
	"admissions-portal/internal/admissions/payment"
	"admissions-portal/internal/admissions/referee"
	"admissions-portal/internal/admissions/snapshot"
	"admissions-portal/internal/admissions/validation"
	"admissions-portal/internal/common/camunda"
	"admissions-portal/internal/common/config"
	"admissions-portal/internal/common/database"
	httpclient "admissions-portal/internal/common/http"
	"admissions-portal/internal/common/logger"
	"admissions-portal/internal/common/observability"
	"admissions-portal/internal/common/portalapi"
	"admissions-portal/pkg/registry"

	cpay "admissions-portal/internal/workers/admissions/confirm-admission-payment"
	lu "admissions-portal/internal/workers/admissions/lookup-university"
	saa "admissions-portal/internal/workers/admissions/submit-admission-application"
	vad "admissions-portal/internal/workers/admissions/validate-admission-draft"
)

// retryWithBackoff attempts to execute a function with exponential backoff
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

// pinger is a backing service checked by /ready.
type pinger interface {
	Ping(ctx context.Context) error
}

type closer func()

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting admissions worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("snapshotBackend", cfg.Snapshot.Backend),
		zap.String("lookupSource", cfg.Lookup.Source),
		zap.String("paymentProvider", cfg.Payment.Provider),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()
	var closers []closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()
	deps := map[string]pinger{}

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Snapshot store ---
	store, storeCheck, storeClose, err := openSnapshotStore(ctx, cfg, zapLog)
	if err != nil {
		zapLog.Fatal("snapshot store failed", zap.Error(err))
	}
	if storeClose != nil {
		closers = append(closers, storeClose)
	}
	if storeCheck != nil {
		deps["snapshot"] = storeCheck
	}

	// --- University directory ---
	dir, dirCheck, err := openDirectory(ctx, cfg, zapLog)
	if err != nil {
		zapLog.Fatal("university directory failed", zap.Error(err))
	}
	if dirCheck != nil {
		deps["elasticsearch"] = dirCheck
	}
	universities := lookup.New(dir, lookup.Config{
		MinQuery:   cfg.Lookup.MinQuery,
		Debounce:   cfg.Lookup.Debounce(),
		MaxResults: cfg.Lookup.MaxResults,
		Timeout:    config.GetDuration(cfg.Lookup.Timeout),
	}, log)
	closers = append(closers, universities.Stop)

	// --- Payment gateway ---
	var gateway payment.Gateway
	switch cfg.Payment.Provider {
	case "midtrans":
		gateway = payment.NewMidtransGateway(payment.NewSnapClient(cfg.Payment.Midtrans.ServerKey, cfg.Payment.Midtrans.Production))
	default:
		gateway = payment.NewRecordingGateway("")
	}

	api := portalapi.NewClient(cfg.API.BaseURL, cfg.API.Token, config.GetDuration(cfg.API.Timeout))
	engine := validation.NewEngine(referee.New(cfg.Referee.AllowedDomains), cfg.App.HomeCountry)
	fees := payment.FeeScheduleFromConfig(cfg.Fees)

	// --- Workers ---
	activities := registry.Admissions()
	var workers []*camunda.CamundaWorker
	start := func(taskType string, h camunda.HandlerFunc) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		if a, ok := activities.Find(taskType); ok {
			h = camunda.Guard(func(vars string) error { return a.CheckInput(vars) }, h, log)
		} else {
			zapLog.Warn("no activity registered for worker", zap.String("taskType", taskType))
		}
		if w := camunda.StartWorker(zeebe.GetClient(), taskType, wcfg, h, obs, log); w != nil {
			workers = append(workers, w)
		}
	}

	{
		wcfg := config.GetWorkerConfig(cfg, vad.TaskType)
		handler := vad.NewHandler(vad.LoadConfig(wcfg), engine, log)
		start(vad.TaskType, handler.Handle)
	}
	{
		wcfg := config.GetWorkerConfig(cfg, saa.TaskType)
		handler := saa.NewHandler(saa.LoadConfig(wcfg), api, store, gateway, engine, fees, log).
			WithObservability(obs)
		start(saa.TaskType, handler.Handle)
	}
	{
		wcfg := config.GetWorkerConfig(cfg, cpay.TaskType)
		handler := cpay.NewHandler(cpay.LoadConfig(wcfg), store, log)
		start(cpay.TaskType, handler.Handle)
	}
	{
		wcfg := config.GetWorkerConfig(cfg, lu.TaskType)
		handler := lu.NewHandler(lu.LoadConfig(wcfg, cfg.App), universities, log)
		start(lu.TaskType, handler.Handle)
	}
	zapLog.Info("Admissions workers registered", zap.Int("running", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := map[string]string{"time": time.Now().Format(time.RFC3339)}
		code := http.StatusOK
		if err := zeebe.HealthCheck(checkCtx); err != nil {
			status["zeebe"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		for name, dep := range deps {
			if err := dep.Ping(checkCtx); err != nil {
				status[name] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		status["status"] = "ready"
		if code != http.StatusOK {
			status["status"] = "not ready"
		}
		writeStatus(w, code, status)
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.Metrics.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
		w.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func openSnapshotStore(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) (snapshot.Store, pinger, closer, error) {
	switch cfg.Snapshot.Backend {
	case "redis":
		var rc *database.RedisClient
		err := retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			return nil, nil, nil, err
		}
		zapLog.Info("Redis connected successfully")
		ttl := time.Duration(cfg.Snapshot.TTL) * time.Second
		return snapshot.NewRedisStore(rc.Client, ttl), rc, func() { _ = rc.Close() }, nil

	case "postgres":
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			return nil, nil, nil, err
		}
		zapLog.Info("PostgreSQL connected successfully")
		store := snapshot.NewPostgresStore(pg.DB)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, nil, fmt.Errorf("failed to prepare snapshot table: %w", err)
		}
		return store, pg, func() { _ = pg.Close() }, nil

	default:
		return snapshot.NewMemoryStore(), nil, nil, nil
	}
}

func openDirectory(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) (lookup.Directory, pinger, error) {
	if cfg.Lookup.Source != "elasticsearch" {
		client := httpclient.NewClient(config.GetDuration(cfg.Lookup.Timeout))
		return lookup.NewHTTPDirectory(client, cfg.Lookup.URL), nil, nil
	}

	var es *database.ElasticsearchClient
	err := retryWithBackoff(func() error {
		var err error
		es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return es.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		return nil, nil, err
	}
	zapLog.Info("Elasticsearch connected successfully")
	return lookup.NewElasticDirectory(es.Client, cfg.Lookup.Index, cfg.Lookup.MaxResults), es, nil
}
