package main

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"waitify/internal/billing"
	"waitify/internal/config"
	"waitify/internal/floorplan"
	"waitify/internal/httpapi"
	"waitify/internal/hub"
	"waitify/internal/notify"
	"waitify/internal/store"
	"waitify/internal/store/postgres"
	"waitify/internal/telemetry"
	"waitify/internal/waitlist"
	"waitify/internal/worker"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type eventEnvelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

const (
	zeroUUID         = "00000000-0000-0000-0000-000000000000"
	realtimeConsumer = "realtime"
)

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup("waitify")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()
	st := postgres.NewStore(pool)

	plans, err := floorplan.OpenSQLite(cfg.FloorPlanDBPath)
	if err != nil {
		log.Fatalf("floorplan db: %v", err)
	}
	defer plans.Close()

	dispatcher := notify.New(cfg.DispatcherKind, cfg.DispatcherURL, cfg.DispatcherToken)
	service := waitlist.NewService(st, dispatcher)
	billingClient := billing.NewClient(cfg.BillingURL, cfg.BillingToken)

	handler := httpapi.NewHandler(st, service, plans, billingClient)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:       cfg.RateLimitPerMinute,
		IPBurst:           cfg.RateLimitBurst,
		BusinessPerMinute: cfg.BusinessRateLimitPerMinute,
		BusinessBurst:     cfg.BusinessRateLimitBurst,
	})

	h := hub.New()
	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	mux.Handle("/", handler.Routes())
	mux.Handle("/realtime/", sockjs.NewHandler("/realtime", sockjs.DefaultOptions, func(session sockjs.Session) {
		client := &hub.Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
		h.Register(client)
		defer h.Unregister(client)

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			parsed, ok := hub.ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				h.UpdateSubscription(client, hub.Subscription{})
				continue
			}
			h.UpdateSubscription(client, hub.Subscription{
				BusinessID: parsed.BusinessID,
				WaitlistID: parsed.WaitlistID,
			})
		}
	}))

	otelHandler := otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(mux)), "waitify")
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	notifWorker := worker.New(st, worker.Config{
		BatchSize:     cfg.WorkerBatchSize,
		MaxAttempts:   cfg.WorkerMaxAttempts,
		SMSProvider:   cfg.SMSProvider,
		EmailProvider: cfg.EmailProvider,
	})
	go worker.Start(workerCtx, cfg.WorkerInterval, notifWorker)
	go runRealtimePoller(workerCtx, st, h, cfg.RealtimePollInterval, cfg.RealtimeBatchSize)

	go func() {
		log.Printf("waitify listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func runRealtimePoller(ctx context.Context, st store.OutboxStore, h *hub.Hub, interval time.Duration, batchSize int) {
	offset, err := st.GetOffset(ctx, realtimeConsumer)
	if err != nil {
		log.Printf("load offset error: %v", err)
	}
	if offset.LastEventTime.IsZero() {
		offset.LastEventTime = time.Unix(0, 0).UTC()
	}
	if offset.LastEventID == "" {
		offset.LastEventID = zeroUUID
	}
	if interval <= 0 {
		interval = time.Second
	}

	var running int32
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !atomic.CompareAndSwapInt32(&running, 0, 1) {
			continue
		}

		pollCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		events, err := st.ListOutboxEvents(pollCtx, offset, batchSize)
		cancel()
		if err == nil {
			for _, event := range events {
				offset.LastEventTime = event.CreatedAt
				offset.LastEventID = event.EventID
				env := eventEnvelope{Type: event.Type, Payload: event.Payload, CreatedAt: event.CreatedAt}
				payload, _ := json.Marshal(env)
				h.Broadcast(payload, extractMeta(event))
			}
			if len(events) > 0 {
				updateCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				if err := st.UpdateOffset(updateCtx, realtimeConsumer, offset); err != nil {
					log.Printf("update offset error: %v", err)
				}
				cancel()
			}
		}
		atomic.StoreInt32(&running, 0)
	}
}

func extractMeta(event store.OutboxEvent) hub.Subscription {
	meta := hub.Subscription{BusinessID: event.BusinessID}
	var data map[string]interface{}
	if err := json.Unmarshal(event.Payload, &data); err != nil {
		return meta
	}
	if value, ok := data["waitlist_id"]; ok {
		meta.WaitlistID = str(value)
	}
	return meta
}

func str(value interface{}) string {
	if value == nil {
		return ""
	}
	if v, ok := value.(string); ok {
		return v
	}
	return fmt.Sprint(value)
}
