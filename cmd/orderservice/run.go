package orderservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	service "git.platform.alem.school/amibragim/order-fulfillment/internal/app/orderservice"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/config"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/logger"
	pg "git.platform.alem.school/amibragim/order-fulfillment/internal/shared/postgres"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/rabbitmq"

	"github.com/rabbitmq/amqp091-go"
)

// Run wires the order service and blocks until ctx is cancelled.
// It returns the first terminal error (server or startup failure).
func Run(ctx context.Context, port int, maxConcurrent int, prefetch int) error {
	log := logger.NewLogger("order-service")
	ctx = log.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		log.Error(ctx, "config_load_failed", "Failed to load configuration", err)
		return err
	}

	pool, err := pg.NewPool(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err)
		return err
	}
	defer pool.Close()

	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err)
		return err
	}
	defer rmq.Close()

	// repositories, unit of work, application services
	uow := pg.NewUnitOfWork(pool)
	repo := pg.NewOrdersRepo()
	pub := &rabbitmq.MQPublisher{Client: rmq}
	completions := service.NewCompletionRegistry()

	svc := service.New(uow, repo, pub, completions, log, cfg.WaitTimeout(), cfg.PollInterval())
	listener := service.NewListener(uow, repo, completions, log)

	// saga reply consumer: one durable queue for accepted and rejected replies
	go rmq.ConsumeLoop(ctx, rabbitmq.QueueOrderSagaReplies, prefetch, func(ctx context.Context, d amqp091.Delivery) {
		handleDelivery(ctx, log, listener, d)
	})

	// HTTP surface
	h := service.NewOrderHTTPHandler(svc, log)
	mux := http.NewServeMux()
	h.Register(mux)

	// Global concurrency limiter, blocks when capacity is full.
	handler := withConcurrencyLimit(maxConcurrent, mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.WaitTimeout() + 5*time.Second, // the saga wait runs inside the request
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	log.Info(ctx, "service_started",
		fmt.Sprintf("Order Service started on port %d", port),
		map[string]any{"port": port, "max_concurrent": maxConcurrent, "wait_timeout_ms": cfg.Saga.WaitTimeoutMS},
	)

	errCh := make(chan error, 1)
	go func() {
		// http.ErrServerClosed is returned on Shutdown; treat that as clean exit.
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		// Graceful HTTP shutdown (drain keep-alives / in-flight requests).
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx) // best-effort
		return nil
	case err := <-errCh:
		return err
	}
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It blocks until capacity is available, which provides natural backpressure.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sem <- struct{}{}        // acquire
		defer func() { <-sem }() // release
		next.ServeHTTP(w, r)
	})
}
