package inventoryservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	service "git.platform.alem.school/amibragim/order-fulfillment/internal/app/inventoryservice"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/config"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/logger"
	pg "git.platform.alem.school/amibragim/order-fulfillment/internal/shared/postgres"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/rabbitmq"

	"github.com/rabbitmq/amqp091-go"
)

// Run wires the inventory service and blocks until ctx is cancelled.
// It returns the first terminal error (server or startup failure).
func Run(ctx context.Context, port int, prefetch int) error {
	log := logger.NewLogger("inventory-service")
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
	repo := pg.NewProductsRepo()
	pub := &rabbitmq.MQPublisher{Client: rmq}

	svc := service.New(uow, repo, log)
	reservations := service.NewReservationHandler(uow, repo, pub, log)

	// order-created consumer: the reservation side of the saga
	go rmq.ConsumeLoop(ctx, rabbitmq.QueueInventoryOrderCreated, prefetch, func(ctx context.Context, d amqp091.Delivery) {
		handleDelivery(ctx, log, reservations, d)
	})

	// HTTP surface
	h := service.NewProductHTTPHandler(svc, log)
	mux := http.NewServeMux()
	h.Register(mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	log.Info(ctx, "service_started",
		fmt.Sprintf("Inventory Service started on port %d", port),
		map[string]any{"port": port, "prefetch": prefetch},
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx) // best-effort
		return nil
	case err := <-errCh:
		return err
	}
}
