package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-order-service/internal/auth"
	"storefront-order-service/internal/cart"
	"storefront-order-service/internal/catalog"
	"storefront-order-service/internal/checkout"
	"storefront-order-service/internal/config"
	"storefront-order-service/internal/db"
	httpapi "storefront-order-service/internal/http"
	"storefront-order-service/internal/http/handlers"
	"storefront-order-service/internal/inventory"
	"storefront-order-service/internal/logger"
	"storefront-order-service/internal/order"
	"storefront-order-service/internal/pricing"
	"storefront-order-service/internal/queue"
	"storefront-order-service/internal/stats"
	"storefront-order-service/internal/storage"
	"storefront-order-service/internal/store"
	"storefront-order-service/internal/voucher"
	"storefront-order-service/internal/ws"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type catalogStore interface {
	catalog.Repository
	inventory.Store
}

type repositories struct {
	orders  order.Repository
	catalog catalogStore
	users   auth.Repository
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env, "storefront-order-service")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos := repositories{
		orders:  order.NewMemoryRepository(),
		catalog: catalog.NewMemoryRepository(),
		users:   auth.NewMemoryRepository(),
	}
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("database connection failed", zap.Error(err))
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatal("database migration failed", zap.Error(err))
		}
		repos = repositories{
			orders:  store.NewOrderRepository(pool),
			catalog: store.NewCatalogRepository(pool),
			users:   store.NewUserRepository(pool),
		}
	} else if cfg.IsDevelopment() {
		log.Warn("DATABASE_URL is empty; using in-memory stores")
	} else {
		log.Fatal("DATABASE_URL is required outside development")
	}

	pricingCfg := pricing.Config{
		CommissionPercent: cfg.PlatformCommissionPercent,
		ServiceFee:        cfg.ServiceFee,
		DeliveryFee:       cfg.DeliveryFee,
	}
	if cfg.PricingConfigPath != "" {
		pricingCfg, err = pricing.LoadFile(cfg.PricingConfigPath, pricingCfg)
		if err != nil {
			log.Fatal("pricing config invalid", zap.String("path", cfg.PricingConfigPath), zap.Error(err))
		}
	}

	var cartStore cart.Store = cart.NewMemoryStore()
	if cfg.RedisURL != "" {
		rdb, err := cart.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("redis connection failed", zap.Error(err))
			}
			log.Warn("redis connection failed; carts kept in memory", zap.Error(err))
		} else {
			defer rdb.Close()
			cartStore = cart.NewRedisStore(rdb, cfg.CartTTL)
		}
	}

	var blobs storage.Blobs
	if cfg.ObjectStoreEnabled() {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:        cfg.ObjectStoreEndpoint,
			Region:          cfg.ObjectStoreRegion,
			AccessKeyID:     cfg.ObjectStoreAccessKeyID,
			SecretAccessKey: cfg.ObjectStoreSecretAccessKey,
			Bucket:          cfg.ObjectStoreBucket,
			PublicBaseURL:   cfg.ObjectStorePublicBaseURL,
			StorageClass:    cfg.ObjectStoreStorageClass,
		})
		if err != nil {
			log.Fatal("object store init failed", zap.Error(err))
		}
		blobs = s3Store
	} else {
		log.Info("object store disabled; product image uploads unavailable")
	}

	loc := cfg.Location()
	catalogSvc := catalog.NewService(repos.catalog, blobs, log)
	carts := cart.NewService(cartStore, pricingCfg, log)
	orders := order.NewService(repos.orders, repos.catalog, log).WithClock(func() time.Time {
		return time.Now().In(loc)
	})
	authSvc := auth.NewService(repos.users, cfg.JWTSecret, time.Duration(cfg.JWTExpirySeconds)*time.Second, log)

	aggregator := stats.NewAggregator(loc)
	existing, err := orders.List(ctx, order.Filter{})
	if err != nil {
		log.Fatal("loading orders for stats failed", zap.Error(err))
	}
	aggregator.Rebuild(existing)
	orders.Subscribe(aggregator)

	hub := ws.NewHub(authSvc, catalogSvc, orders, cfg.WSHeartbeatInterval, log)
	orders.Subscribe(hub)

	if cfg.RabbitMQURL != "" {
		if qc := startQueue(ctx, cfg, log); qc != nil {
			defer qc.Close()
			orders.Subscribe(queue.NewPublisher(qc, log))
		}
	} else {
		log.Info("order events disabled (RABBITMQ_URL is empty)")
	}

	var vouchers *voucher.Service
	if cfg.VouchersFile != "" {
		list, err := voucher.LoadFile(cfg.VouchersFile)
		if err != nil {
			log.Fatal("vouchers file invalid", zap.String("path", cfg.VouchersFile), zap.Error(err))
		}
		vouchers = voucher.NewService(voucher.NewMemoryStore(list), loc)
		log.Info("vouchers loaded", zap.Int("count", len(list)))
	}
	checkoutSvc := checkout.NewService(carts, catalogSvc, orders, cfg.WhatsAppFallbackPhone, log)
	if vouchers != nil {
		checkoutSvc.WithVouchers(vouchers)
	}

	h := &handlers.Handler{
		Logger:    log,
		Config:    cfg,
		Auth:      authSvc,
		Catalog:   catalogSvc,
		Carts:     carts,
		Checkout:  checkoutSvc,
		Orders:    orders,
		Stats:     aggregator,
		Inventory: repos.catalog,
		Vouchers:  vouchers,
	}

	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(h, hub),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("storefront api ready", zap.String("base", "/api"))
		log.Info("storefront ws ready", zap.String("base", "/ws"))
		log.Info("storefront service listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}

// startQueue connects to RabbitMQ and declares the topology. In daemon mode
// it also runs the event translator and the notification job consumer.
// Outside production a broker failure only disables events.
func startQueue(ctx context.Context, cfg config.Config, log *zap.Logger) *queue.Client {
	fail := func(msg string, err error) {
		if cfg.Env == "production" {
			log.Fatal(msg, zap.Error(err))
		}
		log.Warn(msg+"; continuing without events", zap.Error(err))
	}

	qc, err := queue.New(cfg.RabbitMQURL)
	if err != nil {
		fail("rabbitmq connection failed", err)
		return nil
	}
	if err := queue.EnsureTopology(qc); err != nil {
		fail("rabbitmq topology failed", err)
		_ = qc.Close()
		return nil
	}
	log.Info("rabbitmq enabled", zap.String("exchange", queue.EventsExchange), zap.String("eventsQueue", queue.EventsQueue))

	if cfg.RabbitMQWorkerMode != "daemon" {
		log.Info("event translator disabled", zap.String("mode", cfg.RabbitMQWorkerMode))
		return qc
	}

	go func() {
		err := qc.ConsumeWithRetry(ctx, queue.EventsQueue, func(ctx context.Context, body []byte) error {
			return queue.ProcessEventToJobs(ctx, qc, cfg.WhatsAppFallbackPhone, body)
		}, 5, 5*time.Second, log)
		if err != nil && ctx.Err() == nil {
			log.Error("events consumer stopped", zap.Error(err))
		}
	}()
	go func() {
		err := qc.ConsumeWithRetry(ctx, queue.NotificationJobsQueue, queue.NotificationHandler(log), 3, 10*time.Second, log)
		if err != nil && ctx.Err() == nil {
			log.Error("notification consumer stopped", zap.Error(err))
		}
	}()
	return qc
}
