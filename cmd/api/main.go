package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/infra/cache"
	"storefront/internal/infra/db"
	"storefront/internal/infra/memory"
	"storefront/internal/infra/payment"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/logging"
	repo "storefront/internal/repository"
	"storefront/internal/server"
	"storefront/internal/usecase"
)

type storage struct {
	tx       repo.TransactionManager
	users    repo.UserRepository
	products repo.ProductRepository
	carts    repo.CartRepository
	orders   repo.OrderRepository
	audit    repo.AuditLogRepository
	close    func() error
}

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	cfg, err := config.Load("configs", env)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	log := logging.Init(logging.Options{
		Component: cfg.App.Name,
		FilePath:  cfg.App.LogFile,
		Level:     cfg.App.LogLevel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	st, err := openStorage(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			log.Warn("close storage", "err", err)
		}
	}()

	var idem usecase.IdempotencyStore
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		idem = cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
		log.Info("idempotency store enabled", "addr", cfg.Redis.Addr)
	}

	tokens := auth.NewTokenService(cfg.Security.JWTSecret, cfg.Security.AccessTTL)
	gateway := payment.NewMockGateway(cfg.Payment.SuccessRate, 0)

	catalogPages := usecase.PageConfig{DefaultLimit: cfg.Catalog.DefaultPageSize, MaxLimit: cfg.Catalog.MaxPageSize}
	orderPages := usecase.PageConfig{DefaultLimit: cfg.Orders.DefaultPageSize, MaxLimit: cfg.Catalog.MaxPageSize}

	deps := server.Deps{
		Tokens:   tokens,
		Users:    st.users,
		Auth:     usecase.NewAuthUsecase(st.users, tokens, cfg.Security.BcryptCost),
		Products: usecase.NewProductUsecase(st.tx, st.products, catalogPages),
		Carts:    usecase.NewCartUsecase(st.tx, st.carts, st.products),
		Orders:   usecase.NewOrderUsecase(st.tx, st.orders, idem, orderPages),
		Payments: usecase.NewPaymentUsecase(st.tx, st.orders, gateway),
		Audit:    usecase.NewAuditUsecase(st.audit),
	}

	e := server.NewEcho(cfg, log, deps)
	return server.Run(ctx, cfg, log, e)
}

func openStorage(cfg config.Config, log *slog.Logger) (storage, error) {
	if cfg.Database.Driver == "memory" {
		log.Warn("using in-memory storage, data is lost on restart")
		s := memory.NewStore()
		return storage{
			tx:       s,
			users:    s.Users(),
			products: s.Products(),
			carts:    s.Carts(),
			orders:   s.Orders(),
			audit:    s.AuditLogs(),
			close:    func() error { return nil },
		}, nil
	}

	gormDB, err := db.Connect(cfg)
	if err != nil {
		return storage{}, err
	}
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(gormDB); err != nil {
			_ = db.Close(gormDB)
			return storage{}, err
		}
	}

	return storage{
		tx:       infraRepo.NewTxManagerGorm(gormDB),
		users:    infraRepo.NewUserGormRepository(gormDB),
		products: infraRepo.NewProductGormRepository(gormDB),
		carts:    infraRepo.NewCartGormRepository(gormDB),
		orders:   infraRepo.NewOrderGormRepository(gormDB),
		audit:    infraRepo.NewAuditLogGormRepository(gormDB),
		close:    func() error { return db.Close(gormDB) },
	}, nil
}
