package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backoffice/internal/config"
	"backoffice/internal/domain/lifecycle"
	"backoffice/internal/handler"
	"backoffice/internal/infra/db"
	"backoffice/internal/infra/idempotency"
	"backoffice/internal/infra/notify"
	infraRepo "backoffice/internal/infra/repository"
	"backoffice/internal/infra/storage"
	"backoffice/internal/logging"
	"backoffice/internal/middleware"
	"backoffice/internal/outbox"
	"backoffice/internal/server"
	"backoffice/internal/usecase"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"golang.org/x/text/currency"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	//.envはあれば読む
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.GoEnv)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	//DB接続
	gormDB, err := db.Connect(cfg.DSN(), !cfg.IsProd())
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Error("migrate failed", "err", err)
		os.Exit(1)
	}

	displayCurrency, err := currency.ParseISO(cfg.DisplayCurrency)
	if err != nil {
		log.Error("invalid DISPLAY_CURRENCY", "value", cfg.DisplayCurrency, "err", err)
		os.Exit(1)
	}

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}
	txm := infraRepo.NewTxManagerGorm(log, gormDB)
	files := storage.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err := files.InstallDefaults(); err != nil {
		log.Error("install default images failed", "dir", cfg.UploadDir, "err", err)
		os.Exit(1)
	}
	notifier := notify.NewSlogNotifier(log)

	orderMachine := lifecycle.NewOrderMachine()
	paymentMachine := lifecycle.NewPaymentMachine(orderMachine)

	//Usecase生成
	orderUC := usecase.NewOrderUsecase(txm, orderMachine, usecase.NewOrderNumberGenerator(clock), clock, idGen, notifier)
	itemUC := usecase.NewOrderItemUsecase(txm, notifier)
	paymentUC := usecase.NewPaymentUsecase(txm, paymentMachine, files, clock, idGen, notifier).WithDisplayCurrency(displayCurrency)
	auditUC := usecase.NewAuditUsecase(infraRepo.NewAuditLogGormRepository(gormDB))

	//冪等キー（REDIS_ADDRがなければ無効）
	var idem middleware.IdempotencyStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("redis ping failed", "err", err)
			os.Exit(1)
		}
		idem = idempotency.NewStore(rdb, cfg.IdempotencyTTL)
	}

	//outbox relay（OUTBOX_TOPICがなければ溜めるだけ）
	if cfg.OutboxTopic != "" {
		writer := &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		}
		defer writer.Close()

		dispatch := outbox.NewDispatcher(log, writer, cfg.OutboxTopic)
		relay := outbox.NewRelay(log, infraRepo.NewOutboxGormRepository(log, gormDB), dispatch, "backoffice-"+uuid.NewString()[:8])
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("relay stopped", "err", err)
			}
		}()
	}

	//Handler生成
	e := server.New(log, cfg, idem, server.Handlers{
		Orders:     handler.NewOrderHandler(orderUC),
		OrderItems: handler.NewOrderItemHandler(itemUC),
		Payments:   handler.NewPaymentHandler(paymentUC),
		Audit:      handler.NewAuditHandler(auditUC),
	})

	//Server起動
	addr := cfg.Port
	if addr != "" && addr[0] != ':' {
		addr = ":" + addr
	}

	go func() {
		log.Info("server starting", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "err", err)
	}
	log.Info("server stopped")
}
