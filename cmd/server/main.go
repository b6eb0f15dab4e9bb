package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // ledger window uses Asia/Ho_Chi_Minh even on minimal images

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/hostel-booking/internal/config"
	"github.com/iliyamo/hostel-booking/internal/database"
	"github.com/iliyamo/hostel-booking/internal/handler"
	"github.com/iliyamo/hostel-booking/internal/logging"
	"github.com/iliyamo/hostel-booking/internal/middleware"
	"github.com/iliyamo/hostel-booking/internal/queue"
	"github.com/iliyamo/hostel-booking/internal/repository"
	"github.com/iliyamo/hostel-booking/internal/router"
	"github.com/iliyamo/hostel-booking/internal/service"
	"github.com/iliyamo/hostel-booking/internal/utils"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer db.Close()

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn("redis unavailable: cache, rate limit and strict payment codes disabled")
	} else {
		defer rdb.Close()
	}

	retired := make([][]byte, 0, len(cfg.TokenPrevSecrets))
	for _, s := range cfg.TokenPrevSecrets {
		retired = append(retired, []byte(s))
	}
	tokens, err := utils.NewTokenCodec([]byte(cfg.TokenSecret), cfg.TokenTTL, retired...)
	if err != nil {
		logger.Fatal("init token codec", zap.Error(err))
	}

	if cfg.Payment.AccountNo == "" || cfg.Payment.LedgerAPIKey == "" {
		logger.Warn("VIETQR_ACCOUNT_NO or LEDGER_API_KEY not set: payments cannot be confirmed")
	}

	users := repository.NewUserRepo(db)
	hostels := repository.NewHostelRepo(db)
	rooms := repository.NewRoomRepo(db)
	bookings := repository.NewBookingRepo(db)
	payments := repository.NewPaymentRepo(db)
	reviews := repository.NewReviewRepo(db)

	var pending *repository.PendingPaymentStore
	if rdb != nil && cfg.Payment.StrictCodes {
		pending = repository.NewPendingPaymentStore(rdb, cfg.Payment.CodeTTL)
	}
	workflow := service.NewPaymentWorkflow(service.WorkflowDeps{
		DB:       db,
		Bookings: bookings,
		Payments: payments,
		Pending:  pending,
		QR:       service.NewQRGenerator(cfg.Payment),
		Matcher:  service.NewPaymentMatcher(service.NewLedgerClient(cfg.Payment), cfg.Payment.LedgerTimezone, logger),
		Events:   queue.NewPublisher(cfg.RabbitURL, logger),
		Log:      logger,
	})
	logger.Info("payment workflow ready", zap.Bool("strict_codes", workflow.StrictCodes()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.ConsumeBookingQueue {
		consumer := &queue.BookingConsumer{URL: cfg.RabbitURL, LogDir: "logs", Log: logger}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(middleware.RequestLogger(logger))

	auth := middleware.BearerAuth(tokens)
	limit := middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb).Middleware(logger)
	cache := middleware.ResponseCache(config.LoadCacheConfig(), rdb, logger)

	hostelH := handler.NewHostelHandler(hostels, rooms)
	bookingH := handler.NewBookingHandler(bookings, rooms)
	reviewH := handler.NewReviewHandler(reviews, rooms, bookings)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(users, tokens, cfg.BcryptCost), auth, limit)
	router.RegisterPublic(e, hostelH, reviewH, cache)
	router.RegisterOwner(e, hostelH, bookingH, auth)
	router.RegisterBookings(e, bookingH, reviewH, auth)
	router.RegisterPayments(e, handler.NewPaymentHandler(workflow, payments, bookings), auth, limit)
	router.RegisterAdmin(e, &handler.AdminHandler{
		Users: users, Hostels: hostels, Rooms: rooms, Bookings: bookings,
		Payments: payments, Reviews: reviews, BcryptCost: cfg.BcryptCost,
	}, auth)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
