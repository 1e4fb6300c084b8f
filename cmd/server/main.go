package main // Entry point package

import (
    "context" // context for background workers and startup calls
    "log"     // Logging library
    "time"    // timeouts and timestamps

    "github.com/joho/godotenv"    // loads .env files into the environment
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/iliyamo/flash-sale/internal/config"   // Internal config loader
    "github.com/iliyamo/flash-sale/internal/database" // MySQL pool and schema
    "github.com/iliyamo/flash-sale/internal/flashsale"
    "github.com/iliyamo/flash-sale/internal/handler"
    appmw "github.com/iliyamo/flash-sale/internal/middleware"
    "github.com/iliyamo/flash-sale/internal/model"
    "github.com/iliyamo/flash-sale/internal/queue"
    "github.com/iliyamo/flash-sale/internal/repository"
    "github.com/iliyamo/flash-sale/internal/router" // Internal router setup
    queuepub "github.com/iliyamo/flash-sale/internal/service"
)

func main() {
    _ = godotenv.Load() // .env is optional; real deployments set the environment directly

    cfg := config.Load()
    saleCfg := config.LoadFlashSaleConfig()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("mysql open: %v", err)
    }
    defer db.Close()

    ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    if err := database.EnsureSchema(ctx, db); err != nil {
        cancel()
        log.Fatalf("ensure schema: %v", err)
    }
    cancel()

    // Redis carries the gate buckets, idempotency records and challenges;
    // the purchase pipeline cannot run without it.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Fatal("redis unavailable; refusing to start without the admission gate")
    }

    sales := repository.NewFlashSaleRepo(db)
    reservations := repository.NewReservationRepo(db)
    users := repository.NewUserRepo(db)

    sampler := flashsale.NewRateSampler(rdb, saleCfg.RateWindow)
    store := flashsale.NewChallengeStore(rdb)
    issuer := flashsale.NewIssuer(sales, store, sampler, saleCfg, cfg.ChallengeSecret)
    verifier := flashsale.NewVerifier(store)
    gate := flashsale.NewAdmissionGate(rdb, saleCfg)
    ledger := flashsale.NewLedger(sales, reservations, saleCfg)
    orch := flashsale.NewOrchestrator(gate, verifier, ledger, sampler, saleCfg)

    // Background reaper: sale lifecycle flips plus expired-hold release.
    reaper := flashsale.NewReaper(ledger, sales, reservations, saleCfg)
    reaper.OnExpired = func(res model.Reservation) {
        pctx, pcancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer pcancel()
        _ = queuepub.PublishReservationEvent(pctx, queue.ReservationEvent{
            Type:          queue.EventReservationExpired,
            ReservationID: res.ID,
            SaleID:        res.SaleID,
            UserID:        res.UserID,
            Quantity:      res.Quantity,
            OccurredAt:    time.Now().UTC().Format(time.RFC3339),
        })
    }
    reaperCtx, reaperCancel := context.WithCancel(context.Background())
    defer reaperCancel()
    go reaper.Run(reaperCtx)

    // Audit consumer runs its own reconnect loop for the process lifetime.
    go func() {
        if err := queue.StartReservationConsumer(); err != nil {
            log.Printf("reservation consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    e.HideBanner = true

    // Coarse edge limiter fronts every route; the finer per-user and
    // per-sale budgets live inside the admission gate.
    e.Use(appmw.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

    router.RegisterRoutes(e)
    router.RegisterAuth(e, handler.NewAuthHandler(cfg, users))
    router.RegisterPublic(e, handler.NewFlashSaleHandler(sales, reservations), config.LoadCacheConfig(), rdb)
    router.RegisterPurchase(e,
        handler.NewPurchaseHandler(issuer, orch),
        handler.NewReservationHandler(ledger, reservations, sales),
        cfg.JWTSecret)
    router.RegisterAdmin(e, handler.NewFlashSaleHandler(sales, reservations), cfg.JWTSecret)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
