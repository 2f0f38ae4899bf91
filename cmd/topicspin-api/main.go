package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"topicspin-api/internal/admin"
	"topicspin-api/internal/assign"
	"topicspin-api/internal/cache"
	"topicspin-api/internal/config"
	"topicspin-api/internal/demo"
	"topicspin-api/internal/events"
	httpx "topicspin-api/internal/http"
	kafkain "topicspin-api/internal/input/kafka"
	"topicspin-api/internal/input/rabbitmq"
	"topicspin-api/internal/observability"
	"topicspin-api/internal/resolve"
	"topicspin-api/internal/store"
	"topicspin-api/internal/store/appsscript"
	"topicspin-api/internal/store/filestore"
	"topicspin-api/internal/store/pgstore"
	"topicspin-api/internal/store/sheets"
	"topicspin-api/internal/stream"
	"topicspin-api/internal/topics"
	jwtx "topicspin-api/pkg/jwt"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	cfg := config.New()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitTracing(ctx, observability.Config{
		Enabled:     cfg.OtelEnabled,
		Exporter:    cfg.OtelExporter,
		ServiceName: "topicspin-api",
		InstanceID:  cfg.InstanceID,
	})

	backend, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("store")
	}
	defer closeStore()
	st := store.Instrument(backend, cfg.StoreBackend, cfg.StoreTimeout)

	pools := topics.Default()
	if cfg.TopicPoolsFile != "" {
		if pools, err = topics.LoadFile(cfg.TopicPoolsFile); err != nil {
			log.Fatal().Err(err).Msg("topic pools")
		}
	}

	c := cache.New(st, cfg.CacheCooldown)
	alloc := topics.NewAllocator(pools, c)
	res := resolve.New(c, st)
	hub := stream.NewHub()

	pubs := events.Multi{events.Local(hub.Publish)}
	remote := events.NewHandler(cfg.InstanceID, c, hub.Publish)
	if cfg.KafkaEnabled {
		kp := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		pubs = append(pubs, kp)
		cons := kafkain.New(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroup, remote)
		go runWithBackoff(ctx, "kafka", cons.Run)
	}
	if cfg.AmqpEnabled {
		ap := events.NewAMQP(cfg.AmqpURL, cfg.AmqpExchange)
		defer ap.Close()
		pubs = append(pubs, ap)
		cons := rabbitmq.New(cfg.AmqpURL, cfg.AmqpExchange, remote)
		go runWithBackoff(ctx, "amqp", cons.Run)
	}

	svc := assign.NewService(res, alloc, st, c,
		assign.WithPublisher(pubs, cfg.InstanceID),
		assign.WithRefreshDelay(cfg.RefreshDelay),
	)
	adm := admin.NewService(c, st, pubs, cfg.InstanceID, cfg.Rooms)

	var issuer *jwtx.Issuer
	if cfg.AdminEnabled() {
		if issuer, err = jwtx.NewIssuer(cfg.JWTKeys, "", cfg.AdminSessionTTL); err != nil {
			log.Fatal().Err(err).Msg("jwt issuer")
		}
	} else {
		log.Warn().Msg("admin login disabled: set ADMIN_PASSPHRASE and JWT_HS256_SECRET")
	}

	warm := c.Refresh(ctx)
	if warm.Err != nil {
		log.Warn().Err(warm.Err).Msg("initial load failed; will retry on demand")
	}

	if cfg.MockEnabled {
		gen := &demo.Generator{Assigner: svc, Rooms: cfg.Rooms, Count: cfg.MockCount}
		go gen.Run(ctx)
	}

	handler := httpx.Router(cfg, httpx.Deps{
		Assigner: svc,
		Topics:   alloc,
		Finder:   res,
		Admin:    adm,
		Feed:     c,
		Hub:      hub,
		Issuer:   issuer,
		Ready: func(ctx context.Context) error {
			return c.Refresh(ctx).Err
		},
	})
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("backend", cfg.StoreBackend).
			Str("instance", cfg.InstanceID).
			Ints("rooms", cfg.Rooms).
			Int("records", len(warm.Assignments)).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdown)
	_ = shutdownTracing(shutdown)
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	noop := func() {}
	switch cfg.StoreBackend {
	case config.BackendAppsScript:
		return appsscript.New(cfg.AppsScriptURL, &http.Client{Timeout: cfg.StoreTimeout}), noop, nil
	case config.BackendSheets:
		s, err := sheets.New(ctx, cfg.SheetsID, cfg.SheetsTab, sheets.ClientOptionsFromEnv()...)
		return s, noop, err
	case config.BackendPostgres:
		if cfg.MigrateOnStart {
			if err := pgstore.Migrate(cfg.DatabaseURL); err != nil {
				return nil, noop, err
			}
		}
		pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		return pgstore.New(pool), pool.Close, nil
	default:
		s, err := filestore.NewFileStore(cfg.StorePath)
		return s, noop, err
	}
}

// runWithBackoff restarts a consumer until ctx ends, doubling the wait after
// each failure up to 30s.
func runWithBackoff(ctx context.Context, name string, run func(context.Context) error) {
	wait := time.Second
	for {
		start := time.Now()
		err := run(ctx)
		if ctx.Err() != nil {
			return
		}
		if time.Since(start) > time.Minute {
			wait = time.Second
		}
		if err == nil {
			err = errors.New("consumer stopped")
		}
		log.Warn().Err(err).Str("consumer", name).Dur("retry_in", wait).Msg("event consumer down")
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		wait = min(wait*2, 30*time.Second)
	}
}
