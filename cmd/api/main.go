package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"oncohub.org/internal/access"
	"oncohub.org/internal/auth"
	"oncohub.org/internal/config"
	"oncohub.org/internal/congress"
	"oncohub.org/internal/events"
	"oncohub.org/internal/httpapi"
	"oncohub.org/internal/migrate"
	"oncohub.org/internal/obs"
	"oncohub.org/internal/session"
	"oncohub.org/internal/store/pg"
	"oncohub.org/ops/migrations"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	log := obs.Logger()
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}
	obs.SetLevel(cfg.LogLevel)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	store, err := pg.Open(cfg.PGDSN)
	if err != nil {
		log.WithError(err).Fatal("open db")
	}
	defer store.Close()

	mgr := migrate.NewManager(store.DB(), migrations.FS, migrations.SQLDir, migrations.SeedsDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker := events.NewBroker()
	var (
		previewStore *session.PreviewStore
		previews     access.PreviewStore
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		previewStore, err = session.NewPreviewStore(rdb)
		if err != nil {
			log.WithError(err).Fatal("preview store")
		}
		previews = previewStore
		relay, err := events.NewRelay(rdb, broker, cfg.EventsChannel, log)
		if err != nil {
			log.WithError(err).Fatal("event relay")
		}
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.WithError(err).Warn("event relay stopped")
			}
		}()
	} else {
		log.Warn("ONCOHUB_REDIS_ADDR not set: view-as previews disabled, events stay in-process")
	}

	resolver, err := access.NewResolver(store)
	if err != nil {
		log.WithError(err).Fatal("resolver")
	}
	admin, err := access.NewService(store, access.WithNotifier(broker))
	if err != nil {
		log.WithError(err).Fatal("admin service")
	}
	cg, err := congress.NewService(store, resolver)
	if err != nil {
		log.WithError(err).Fatal("congress service")
	}
	tokenOpts := []auth.Option{auth.WithIssuer(cfg.JWTIssuer)}
	if cfg.JWTAudience != "" {
		tokenOpts = append(tokenOpts, auth.WithAudience(cfg.JWTAudience))
	}
	tokens, err := auth.NewTokens(cfg.JWTSecret, tokenOpts...)
	if err != nil {
		log.WithError(err).Fatal("tokens")
	}

	ready := httpapi.ReadyFunc(func(ctx context.Context) error {
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("db: %w", err)
		}
		pending, err := mgr.Pending(ctx)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		if len(pending) > 0 {
			return fmt.Errorf("%w: pending %s", access.ErrMigrationRequired, strings.Join(pending, ", "))
		}
		if previewStore != nil {
			if err := previewStore.Ping(ctx); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	})

	api, err := httpapi.New(httpapi.Deps{
		Resolver: resolver,
		Admin:    admin,
		Congress: cg,
		Tokens:   tokens,
		Previews: previews,
		Events:   broker,
		Ready:    ready,
	}, httpapi.Options{
		Version:      version,
		ViewAsTTL:    cfg.ViewAsTTL,
		RateBurst:    cfg.RateBurst,
		RatePerSec:   cfg.RatePerSec,
		MaxBodyBytes: cfg.MaxBodyBytes,
		CORSOrigins:  cfg.CORSOrigins,
	})
	if err != nil {
		log.WithError(err).Fatal("http api")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// SSE responses stay open; handlers bound their own work.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	health := httpapi.NewGRPCServer(ready)
	grpcSrv := grpc.NewServer()
	health.Register(grpcSrv)
	go health.Watch(ctx, 15*time.Second)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.WithError(err).WithField("addr", cfg.GRPCAddr).Fatal("grpc listen")
	}
	go func() {
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.WithError(err).Error("grpc serve")
		}
	}()

	go func() {
		log.WithFields(logrus.Fields{"addr": srv.Addr, "grpc_addr": cfg.GRPCAddr, "version": version}).Info("starting oncohub-api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	grpcSrv.GracefulStop()
	log.Info("stopped")
}
