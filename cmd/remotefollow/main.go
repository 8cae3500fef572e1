package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/totegamma/remotefollow/client"
	"github.com/totegamma/remotefollow/httpsig"
	"github.com/totegamma/remotefollow/internal/config"
	"github.com/totegamma/remotefollow/internal/domain"
	"github.com/totegamma/remotefollow/internal/infra/database"
	"github.com/totegamma/remotefollow/internal/infra/repository"
	"github.com/totegamma/remotefollow/internal/present/rest"
	restmiddleware "github.com/totegamma/remotefollow/internal/present/rest/middleware"
	"github.com/totegamma/remotefollow/internal/usecase"
)

const serviceName = "remotefollow"

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	var (
		conf config.Config
		err  error
	)
	if *configPath != "" {
		conf, err = config.Load(*configPath)
	} else {
		conf, err = config.LoadFromEnv()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(conf.Server.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.Server.EnableTrace {
		cleanup, err := setupTraceProvider(ctx, conf.Server.TraceEndpoint)
		if err != nil {
			slog.Error("failed to setup trace provider", slog.String("error", err.Error()), slog.String("module", "main"))
			os.Exit(1)
		}
		defer cleanup()
	}

	signer := httpsig.NewSigner(conf.NodeInfo.PrivateKey)
	if err := signer.Ready(); err != nil {
		slog.Warn(
			"private key unusable, actor fetches will fail",
			slog.String("error", err.Error()),
			slog.String("module", "main"),
		)
	}

	cl := client.New(signer, client.Options{
		Timeout:   conf.Server.RequestTimeout,
		CacheTTL:  conf.Server.CacheTTL,
		UserAgent: conf.NodeInfo.UserAgent,
	})

	store, err := newFollowerStore(ctx, conf.Server)
	if err != nil {
		slog.Error("failed to setup session store", slog.String("error", err.Error()), slog.String("module", "main"))
		os.Exit(1)
	}

	resolverUsecase := usecase.NewResolverUsecase(cl)
	followUsecase := usecase.NewFollowUsecase(resolverUsecase, store)
	applicationUsecase := usecase.NewApplicationUsecase(conf.Domain())

	handler := rest.NewHandler(applicationUsecase, resolverUsecase, followUsecase)
	requestMiddleware := restmiddleware.NewRequestMiddleware(conf.Server.TrustProxy)

	e := echo.New()
	e.HideBanner = true
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware(serviceName))
	}
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(requestMiddleware.IdentifyBaseURL)
	e.Use(requestMiddleware.IdentifySession)

	handler.RegisterRoutes(e)

	go func() {
		addr := fmt.Sprintf(":%d", conf.Server.Port)
		slog.Info("listening", slog.String("addr", addr), slog.String("module", "main"))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("server stopped", slog.String("error", err.Error()), slog.String("module", "main"))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()), slog.String("module", "main"))
	}
}

func newFollowerStore(ctx context.Context, server config.Server) (usecase.FollowerStore, error) {
	switch server.SessionBackend {
	case config.SessionRedis:
		rdb, err := database.NewRedis(ctx, server.RedisAddr, server.RedisPassword, server.RedisDB)
		if err != nil {
			return nil, err
		}
		return repository.NewRedisFollowerRepository(rdb, domain.SessionTTL), nil
	case config.SessionMemcached:
		mc, err := database.NewMemcached(server.MemcachedAddr)
		if err != nil {
			return nil, err
		}
		return repository.NewMemcachedFollowerRepository(mc, domain.SessionTTL), nil
	default:
		return repository.NewMemoryFollowerRepository(domain.SessionTTL), nil
	}
}

func setupTraceProvider(ctx context.Context, endpoint string) (func(), error) {
	exporter, err := otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", serviceName),
	)

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.1))),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown tracer provider", slog.String("error", err.Error()), slog.String("module", "main"))
		}
	}
	return cleanup, nil
}
