package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/Safwan2003/ai-proposalgenerator-backend/config"
	core "github.com/Safwan2003/ai-proposalgenerator-backend/internal/agent/core"
	"github.com/Safwan2003/ai-proposalgenerator-backend/internal/agent/telemetry"
	"github.com/Safwan2003/ai-proposalgenerator-backend/internal/runtime"
	"github.com/Safwan2003/ai-proposalgenerator-backend/internal/store"
	"github.com/Safwan2003/ai-proposalgenerator-backend/tools/icon_catalog"
	"github.com/Safwan2003/ai-proposalgenerator-backend/tools/image_search"
)

func Run(addr string, configPath string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	cfg := appconfig.LoadConfig(configPath)
	dsn := cfg.Storage.Postgres.DSN()
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	secret, err := runtime.LoadJWTSecret(cfg)
	if err != nil {
		return err
	}

	tele := telemetry.NewTelemetry(cfg.Telemetry)
	provider, err := core.NewLLMProvider(cfg.LLM)
	if err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.Storage.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr(),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
	}

	images, err := buildImageSearcher(cfg, rdb)
	if err != nil {
		return err
	}

	catalog := icon_catalog.New(cfg.Logos.CatalogURL, cfg.Logos.CacheTTL, rdb)
	logos := core.NewTechLogoResolver(catalog, st, cfg.Logos.CDNBaseURL)

	diagrams := core.NewDiagramGenerator(provider,
		cfg.LLM.Routing.Model(cfg.LLM.Routing.Diagram),
		core.RetryPolicy{
			MaxAttempts:    cfg.Pipeline.DiagramMaxAttempts,
			BaseDelay:      cfg.Pipeline.DiagramBaseDelay,
			RateLimitDelay: cfg.Pipeline.DiagramRateLimitDelay,
		}, tele)
	classifier := core.NewClassifier(provider, cfg.LLM.Routing.Model(cfg.LLM.Routing.Classification))
	assembler := core.NewAssembler(cfg, provider, classifier, images, logos, diagrams, tele)

	api := e.Group("/api")
	auth := &AuthHandler{Store: st, Secret: secret}
	auth.Register(api.Group("/auth"))

	ph := &ProposalsHandler{Store: st, Assembler: assembler, Logger: log.New(log.Writer(), "[PROPOSALS] ", log.LstdFlags)}
	ph.Register(api.Group("/proposals"), secret)

	sh := &SectionsHandler{Store: st, Assembler: assembler}
	sh.Register(api.Group("/sections"), secret)

	ch := &ChartsHandler{Store: st, Diagrams: diagrams}
	ch.Register(api.Group("/charts"), secret)

	lh := &LookupHandler{Store: st, Images: images, Logos: logos}
	lh.Register(api.Group("/lookup"), secret)

	costs := api.Group("/telemetry")
	costs.Use(runtime.EchoAuthMiddleware(secret))
	costs.GET("/costs", func(c echo.Context) error { return c.JSON(200, tele.Costs()) })

	if addr == "" {
		addr = cfg.Server.Address
	}
	return e.Start(addr)
}

// buildImageSearcher assembles the configured stock image providers behind
// one searcher, with a Redis result cache when Redis is available.
func buildImageSearcher(cfg *appconfig.Config, rdb *redis.Client) (image_search.ImageSearcher, error) {
	var searchers []image_search.ImageSearcher
	if cfg.Sources.Pexels.APIKey != "" {
		s, err := image_search.NewImageSearcher(image_search.PexelsProvider, cfg.Sources.Pexels.APIKey)
		if err != nil {
			return nil, err
		}
		searchers = append(searchers, s)
	}
	if cfg.Sources.Pixabay.APIKey != "" {
		s, err := image_search.NewImageSearcher(image_search.PixabayProvider, cfg.Sources.Pixabay.APIKey)
		if err != nil {
			return nil, err
		}
		searchers = append(searchers, s)
	}
	if len(searchers) == 0 {
		return nil, fmt.Errorf("no image providers configured (sources.pexels.api_key or sources.pixabay.api_key)")
	}

	var searcher image_search.ImageSearcher = image_search.Multi{Searchers: searchers}
	if rdb != nil {
		searcher = image_search.NewCachedSearcher(searcher, rdb, cfg.Logos.CacheTTL)
	}
	return searcher, nil
}
