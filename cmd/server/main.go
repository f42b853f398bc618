// Package main starts the search API and the enrichment consumers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/mesopotato/enrich-justice/internal/config"
	"github.com/mesopotato/enrich-justice/internal/handler"
	"github.com/mesopotato/enrich-justice/internal/middleware"
	"github.com/mesopotato/enrich-justice/internal/pipeline"
	"github.com/mesopotato/enrich-justice/internal/repository"
	"github.com/mesopotato/enrich-justice/internal/search"
	"github.com/mesopotato/enrich-justice/internal/service"
	"github.com/mesopotato/enrich-justice/pkg/database"
	"github.com/mesopotato/enrich-justice/pkg/embedding"
	"github.com/mesopotato/enrich-justice/pkg/es"
	"github.com/mesopotato/enrich-justice/pkg/kafka"
	"github.com/mesopotato/enrich-justice/pkg/llm"
	"github.com/mesopotato/enrich-justice/pkg/log"
	"github.com/mesopotato/enrich-justice/pkg/storage"
	"github.com/mesopotato/enrich-justice/pkg/tika"
	"github.com/mesopotato/enrich-justice/pkg/token"
	"gorm.io/gorm"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// 2. logger
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Infof("starting with search backend %s", cfg.Search.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. databases
	db, err := database.OpenMySQL(cfg.Database.MySQL)
	if err != nil {
		log.Fatal("connecting to MySQL failed", err)
	}
	defer database.Close(db)
	rdb, err := database.OpenRedis(ctx, cfg.Database.Redis)
	if err != nil {
		log.Fatal("connecting to Redis failed", err)
	}
	defer rdb.Close()

	checks := map[string]handler.HealthCheck{
		"mysql": pingGorm(db),
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}

	// 4. embeddings, cached per text in Redis
	dims := cfg.Embedding.Dimensions
	embedder := embedding.NewCachedClient(embedding.NewClient(cfg.Embedding), rdb, cfg.Embedding.Model, cfg.Embedding.CacheTTL)

	// 5. repositories and the vector backend
	judgments := repository.NewJudgmentRepository(db, dims)
	articles := repository.NewArticleRepository(db, dims)

	var (
		ranker search.CategoryRanker
		mirror pipeline.VectorMirror
	)
	switch cfg.Search.Backend {
	case config.BackendPgvector:
		pg, err := database.OpenPostgres(cfg.Database.Postgres)
		if err != nil {
			log.Fatal("connecting to Postgres failed", err)
		}
		defer database.Close(pg)
		checks["postgres"] = pingGorm(pg)
		store := repository.NewPgvectorStore(pg, dims)
		ranker, mirror = store, store
	case config.BackendElasticsearch:
		client, err := es.NewClient(cfg.Elasticsearch)
		if err != nil {
			log.Fatal("creating Elasticsearch client failed", err)
		}
		if err := es.EnsureIndex(ctx, client, cfg.Elasticsearch.IndexName, dims); err != nil {
			log.Fatal("creating the vector index failed", err)
		}
		checks["elasticsearch"] = pingES(client)
		index := es.NewVectorIndex(client, cfg.Elasticsearch.IndexName, dims)
		ranker, mirror = index, index
	default:
		ranker = search.NewScanRanker(repository.NewVectorStore(judgments, articles))
	}

	// 6. query pipeline
	policy, err := search.ParseFailurePolicy(cfg.Search.CategoryFailurePolicy)
	if err != nil {
		log.Fatal("invalid search config", err)
	}
	hydrator := search.NewHydrator(judgments, articles, cfg.Search.HydrateWorkers)
	queryPipeline := search.NewPipeline(embedder, ranker, hydrator, search.Options{
		DefaultTopN:    cfg.Search.DefaultTopN,
		MaxTopN:        cfg.Search.MaxTopN,
		Dimensions:     dims,
		Timeout:        cfg.Search.QueryTimeout,
		FailurePolicy:  policy,
		SearchArticles: cfg.Search.SearchArticles,
	})

	// 7. object storage and text extraction
	var objects storage.ObjectStore
	if cfg.MinIO.Endpoint != "" {
		m, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			log.Fatal("connecting to MinIO failed", err)
		}
		objects = m
	} else {
		log.Warnf("minio.endpoint is empty, downloads and text extraction are disabled")
	}
	var extractor pipeline.TextExtractor
	if cfg.Tika.ServerURL != "" {
		extractor = tika.NewClient(cfg.Tika.ServerURL)
	}

	// 8. enrichment: producer, processor and consumers
	llmClient := llm.NewClient(cfg.LLM)
	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()
	processor := pipeline.NewProcessor(judgments, articles, llmClient, embedder, objects, extractor, mirror, cfg.Enrichment, dims)

	workers := cfg.Enrichment.Workers
	if workers <= 0 {
		workers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := kafka.NewConsumer(cfg.Kafka, rdb, processor).Run(ctx); err != nil {
				log.Errorf("enrichment consumer %d stopped: %v", i, err)
			}
		}()
	}

	// 9. services
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	searchService := service.NewSearchService(queryPipeline, cfg.Search.ScorePrecision)
	chatService := service.NewChatService(llmClient)
	adminService := service.NewAdminService(producer, judgments, cfg.Enrichment)
	userService := service.NewUserService(cfg.Admin, jwtManager)

	// 10. router
	r := newRouter(cfg, routes{
		search:   handler.NewSearchHandler(searchService),
		socket:   handler.NewSearchSocketHandler(searchService, chatService),
		auth:     handler.NewAuthHandler(userService),
		admin:    handler.NewAdminHandler(adminService),
		health:   handler.NewHealthHandler(checks),
		jwt:      jwtManager,
		document: documentHandler(judgments, objects),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}
	go func() {
		log.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", err)
	}
	wg.Wait()
	log.Info("server stopped")
}

type routes struct {
	search   *handler.SearchHandler
	socket   *handler.SearchSocketHandler
	document *handler.DocumentHandler
	auth     *handler.AuthHandler
	admin    *handler.AdminHandler
	health   *handler.HealthHandler
	jwt      *token.JWTManager
}

func newRouter(cfg *config.Config, h routes) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	r.GET("/healthz", h.health.Healthz)

	api := r.Group("/api/v1")
	{
		api.GET("/search", h.search.Search)
		api.GET("/search/ws", h.socket.Handle)
		if h.document != nil {
			api.GET("/decisions/:id/download", h.document.DownloadDecision)
		}

		auth := api.Group("/auth")
		{
			auth.POST("/login", h.auth.Login)
			auth.POST("/refreshToken", h.auth.RefreshToken)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(h.jwt), middleware.AdminAuthMiddleware())
		{
			admin.POST("/enrichment", h.admin.EnqueueEnrichment)
			admin.POST("/articles/embed", h.admin.EnqueueArticleEmbedding)
			admin.POST("/summaries/embed", h.admin.EnqueueSummaryVectors)
		}
	}
	return r
}

func documentHandler(lookup service.DecisionLookup, objects storage.ObjectStore) *handler.DocumentHandler {
	if objects == nil {
		return nil
	}
	return handler.NewDocumentHandler(service.NewDocumentService(lookup, objects))
}

func pingGorm(db *gorm.DB) handler.HealthCheck {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func pingES(client *elasticsearch.Client) handler.HealthCheck {
	return func(ctx context.Context) error {
		res, err := client.Ping(client.Ping.WithContext(ctx))
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("elasticsearch ping: %s", res.Status())
		}
		return nil
	}
}
