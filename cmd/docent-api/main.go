// README: Entry point; loads config, wires the session manager, broadcast feed, and HTTP server.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"docent/internal/ai"
	"docent/internal/config"
	httptransport "docent/internal/http"
	"docent/internal/infra"
	"docent/internal/modules/answer"
	"docent/internal/modules/broadcast"
	"docent/internal/modules/guide"
	"docent/internal/modules/poi"
	"docent/internal/modules/quota"
	"docent/internal/modules/session"
)

// overrideFeed is satisfied by both transports; Run consumes into the
// session manager, Publish backs the operator endpoint.
type overrideFeed interface {
	Run(ctx context.Context, sink broadcast.Sink)
	Publish(ctx context.Context, cmd broadcast.Command) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := infra.NewLogger(cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	var verifier infra.TokenVerifier
	if cfg.Firebase.ProjectID != "" {
		verifier, err = infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.Fatalf("firebase init: %v", err)
		}
	} else {
		logger.Warn("DOCENT_FIREBASE_PROJECT_ID not set, API runs unauthenticated")
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	spotStore := poi.NewStore(dbPool)
	if err := spotStore.EnsureSchema(ctx); err != nil {
		log.Fatalf("spot schema: %v", err)
	}
	spots, err := spotStore.LoadAll(ctx)
	if err != nil {
		log.Fatalf("load spots: %v", err)
	}
	// A guide with no spots can never do anything useful; refuse to start.
	index, err := poi.NewIndex(spots)
	if err != nil {
		log.Fatalf("spot index: %v (run spot-importer first)", err)
	}
	logger.Info("spot index loaded", zap.Int("spots", index.Len()))

	quotaStore := quota.NewStore(dbPool)
	if err := quotaStore.EnsureSchema(ctx); err != nil {
		log.Fatalf("quota schema: %v", err)
	}
	quotaSvc := quota.NewService(quotaStore)

	var generator ai.TextGenerator
	var retriever answer.Retriever
	if cfg.AI.GeminiKey != "" {
		provider, err := ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey)
		if err != nil {
			log.Fatalf("gemini init: %v", err)
		}
		defer provider.Close()
		generator = provider

		idx, err := answer.OpenSQLiteIndex(cfg.Answer.IndexPath, provider)
		switch {
		case errors.Is(err, answer.ErrIndexUnavailable):
			logger.Warn("passage index missing, questions will be unavailable",
				zap.String("path", cfg.Answer.IndexPath))
		case err != nil:
			log.Fatalf("open passage index: %v", err)
		default:
			defer idx.Close()
			retriever = idx
		}
	} else {
		logger.Warn("GEMINI_API_KEY not set, questions will be unavailable")
	}
	answerer := answer.NewAnswerer(retriever, generator, cfg.Answer)

	var content guide.ContentStore = guide.NopContentStore{}
	minioClient, err := infra.NewMinio(
		cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL)
	if err != nil {
		logger.Warn("object store not configured, audio URLs will not resolve", zap.Error(err))
	} else {
		content = guide.NewS3ContentStore(minioClient, cfg.Minio.Bucket)
	}

	manager := session.NewManager(ctx, index, content, answerer, cfg.Guide, logger)

	var feed overrideFeed
	switch cfg.Broadcast.Transport {
	case "kafka":
		kf := broadcast.NewKafkaFeed(
			cfg.Broadcast.KafkaAddr, cfg.Broadcast.KafkaTopic, cfg.Broadcast.KafkaGroup, logger)
		defer kf.Close()
		feed = kf
	default:
		feed = broadcast.NewRedisFeed(infra.NewRedis(cfg.Redis.Addr), cfg.Broadcast.Channel, logger)
	}
	go feed.Run(ctx, manager)

	handler := httptransport.NewRouter(httptransport.ServerDeps{
		Manager:   manager,
		Publisher: feed,
		Quota:     quotaSvc,
		Verifier:  verifier,
		Log:       logger,
	})
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("docent api listening", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
