package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"

	config "github.com/jhonny218/social-media-scheduler-sub001/configs"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/api/handlers"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/api/middleware"
	job "github.com/jhonny218/social-media-scheduler-sub001/internal/jobs"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/platform"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/queue"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/repository"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/service"
	"github.com/jhonny218/social-media-scheduler-sub001/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	ctx := context.Background()
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)})))

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}
	if err := repository.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	tokens, err := utils.NewTokenCipher([]byte(cfg.SecretKey))
	if err != nil {
		log.Fatalf("Invalid SECRET_KEY: %v", err)
	}

	r2Service, err := service.NewR2Service(ctx, cfg.R2)
	if err != nil {
		log.Fatalf("Failed to configure R2: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	// adapters
	retry := platform.RetryPolicy{Attempts: cfg.Publish.RetryAttempts, Delay: cfg.Publish.RetryDelay}
	httpClient := &http.Client{Timeout: 2 * time.Minute}

	instagram := platform.NewInstagram(platform.InstagramConfig{
		BaseURL:        cfg.Instagram.BaseURL,
		APIVersion:     cfg.Instagram.APIVersion,
		PollInterval:   cfg.Publish.PollInterval,
		MaxWait:        cfg.Publish.MaxWait,
		CarouselSettle: cfg.Publish.CarouselSettle,
		Retry:          retry,
		HTTPClient:     httpClient,
	})
	facebook := platform.NewFacebook(platform.FacebookConfig{
		BaseURL:      cfg.Facebook.BaseURL,
		APIVersion:   cfg.Facebook.APIVersion,
		AppID:        cfg.Facebook.AppID,
		AppSecret:    cfg.Facebook.AppSecret,
		PollInterval: cfg.Publish.PollInterval,
		MaxWait:      cfg.Publish.MaxWait,
		Retry:        retry,
		HTTPClient:   httpClient,
	})
	pinterest := platform.NewPinterest(platform.PinterestConfig{
		BaseURL:      cfg.Pinterest.BaseURL,
		ClientID:     cfg.Pinterest.ClientID,
		ClientSecret: cfg.Pinterest.ClientSecret,
		PollInterval: cfg.Publish.PollInterval,
		MaxWait:      cfg.Publish.MaxWait,
		Retry:        retry,
		HTTPClient:   httpClient,
	})

	postRepo := repository.NewPostRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	postingHistoryRepo := repository.NewPostingHistoryRepository(db)

	resolver := service.NewMediaResolver(r2Service, cfg.R2.CDNBaseURL, cfg.R2.SignedURLTTL)
	publisher := service.NewPublisher(instagram, facebook, pinterest, service.NewMediaFetcher(r2Service, nil))

	postService := service.NewPostService(db, postRepo, postMediaRepo, socialAccountRepo)
	publishService := service.NewPublishService(postRepo, postMediaRepo, socialAccountRepo, postingHistoryRepo, resolver, publisher, tokens, service.PublishConfig{
		WriteRetry: retry,
		StaleAfter: cfg.Publish.StaleAfter,
	})
	accountService := service.NewAccountService(socialAccountRepo, tokens, instagram, facebook, pinterest)
	mediaService := service.NewMediaService(r2Service, mediaAssetRepo, cfg.R2.CDNBaseURL)

	sweepJob := job.NewSweepJob(postRepo, publishService, job.SweepConfig{
		BatchSize: cfg.Publish.SweepBatchSize,
		Pacing:    cfg.Publish.SweepPacing,
	})
	refreshTokenJob := job.NewTokenRefreshJob(socialAccountRepo, accountService)

	// sweep triggers collapse into one task while a sweep can still be running
	sweepTimeout := cfg.Publish.SweepTimeout()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("unhandled error", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	post := handlers.NewPostHandler(postService, publishService, client, cfg.Publish.TaskTimeout)
	api.Post("/posts", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/:id", post.GetPost)
	api.Put("/posts/:id", post.UpdatePost)
	api.Delete("/posts/:id", post.RemovePost)
	api.Post("/posts/:id/retry", post.RetryPost)
	api.Post("/posts/:id/publish", post.PublishPost)
	api.Get("/posts/:id/history", post.PostHistory)

	accounts := handlers.NewAccountHandler(accountService)
	api.Post("/accounts", accounts.ConnectAccount)
	api.Get("/accounts", accounts.ListSocialAccounts)
	api.Delete("/accounts/:id", accounts.DeleteSocialAccount)
	api.Post("/accounts/:id/validate", accounts.ValidateAccount)
	api.Post("/accounts/:id/refresh", accounts.RefreshAccount)

	media := handlers.NewMediaHandler(mediaService)
	api.Post("/media", media.UploadMedia)
	api.Get("/media", media.ListMedia)

	sweep := handlers.NewSweepHandler(client, sweepTimeout, sweepTimeout)
	api.Post("/sweep", sweep.TriggerSweep)

	// cron jobs
	c := cron.New()
	if err := c.AddFunc(cfg.Publish.SweepSchedule, func() {
		if _, err := queue.EnqueueSweep(client, sweepTimeout, sweepTimeout); err != nil {
			slog.Error("failed to enqueue sweep", "error", err)
		}
	}); err != nil {
		log.Fatalf("Invalid SWEEP_SCHEDULE: %v", err)
	}
	if err := c.AddFunc(cfg.Publish.TokenRefreshSchedule, func() {
		refreshTokenJob.RefreshTokens(context.Background())
	}); err != nil {
		log.Fatalf("Invalid TOKEN_REFRESH_SCHEDULE: %v", err)
	}
	c.Start()
	defer c.Stop()

	// queue
	queueW := queue.NewQueue(publishService, sweepJob)
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: 10,
		Queues:      map[string]int{"default": 1},
	})

	go func() {
		slog.Info("starting the asynq server")
		if err := server.Run(queueW.Mux()); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	slog.Info("server is running", "addr", cfg.HTTPAddr)

	gracefulShutdown(app, server, db)
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, server *asynq.Server, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("shutting down server")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}
	server.Shutdown()

	closeDB(db)
	slog.Info("server shutdown complete")
}
