package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/mergeserver/api/internal/client"
	"github.com/mergeserver/api/internal/config"
	"github.com/mergeserver/api/internal/handler"
	"github.com/mergeserver/api/internal/logger"
	"github.com/mergeserver/api/internal/middleware"
	"github.com/mergeserver/api/internal/service"
	"github.com/mergeserver/api/internal/store"
	"github.com/mergeserver/api/internal/worker"
	ws "github.com/mergeserver/api/internal/websocket"
	"github.com/mergeserver/api/pkg/response"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "merge-server",
		Usage: "Mux separate video and audio streams into downloadable MP4 files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "environment file path",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "YAML config file path (default: ./config.yaml if present)",
			},
			&cli.StringFlag{
				Name:  "port",
				Usage: "listen port, overrides PORT",
			},
		},
		Action: serve,
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	if err := config.LoadEnvFile(cmd.String("env")); err != nil {
		return err
	}
	if port := cmd.String("port"); port != "" {
		os.Setenv("PORT", port)
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Server.Env, cfg.Server.LogLevel)

	// Redis only backs the rate limiter
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis not available, rate limits will fail open")
		}
	}

	validate := validator.New()

	hub := ws.NewHub(log)
	go hub.Run()
	defer hub.Stop()

	// External tools
	ffmpegClient := client.NewFFmpegClient(&cfg.Merge, log)
	ytdlpClient := client.NewYtDlpClient(&cfg.Media)
	if !ffmpegClient.IsAvailable() {
		log.Warn().Str("path", cfg.Merge.FFmpegPath).Msg("ffmpeg not found, merges will fail")
	}
	if !ytdlpClient.IsAvailable() {
		log.Warn().Str("path", cfg.Media.YtDlpPath).Msg("yt-dlp not found, video info will fail")
	}

	// Services
	jobs := store.NewJobStore()
	mergeWorker := worker.NewMergeWorker(jobs, ffmpegClient, hub, cfg.Merge.MaxConcurrent, log)
	mergeService := service.NewMergeService(jobs, mergeWorker, &cfg.Merge, log)
	mediaService := service.NewMediaService(ytdlpClient, &cfg.Media)

	reaper := service.NewReaper(jobs, &cfg.Jobs, log)
	reaper.Start(ctx)
	defer reaper.Stop()

	app := fiber.New(fiber.Config{
		ErrorHandler:          response.ErrorHandler(log),
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(middleware.Logger(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	handler.RegisterRoutes(app, &handler.Routes{
		Merge:  handler.NewMergeHandler(mergeService, validate, cfg.Server.PublicURL),
		Media:  handler.NewMediaHandler(mediaService, validate),
		Health: handler.NewHealthHandler(jobs, map[string]handler.ToolCheck{
			"ffmpeg": ffmpegClient,
			"ytdlp":  ytdlpClient,
		}),
		Hub:         hub,
		RateLimiter: middleware.NewRateLimiter(redisClient, log),
		Limits:      cfg.RateLimit,
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Info().
		Str("addr", addr).
		Str("output_dir", cfg.Merge.OutputDir).
		Str("env", cfg.Server.Env).
		Msg("merge server starting")

	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
