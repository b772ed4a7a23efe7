package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"

	"tasky/internal/agent"
	"tasky/internal/config"
	"tasky/internal/llm"
	"tasky/internal/repository"
	"tasky/internal/service"
	"tasky/internal/whatsapp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("config")
	}

	logger := newLogger(cfg.Debug)

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("db")
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	loc := cfg.Location()

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	waClient := whatsapp.NewClient(whatsapp.ClientConfig{
		AccessToken:   cfg.WhatsApp.AccessToken,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		GraphVersion:  cfg.WhatsApp.GraphVersion,
	}, logger)

	taskSvc := service.NewTaskService(taskRepo)
	summarySvc := service.NewSummaryService(taskRepo, userRepo, waClient, loc, logger)

	gemini := llm.NewGemini(ctx, llm.Config{
		APIKey: cfg.Gemini.APIKey,
		Model:  cfg.Gemini.Model,
	}, logger)

	dispatcher := agent.NewDispatcher(taskSvc, summarySvc, loc, logger)
	webhook := whatsapp.NewWebhook(
		cfg.WhatsApp.VerifyToken,
		cfg.WhatsApp.AppSecret,
		userRepo,
		gemini,
		dispatcher,
		waClient,
		waClient,
		gemini,
		logger,
	)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	webhook.Register(router)

	server := &http.Server{
		Addr:    net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort),
		Handler: router,
	}

	scheduler := service.NewSchedulerService(loc)
	if _, err := scheduler.ScheduleDaily(cfg.SummaryTime, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := summarySvc.SendDailyReports(jobCtx, time.Now()); err != nil {
			logger.Error().Err(err).Msg("daily reports")
		}
	}); err != nil {
		logger.Fatal().Err(err).Msg("schedule daily reports")
	}
	scheduler.Start()
	defer scheduler.Stop()

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("tasky webhook server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	logger.Info().Msg("shutdown complete")
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Logger()
}
