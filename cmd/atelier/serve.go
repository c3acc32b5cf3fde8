package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/atelierhq/atelier/internal/httpapi"
	"github.com/atelierhq/atelier/internal/llm"
	"github.com/atelierhq/atelier/internal/notify"
	"github.com/atelierhq/atelier/internal/studio"
	"github.com/atelierhq/atelier/internal/submission"
	"github.com/atelierhq/atelier/internal/upload"
	"github.com/atelierhq/atelier/pkg/config"
	"github.com/atelierhq/atelier/pkg/observability"
	"github.com/atelierhq/atelier/pkg/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API and metrics servers",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	observability.InitMetrics()
	if err := observability.InitTracingFromEnv(); err != nil {
		log.Printf("tracing disabled: %v", err)
	}

	assistantStore, err := newSessionStore(cfg, "assistant")
	if err != nil {
		return fmt.Errorf("assistant store: %w", err)
	}
	defer func() { _ = assistantStore.Close() }()

	chatStore, err := newSessionStore(cfg, "chat")
	if err != nil {
		return fmt.Errorf("chat store: %w", err)
	}
	defer func() { _ = chatStore.Close() }()

	subStore, err := submission.NewStore(submissionPath(cfg))
	if err != nil {
		return fmt.Errorf("submission store: %w", err)
	}
	defer func() { _ = subStore.Close() }()

	uploadStore, err := upload.NewStore(uploadDir(cfg))
	if err != nil {
		return fmt.Errorf("upload store: %w", err)
	}
	defer func() { _ = uploadStore.Close() }()

	notifier := notify.FromConfig(notify.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		To:       cfg.Mail.To,
	})
	submissionSvc := submission.NewService(subStore, notifier)

	resolve := func() (*llm.Gateway, error) {
		return llm.Resolve(llm.Settings{
			Provider:    cfg.LLM.Provider,
			Model:       cfg.LLM.Model,
			APIKey:      cfg.LLM.APIKey(),
			Temperature: cfg.LLM.TemperatureValue(),
		})
	}
	studioSvc := studio.NewService(assistantStore, chatStore, resolve)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(httpapi.MetricsMiddleware())
	e.Use(httpapi.RateLimitMiddleware(cfg.Server.RateLimit, cfg.Server.RateBurst))
	httpapi.NewHandler(studioSvc, submissionSvc, uploadStore).RegisterRoutes(e)

	checker := observability.NewHealthChecker()
	checker.Register("session_store", true, 2*time.Second, func(ctx context.Context) error {
		_, err := assistantStore.Load(ctx, "healthcheck")
		return err
	})
	obsServer := observability.NewServer(cfg.Server.MetricsPort, checker)

	var digest *submission.Digest
	if cfg.Digest.Enabled {
		digest = submission.NewDigest(subStore, notifier)
		if err := digest.Start(cfg.Digest.Schedule); err != nil {
			return fmt.Errorf("start digest: %w", err)
		}
		defer digest.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("API listening on :%d", cfg.Server.Port)
		if err := e.Start(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Printf("metrics listening on :%d", cfg.Server.MetricsPort)
		if err := obsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Printf("API shutdown: %v", err)
		}
		if err := obsServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics shutdown: %v", err)
		}
		if err := observability.ShutdownTracing(shutdownCtx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
		return nil
	})

	return g.Wait()
}

func newSessionStore(cfg *config.Config, namespace string) (session.Store, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return session.NewMemoryStore(), nil
	case "redis":
		return session.NewRedisStore(session.RedisConfig{
			Addr:       cfg.Storage.Redis.Addr,
			Password:   cfg.Storage.Redis.Password,
			DB:         cfg.Storage.Redis.DB,
			Namespace:  namespace,
			SessionTTL: time.Duration(cfg.Storage.Redis.TTLHours) * time.Hour,
		})
	case "firestore":
		return session.NewFirestoreStore(context.Background(), cfg.Storage.GCP.ProjectID, namespace)
	default:
		return session.NewFileStore(cfg.Storage.DataDir, namespace)
	}
}

func submissionPath(cfg *config.Config) string {
	if cfg.Storage.DataDir == "" {
		return ""
	}
	return cfg.Storage.DataDir + "/submissions.jsonl"
}

func uploadDir(cfg *config.Config) string {
	if cfg.Storage.DataDir == "" {
		return ""
	}
	return cfg.Storage.DataDir + "/uploads"
}
