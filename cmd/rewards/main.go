// Package main запускает HTTP-сервер платформы вознаграждений.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/rewards-system/internal/config"
	"github.com/mmeshcher/rewards-system/internal/handler"
	"github.com/mmeshcher/rewards-system/internal/middleware"
	"github.com/mmeshcher/rewards-system/internal/pricing"
	"github.com/mmeshcher/rewards-system/internal/repository"
	"github.com/mmeshcher/rewards-system/internal/service"
)

const reorderCheckInterval = time.Minute

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	var repo service.Repository
	if cfg.DatabaseURI != "" {
		pg, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		repo = pg
	} else {
		sugar.Info("database URI is empty, using in-memory storage")
		repo = repository.NewMemoryRepository()
	}

	var priceProvider service.PriceProvider
	if cfg.PricingSystemAddress != "" {
		priceProvider = pricing.NewClient(cfg.PricingSystemAddress)
	}

	budget := service.BudgetConfig{
		MonthlyLimit:   cfg.MonthlyBudgetLimit,
		WarningPercent: cfg.BudgetWarningPercent,
		HardLimit:      cfg.BudgetHardLimit,
	}

	svc := service.NewService(repo, priceProvider, budget, logger)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фонового контроля остатков склада
	g.Go(func() error {
		svc.StartReorderWatch(ctx, reorderCheckInterval)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting rewards server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
