package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vendalink/ordersync/internal/api/handlers"
	"github.com/vendalink/ordersync/internal/api/router"
	"github.com/vendalink/ordersync/internal/config"
	"github.com/vendalink/ordersync/internal/pkg/logger"
	"github.com/vendalink/ordersync/internal/pkg/validator"
	"github.com/vendalink/ordersync/internal/providers/bling"
	"github.com/vendalink/ordersync/internal/providers/nuvemshop"
	"github.com/vendalink/ordersync/internal/providers/shopee"
	"github.com/vendalink/ordersync/internal/repository"
	"github.com/vendalink/ordersync/internal/services"
	"github.com/vendalink/ordersync/internal/store"
	engine "github.com/vendalink/ordersync/internal/sync"
	"github.com/vendalink/ordersync/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	st, err := store.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	// Repositories
	accountRepo := repository.NewAccountRepository(st)
	orderRepo := repository.NewOrderRepository(st)
	statusRepo := repository.NewSyncStatusRepository(st)
	userRepo := repository.NewUserRepository(st)

	// Sync engine
	tokens := engine.NewTokenManager(accountRepo, cfg.Sync.TokenSafetyMargin, log)
	tracker := engine.NewJobTracker()
	orch := engine.NewOrchestrator(accountRepo, orderRepo, statusRepo, tracker, cfg.Sync, log)

	// Provider adapters
	nuvemshopAdapter := nuvemshop.New(cfg.Providers.Nuvemshop, cfg.Sync, tokens, log)
	blingAdapter := bling.New(cfg.Providers.Bling, cfg.Sync, tokens, log)
	shopeeAdapter := shopee.New(cfg.Providers.Shopee, cfg.Sync, tokens, log)

	tokens.RegisterRefresher(nuvemshopAdapter.Provider(), nuvemshopAdapter.Refresher())
	tokens.RegisterRefresher(blingAdapter.Provider(), blingAdapter.Refresher())
	tokens.RegisterRefresher(shopeeAdapter.Provider(), shopeeAdapter.Refresher())

	orch.RegisterConnector(nuvemshopAdapter)
	orch.RegisterConnector(blingAdapter)
	orch.RegisterConnector(shopeeAdapter)

	// Services
	accountService := services.NewAccountService(accountRepo, log)
	userService := services.NewUserService(userRepo, cfg.Auth, log)

	// HTTP layer
	v := validator.New()
	h := router.Handlers{
		Auth:    handlers.NewAuthHandler(userService, v),
		Account: handlers.NewAccountHandler(accountService, v),
		Sync:    handlers.NewSyncHandler(orch, statusRepo, log),
		Order:   handlers.NewOrderHandler(orderRepo),
		Health:  handlers.NewHealthHandler(st),
	}
	r := router.New(cfg, log, h)

	// Background poller
	poller := worker.NewUpdatePoller(accountRepo, orch, cfg.Worker, log)
	if err := poller.Start(); err != nil {
		log.Fatalf("Failed to start update poller: %v", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Infof("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	poller.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server shutdown error: %v", err)
	}

	log.Info("Server stopped")
}
