package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Rakhulsr/axen-cart/app/configs"
	"github.com/Rakhulsr/axen-cart/app/handlers"
	"github.com/Rakhulsr/axen-cart/app/models"
	"github.com/Rakhulsr/axen-cart/app/routes"
	"github.com/Rakhulsr/axen-cart/app/services"
	"github.com/Rakhulsr/axen-cart/app/utils/renderer"
	"github.com/Rakhulsr/axen-cart/app/utils/sessions"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func registryOptions(env configs.ENV) services.RegistryOptions {
	opts := services.RegistryOptions{
		Scope:         services.ScopeMode(env.CartScope),
		Policy:        env.PricingPolicy(),
		Merge:         services.MergeOverwriteNonZero,
		HandoffMaxAge: env.HandoffMaxAge,
	}
	if env.CartPriceMerge == configs.PriceMergeKeepExisting {
		opts.Merge = services.MergeKeepExisting
	}
	return opts
}

func serve(ctx context.Context, env configs.ENV, logger *zap.Logger) error {
	storage, closeStorage, err := configs.OpenStorage(ctx, env, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeStorage()

	keys, err := configs.LoadSessionKeys(env, logger)
	if err != nil {
		return err
	}

	carts := services.NewCartRegistry(ctx, storage, registryOptions(env), logger)
	if err := carts.Start(); err != nil {
		return fmt.Errorf("subscribe to storage: %w", err)
	}
	defer carts.Close()

	cartHandler := handlers.NewCartHandler(
		carts,
		models.DefaultCatalog(),
		renderer.New(!env.IsProduction()),
		validator.New(),
		logger,
	)

	deps := routes.Deps{
		Cart:     cartHandler,
		Sessions: sessions.NewCookieSessionStore(logger, env.IsProduction(), keys.AuthKey, keys.EncKey),
		Logger:   logger,
		Secure:   env.IsProduction(),
	}
	if env.CSRFEnabled {
		deps.CSRFKey = keys.CSRFKey()
	}

	server := &http.Server{
		Addr:              env.Port,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("storage", env.StorageDriver),
			zap.String("cart_scope", env.CartScope),
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
