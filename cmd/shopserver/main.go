package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/iurnickita/dairyshop/internal/auth"
	"github.com/iurnickita/dairyshop/internal/config"
	"github.com/iurnickita/dairyshop/internal/handler"
	"github.com/iurnickita/dairyshop/internal/logger"
	"github.com/iurnickita/dairyshop/internal/service"
	"github.com/iurnickita/dairyshop/internal/store"
	"github.com/iurnickita/dairyshop/internal/token"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.GetConfig()

	zaplog, err := logger.NewZapLog(cfg.Logger)
	if err != nil {
		return err
	}
	defer zaplog.Sync()

	store, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	service, err := service.NewService(cfg.Service, store, zaplog)
	if err != nil {
		return err
	}
	defer func() {
		if err := service.Close(); err != nil {
			zaplog.Warn("warehouse publisher close", zap.Error(err))
		}
	}()

	// без заданного секрета сессии живут до перезапуска процесса
	if cfg.Handler.TokenSecret == "" {
		secret, err := token.RandomSecret()
		if err != nil {
			return err
		}
		cfg.Handler.TokenSecret = secret
		zaplog.Warn("TOKEN_SECRET is not set, using a random secret for this process")
	}
	issuer := token.NewIssuer(cfg.Handler.TokenSecret, cfg.Handler.TokenTTL)
	auth := auth.NewAuth(service, issuer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return handler.Serve(ctx, cfg.Handler, auth, service, zaplog)
}
