package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"relayhub/config"
	"relayhub/logger"
	"relayhub/service/api"
	"relayhub/service/bridge"
	"relayhub/service/hub"
	"relayhub/service/hub/handlers"
	"relayhub/service/session"
	"relayhub/service/storage"
	"relayhub/tools/ids"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("load config: %v", err)
		return
	}
	logger.SetLevel(cfg.LogLevel)
	ids.SetNodeID(cfg.NodeID)

	store, err := storage.New(storage.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		logger.Errorf("init redis: %v", err)
		return
	}
	defer func() { _ = store.Close() }()

	validator := session.NewValidator(session.Options{
		CookieName: cfg.Session.CookieName,
		Secret:     []byte(cfg.Session.JWTSecret),
	}, store)

	srv := hub.NewServer(hub.Options{
		NodeID:         cfg.NodeName,
		SendQueueSize:  cfg.Hub.SendQueueSize,
		FanoutQueue:    cfg.Hub.FanoutQueue,
		WriteTimeout:   cfg.Hub.WriteTimeout,
		PongTimeout:    cfg.Hub.PongTimeout,
		PingInterval:   cfg.Hub.PingInterval,
		MaxMessageSize: cfg.Hub.MaxMessageSize,
		PresenceTTL:    cfg.Session.PresenceTTL,
	}, validator, store)
	defer srv.Close()

	handlers.RegisterAll(srv)

	if cfg.Nats.Enabled {
		br, err := bridge.New(bridge.Config{Servers: cfg.Nats.Servers, Name: cfg.Nats.Name})
		if err != nil {
			logger.Errorf("init nats bridge: %v", err)
			return
		}
		defer br.Close()
		srv.SetSink(br)
		if err := br.SubscribeNotify(srv); err != nil {
			logger.Errorf("nats notify subscribe: %v", err)
			return
		}
		logger.Infof("[bridge] connected servers=%v", cfg.Nats.Servers)
	}

	router := api.NewRouter(srv, store, []byte(cfg.Session.JWTSecret))

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("[http] listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("http server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
}
