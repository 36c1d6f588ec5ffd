// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/vitrine/core/logger"
	"github.com/relabs-tech/vitrine/internal/app"
	"github.com/relabs-tech/vitrine/web"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Default().WithError(err).Fatalln("cannot start")
	}
	defer a.Close()

	handler := a.API.Handler()
	if cfg.AccessLog {
		handler = web.LoggingHandler(handler)
	}
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.Cron.Start()
	go func() {
		logger.Default().Infof("listen on port :%d", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Default().WithError(err).Errorln("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Default().Infoln("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Default().WithError(err).Errorln("shutdown")
	}
}
