// @title           DocMind API
// @version         1.0
// @description     Document ingestion, text extraction and AI annotation
// @termsOfService  http://swagger.io/terms/

// @contact.name    akolanti
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/docmind/internal/bootstrap"
	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/internal/server"
	"github.com/akolanti/docmind/pkg/logger_i"
)

func main() {
	cfg := config.Load()
	logger_i.Init(cfg)
	var logger = logger_i.NewLogger("main")

	flag.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "server listen address")
	flag.Parse()

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	logger.Info("Starting services")
	app, err := bootstrap.Build(serviceContext, cfg, bootstrap.Options{})
	if err != nil {
		logger.Error("Could not start services. Shutting down.", "error", err)
		return
	}

	app.Pool.Start()

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	srv := server.CreateServer(cfg.ListenAddr, app.Router())
	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		Pool:             app.Pool,
		CloseServices: func() {
			app.Close()
			closeExternalServices()
		},
	}
	go srv.ShutDownHandler(shutdownParams)
	go srv.ListenAndServe()

	<-stopExecution
	logger.Info("Server stopped")
}
