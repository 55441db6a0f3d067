package cmd

import (
	"context"
	"dispatch-backend/controller"
	"dispatch-backend/dal"
	"dispatch-backend/metrics"
	"dispatch-backend/notify"
	"dispatch-backend/repository"
	"dispatch-backend/services"
	"dispatch-backend/worker"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

var noWorker bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the infrastructure worker",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	dalContainer, err := dal.NewDALContainer(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	repos := repository.NewRepositoryContainer(dalContainer, cfg, log)

	publisher := notify.NewPublisher(cfg, log)
	defer publisher.Close()

	var (
		recorder metrics.Recorder = metrics.NopRecorder{}
		gatherer prometheus.Gatherer
	)
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		sink, err := metrics.NewPromSink(reg)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		recorder, gatherer = sink, reg
	}

	// services must see a nil interface, not a typed nil, when the worker is off
	var workerStatus services.WorkerStatusSource
	if !noWorker {
		infraWorker, err := worker.NewService(cfg, dalContainer.GetDatabaseClient(), repos.GetLockRepository(), log)
		if err != nil {
			return err
		}
		if err := infraWorker.StartInBackground(); err != nil {
			return fmt.Errorf("failed to start infrastructure worker: %w", err)
		}
		defer infraWorker.Stop()
		workerStatus = infraWorker
	} else {
		log.Warn("Infrastructure worker disabled")
	}

	svc := services.NewService(repos, dalContainer, workerStatus, publisher, recorder, log, cfg)
	router := controller.NewController(cfg, svc, recorder, gatherer, log).Router()

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.AppHost, cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting %s %s on %s", cfg.AppName, cfg.AppVersion, server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
