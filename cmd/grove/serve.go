package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/grove/internal/httpapi"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard HTTP API",
	Long: `Serve runs the dashboard API until interrupted.

Examples:
  grove serve
  grove serve --port 8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	orch, cfg, log, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer flushLog(log)

	host := cfg.HTTP.Host
	if serveHost != "" {
		host = serveHost
	}
	port := cfg.HTTP.Port
	if servePort != 0 {
		port = servePort
	}

	srv, err := httpapi.NewServer(orch, log, host, port)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	fmt.Printf("Dashboard on http://%s:%d\n", host, port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
