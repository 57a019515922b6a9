package rest

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/pkg/handlers"
	"github.com/rocketscienceinc/tictactoe-arena/pkg/metrics"
)

// Start - serves the operational endpoints: liveness and Prometheus metrics.
func Start(port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", handlers.PingHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
