package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-arena/internal/bus"
	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-arena/internal/room"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-arena/transport/rest"
	"github.com/rocketscienceinc/tictactoe-arena/transport/websocket"
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	// Cross-instance fanout is optional; without redis the gateway serves
	// its rooms alone.
	var roomBus *bus.RedisBus
	if addr := conf.Redis.GetRedisAddr(); addr != "" {
		instanceID := conf.InstanceID
		if instanceID == "" {
			instanceID = pkg.GenerateNewSessionID()
		}

		var err error
		roomBus, err = bus.New(ctx, logger, addr, instanceID)
		if err != nil {
			return fmt.Errorf("could not connect to redis bus: %w", err)
		}

		defer func() {
			if err = roomBus.Close(); err != nil {
				log.Error("could not close redis bus", "error", err)
			}
		}()

		log.Info("redis bus connected", "instanceID", instanceID)
	} else {
		log.Info("redis bus disabled, running standalone")
	}

	registry := room.NewRegistry()

	var wsServer *websocket.Server
	if roomBus != nil {
		wsServer = websocket.New(logger, roomBus)
	} else {
		wsServer = websocket.New(logger, nil)
	}

	coordinator := usecase.NewCoordinator(logger, registry, wsServer)
	wsServer.AttachEngine(coordinator)

	if roomBus != nil {
		go roomBus.Subscribe(ctx, wsServer.DeliverLocal)
	}

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run WebSocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err := <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err := <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
