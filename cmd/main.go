/*
Shortlink application

boundary: kiosk
service: kiosk-oms
*/
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/shortlink-org/go-sdk/graceful_shutdown"
	"github.com/spf13/viper"

	kiosk_di "github.com/shortlink-org/kiosk-oms/internal/di"
	domainfsm "github.com/shortlink-org/kiosk-oms/internal/domain/fsm"
)

func main() {
	viper.SetDefault("SERVICE_NAME", "kiosk-oms")

	// A malformed transition table must fail startup, not reject
	// transitions silently at runtime.
	if err := domainfsm.Validate(); err != nil {
		panic(err)
	}

	// Init a new service
	service, cleanup, err := kiosk_di.InitializeKioskOMSService()
	if err != nil {
		panic(err)
	}

	service.Log.Info("Service initialized")

	defer func() {
		if r := recover(); r != nil {
			service.Log.Error("panic recovered", slog.Any("error", r))
		}
	}()

	if err := service.Recovery.Run(context.Background()); err != nil {
		service.Log.Error("recovery scan failed", slog.String("error", err.Error()))
	}

	// Handle SIGINT, SIGQUIT and SIGTERM.
	signal := graceful_shutdown.GracefulShutdown()

	cleanup()

	service.Log.Info("Service stopped", slog.String("signal", signal.String()))

	// Exit Code 143: Graceful Termination (SIGTERM)
	os.Exit(143) //nolint:gocritic // exit code 143 is used to indicate graceful termination
}
