// Command ampctl is the D-4NP2 amplifier control daemon.
// Run with --mock to use simulated hardware (no I2C device required).
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/micro-nova/ampctl/internal/api"
	"github.com/micro-nova/ampctl/internal/auth"
	"github.com/micro-nova/ampctl/internal/config"
	"github.com/micro-nova/ampctl/internal/controller"
	"github.com/micro-nova/ampctl/internal/events"
	"github.com/micro-nova/ampctl/internal/hardware"
	"github.com/micro-nova/ampctl/internal/maintenance"
	"github.com/micro-nova/ampctl/internal/models"
	"github.com/micro-nova/ampctl/internal/powerwatch"
	"github.com/micro-nova/ampctl/internal/zeroconf"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	var (
		mock      = flag.Bool("mock", false, "use mock hardware driver (no I2C device required)")
		addr      = flag.String("addr", ":8080", "HTTP listen address")
		cfgDir    = flag.String("config-dir", "", "config directory (default: ~/.config/ampctl)")
		debug     = flag.Bool("debug", false, "enable debug logging")
		busDriver = flag.String("bus-driver", "ioctl", "I2C access method: ioctl or periph")
		i2cBus    = flag.String("i2c-bus", hardware.DefaultBus, "I2C bus device")
		i2cAddr   = flag.Uint("i2c-addr", hardware.DefaultAddr, "7-bit amplifier address")
		noMDNS    = flag.Bool("no-mdns", false, "do not advertise the API over mDNS")
		noSleep   = flag.Bool("no-sleep-hook", false, "do not follow logind suspend/resume")
		faultPoll = flag.Duration("fault-poll", maintenance.DefaultFaultInterval, "protection flag poll interval (0 disables)")
	)
	flag.Parse()

	// Configure logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Resolve config directory
	if *cfgDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("cannot determine home directory", "err", err)
			os.Exit(1)
		}
		*cfgDir = filepath.Join(home, ".config", "ampctl")
	}
	if err := os.MkdirAll(*cfgDir, 0755); err != nil {
		slog.Error("cannot create config directory", "path", *cfgDir, "err", err)
		os.Exit(1)
	}

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Hardware driver
	if *i2cAddr > 0x7F {
		slog.Error("invalid I2C address", "addr", *i2cAddr)
		os.Exit(1)
	}
	var hw hardware.Driver
	switch {
	case *mock:
		slog.Info("using mock hardware driver")
		hw = hardware.NewMock()
	case *busDriver == "periph":
		slog.Info("using periph I2C driver", "bus", *i2cBus, "addr", *i2cAddr)
		hw = hardware.NewPeriph(strings.TrimPrefix(*i2cBus, "/dev/i2c-"), uint16(*i2cAddr))
	case *busDriver == "ioctl":
		slog.Info("using ioctl I2C driver", "bus", *i2cBus, "addr", *i2cAddr)
		hw = hardware.NewI2C(*i2cBus, uint16(*i2cAddr))
	default:
		slog.Error("unknown bus driver", "driver", *busDriver)
		os.Exit(1)
	}
	if err := hw.Init(ctx); err != nil {
		slog.Error("hardware initialization failed", "err", err)
		os.Exit(1)
	}
	defer hw.Close()

	// Config store and event bus
	store := config.NewJSONStore(*cfgDir)
	bus := events.NewBus()
	defer bus.Close()

	// Controller
	ctrl, err := controller.New(hw, store, bus, version)
	if err != nil {
		slog.Error("controller initialization failed", "err", err)
		os.Exit(1)
	}
	if err := ctrl.Start(ctx); err != nil {
		slog.Warn("default preset failed", "err", err)
	}

	// Auth service, keys follow the config file
	authSvc := auth.NewService(ctrl.Config().APIKeys)

	if err := config.Watch(ctx, store, func(cfg *models.Config) {
		ctrl.ApplyConfig(cfg)
		authSvc.SetKeys(cfg.APIKeys)
	}); err != nil {
		slog.Warn("config watch disabled", "err", err)
	}

	// Fault polling and config backups
	maint := maintenance.New(store.Path(),
		func(ctx context.Context) (models.Faults, error) {
			f, appErr := ctrl.Faults(ctx)
			if appErr != nil {
				return f, appErr
			}
			return f, nil
		},
		ctrl.ReportFaults,
	)
	maint.SetFaultInterval(*faultPoll)
	go maint.Start(ctx)

	// Suspend/resume
	if !*noSleep {
		pw := powerwatch.New(ctrl)
		go func() {
			if err := pw.Run(ctx); err != nil {
				slog.Warn("powerwatch failed", "err", err)
			}
		}()
	}

	// Zeroconf mDNS registration
	if !*noMDNS {
		hostname, _ := os.Hostname()
		zc := zeroconf.New(hostname, listenPort(*addr), version, !hw.IsReal())
		go func() {
			if err := zc.Start(ctx); err != nil {
				slog.Warn("zeroconf failed", "err", err)
			}
		}()
	}

	// HTTP server
	srv := &http.Server{
		Addr:         *addr,
		Handler:      api.NewRouter(ctrl, authSvc, bus, maint),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("ampctl listening", "addr", *addr, "mock", *mock, "config", *cfgDir, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()

	// Graceful HTTP shutdown; SSE clients are released by closing the bus.
	bus.Close()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	// Leave the amplifier silent
	if err := ctrl.Shutdown(shutCtx); err != nil {
		slog.Warn("amplifier power-off failed", "err", err)
	}

	slog.Info("shutdown complete")
}

// listenPort extracts the port from a listen address, defaulting to 80.
func listenPort(addr string) int {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 80
	}
	n, err := strconv.Atoi(p)
	if err != nil {
		return 80
	}
	return n
}
