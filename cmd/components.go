// File: cmd/components.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
	"github.com/BilalMagg/Auralia-sub000/internal/agent"
	"github.com/BilalMagg/Auralia-sub000/internal/appdir"
	"github.com/BilalMagg/Auralia-sub000/internal/config"
	"github.com/BilalMagg/Auralia-sub000/internal/device/adb"
	"github.com/BilalMagg/Auralia-sub000/internal/interpreter"
	"github.com/BilalMagg/Auralia-sub000/internal/llmclient"
	"github.com/BilalMagg/Auralia-sub000/internal/metrics"
	"github.com/BilalMagg/Auralia-sub000/internal/sequencer"
	"github.com/BilalMagg/Auralia-sub000/internal/taskstore"
)

// Device is the UI surface the commands drive.
type Device interface {
	schemas.UISurface
	schemas.ScreenCapturer
}

// factories create the external dependencies of a command.
type factories struct {
	planner func(cfg config.LLMRouterConfig, logger *zap.Logger) (schemas.LLMClient, error)
	device  func(cfg config.DeviceConfig, logger *zap.Logger) Device
	store   func(ctx context.Context, cfg config.TaskStoreConfig, logger *zap.Logger) (taskstore.Store, error)
}

func defaultFactories() factories {
	return factories{
		planner: llmclient.NewClient,
		device: func(cfg config.DeviceConfig, logger *zap.Logger) Device {
			return adb.New(cfg, logger)
		},
		store: taskstore.New,
	}
}

// components holds what a command has initialized.
type components struct {
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	apps     *appdir.Directory
	planner  schemas.LLMClient
	device   Device
	store    taskstore.Store
	server   *http.Server
}

// Shutdown releases everything that was opened.
func (c *components) Shutdown() {
	if c.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.server.Shutdown(ctx); err != nil {
			c.logger.Warn("Error shutting down metrics server", zap.Error(err))
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.logger.Warn("Error closing task store", zap.Error(err))
		}
	}
	if c.planner != nil {
		if err := c.planner.Close(); err != nil {
			c.logger.Warn("Error closing planner client", zap.Error(err))
		}
	}
}

// initializeComponents wires the planner, and optionally the device and the
// task store. A planner that cannot be built is logged and left nil; the
// interpreter then relies on its local layers alone.
func initializeComponents(ctx context.Context, f factories, cfg *config.Config, logger *zap.Logger, withDevice, withStore bool) (*components, error) {
	c := &components{
		logger:   logger,
		registry: prometheus.NewRegistry(),
		apps:     appdir.Default(),
	}
	c.metrics = metrics.New(c.registry)

	planner, err := f.planner(cfg.LLM(), logger)
	if err != nil {
		logger.Warn("Planner unavailable; only local command patterns will be used.", zap.Error(err))
	} else {
		c.planner = planner
	}

	if withDevice {
		c.device = f.device(cfg.Device(), logger)
	}

	if withStore {
		store, err := f.store(ctx, cfg.TaskStore(), logger)
		if err != nil {
			c.Shutdown()
			return nil, fmt.Errorf("failed to initialize task store: %w", err)
		}
		c.store = store
	}
	return c, nil
}

func (c *components) newInterpreter(cfg *config.Config) *interpreter.Interpreter {
	return interpreter.New(c.logger, c.planner, cfg.Interpreter(),
		interpreter.WithMetrics(c.metrics),
		interpreter.WithAppDirectory(c.apps))
}

func (c *components) newSequencer(cfg *config.Config) *sequencer.Sequencer {
	return sequencer.New(c.logger, c.device, cfg.Sequencer(),
		sequencer.WithMetrics(c.metrics),
		sequencer.WithAppDirectory(c.apps))
}

// newAgent observes the screen through the UI tree. No OCR service is wired,
// so the device is never asked for a screenshot just to read text.
func (c *components) newAgent(cfg *config.Config) *agent.Agent {
	a := agent.New(c.logger, c.planner, cfg.Agent(),
		agent.WithTaskStore(c.store),
		agent.WithTreeSource(c.device),
		agent.WithMetrics(c.metrics))
	a.RegisterExecutor(c.newSequencer(cfg))
	return a
}

// serveMetrics exposes the registry on addr until Shutdown.
func (c *components) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	c.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	c.logger.Info("Serving metrics", zap.String("addr", ln.Addr().String()))
	return nil
}
