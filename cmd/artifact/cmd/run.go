package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	artifact "github.com/GoCodeAlone/artifact"
	"github.com/GoCodeAlone/artifact/animation"
	"github.com/GoCodeAlone/artifact/compositor"
	"github.com/GoCodeAlone/artifact/config"
	"github.com/GoCodeAlone/artifact/diag"
	"github.com/GoCodeAlone/artifact/eventbus"
	"github.com/GoCodeAlone/artifact/frame"
	"github.com/GoCodeAlone/artifact/internal/sim"
	"github.com/GoCodeAlone/artifact/mode"
	"github.com/GoCodeAlone/artifact/modes"
	"github.com/GoCodeAlone/artifact/schedule"
	"github.com/GoCodeAlone/artifact/task"
)

// Static errors for the run command
var (
	ErrUnknownMode = errors.New("unknown mode in configuration")
)

// shutdownTimeout bounds the orderly teardown after the run context ends.
const shutdownTimeout = 10 * time.Second

// NewRunCommand creates the command that runs the installation controller.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the installation controller",
		Long: `Run starts the full controller stack: event bus, mode manager,
state machine, compositor and the configured auxiliary services.

Without --config the configuration is assembled from ARTIFACT_* environment
variables and built-in defaults.

Examples:
  artifact run --config artifact.yaml
  artifact run --simulate --sim-mode fortune
  artifact run --caps printer,ai`,
		RunE: runController,
	}

	cmd.Flags().StringP("config", "c", "", "Path to a YAML or TOML configuration file")
	cmd.Flags().Bool("simulate", false, "Log frames instead of driving hardware and replay a scripted session")
	cmd.Flags().String("sim-mode", "attract", "Mode the simulated session selects")
	cmd.Flags().String("caps", "", "Comma-separated capabilities present on this deployment (default: all)")

	return cmd
}

func runController(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	simulate, _ := cmd.Flags().GetBool("simulate")
	simMode, _ := cmd.Flags().GetString("sim-mode")
	capsFlag, _ := cmd.Flags().GetString("caps")

	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := eventbus.New(cfg.Bus, logger)
	if err := bus.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}

	engine := animation.NewEngine()
	spawner := task.NewSpawner(bus, logger)

	registry := mode.NewRegistry()
	if err := registerModes(registry, cfg); err != nil {
		return err
	}

	manager := mode.NewManager(registry, bus, engine, spawner, logger)

	controller, err := artifact.NewController(bus, manager, registry,
		parseCapabilities(capsFlag),
		artifact.Timeouts{
			Select:     time.Duration(cfg.Timeouts.Select),
			Processing: time.Duration(cfg.Timeouts.Processing),
			Result:     time.Duration(cfg.Timeouts.Result),
			Recovery:   time.Duration(cfg.Timeouts.Recovery),
		},
		artifact.NewSlogLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to build controller: %w", err)
	}
	if err := controller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start controller: %w", err)
	}

	frames := &frame.Buffer{}

	comp := compositor.New(compositor.Config{TickRate: cfg.App.TickRate}, engine, bus, logger)
	if simulate {
		if err := sim.RegisterAll(comp, logger); err != nil {
			return fmt.Errorf("failed to register simulated renderers: %w", err)
		}
		driver := sim.NewDriver(bus, sim.DefaultScript(simMode), logger)
		go func() {
			if err := driver.Run(ctx); err != nil {
				logger.Error("scripted session failed", "error", err)
			}
		}()
		camera := sim.NewCamera(frames, logger)
		go func() {
			if err := camera.Run(ctx); err != nil {
				logger.Error("simulated camera failed", "error", err)
			}
		}()
	}

	var calendar *schedule.Calendar
	if len(cfg.Schedule) > 0 {
		calendar = schedule.NewCalendar(bus, logger)
		for _, entry := range cfg.Schedule {
			if err := calendar.Add(schedule.Entry{Spec: entry.Spec, Event: entry.Event}); err != nil {
				return fmt.Errorf("failed to add schedule entry %q: %w", entry.Spec, err)
			}
		}
		if err := calendar.Start(ctx); err != nil {
			return fmt.Errorf("failed to start schedule calendar: %w", err)
		}
	}

	var diagServer *diag.Server
	if cfg.Diag.Enabled {
		diagServer, err = diag.New(cfg.Diag.Addr, bus, controller, registry, logger)
		if err != nil {
			return fmt.Errorf("failed to build diagnostics server: %w", err)
		}
		diagServer.SetFrameBuffer(frames)
		if err := diagServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start diagnostics server: %w", err)
		}
	}

	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, bus, logger)
		if err != nil {
			return fmt.Errorf("failed to build config watcher: %w", err)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("config watcher stopped", "error", err)
			}
		}()
	}

	logger.Info("controller running",
		"tickRate", cfg.App.TickRate,
		"modes", len(registry.Descriptors()),
		"simulate", simulate)

	// Run blocks until the signal context is cancelled.
	runErr := comp.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if diagServer != nil {
		if err := diagServer.Stop(shutdownCtx); err != nil {
			logger.Error("diagnostics server shutdown failed", "error", err)
		}
	}
	if calendar != nil {
		if err := calendar.Stop(shutdownCtx); err != nil {
			logger.Error("schedule calendar shutdown failed", "error", err)
		}
	}
	if err := controller.Stop(shutdownCtx); err != nil {
		logger.Error("controller shutdown failed", "error", err)
	}
	if err := spawner.Close(shutdownCtx); err != nil {
		logger.Error("task spawner shutdown failed", "error", err)
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		logger.Error("event bus shutdown failed", "error", err)
	}

	return runErr
}

// builtinModes maps registry names to the shipped experiences.
func builtinModes() map[string]struct {
	Desc    mode.Descriptor
	Factory mode.Factory
} {
	return map[string]struct {
		Desc    mode.Descriptor
		Factory mode.Factory
	}{
		modes.AttractDescriptor.Name: {
			Desc:    modes.AttractDescriptor,
			Factory: func() mode.Mode { return modes.NewAttract(0) },
		},
		modes.FortuneDescriptor.Name: {
			Desc:    modes.FortuneDescriptor,
			Factory: func() mode.Mode { return modes.NewFortune(nil, 0) },
		},
	}
}

// registerModes fills the registry from the configured mode list. With no
// modes configured every built-in experience is registered.
func registerModes(registry *mode.Registry, cfg config.Config) error {
	builtins := builtinModes()

	if len(cfg.Modes) == 0 {
		for _, name := range []string{modes.AttractDescriptor.Name, modes.FortuneDescriptor.Name} {
			b := builtins[name]
			if err := registry.Register(b.Desc, b.Factory); err != nil {
				return err
			}
		}
		return nil
	}

	for _, entry := range cfg.Modes {
		if !entry.Enabled {
			continue
		}
		b, ok := builtins[entry.Name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownMode, entry.Name)
		}
		desc := b.Desc
		if entry.DisplayName != "" {
			desc.DisplayName = entry.DisplayName
		}
		if len(entry.Requires) > 0 {
			desc.Requires = make([]mode.Capability, 0, len(entry.Requires))
			for _, c := range entry.Requires {
				desc.Requires = append(desc.Requires, mode.Capability(c))
			}
		}
		if err := registry.Register(desc, b.Factory); err != nil {
			return err
		}
	}
	return nil
}

// parseCapabilities turns the --caps flag into a capability provider. An
// empty flag grants everything, which suits development machines.
func parseCapabilities(flag string) artifact.CapabilityProvider {
	if strings.TrimSpace(flag) == "" {
		return nil
	}
	caps := artifact.StaticCapabilities{}
	for _, part := range strings.Split(flag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		caps[mode.Capability(part)] = true
	}
	return caps
}
