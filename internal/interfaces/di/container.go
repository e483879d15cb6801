package di

import (
	"context"
	"fmt"

	"kilometers.ai/libbundle/internal/application/ports"
	"kilometers.ai/libbundle/internal/application/services"
	"kilometers.ai/libbundle/internal/infrastructure/binfmt"
	"kilometers.ai/libbundle/internal/infrastructure/config"
	"kilometers.ai/libbundle/internal/infrastructure/fsutil"
	"kilometers.ai/libbundle/internal/infrastructure/logging"
	"kilometers.ai/libbundle/internal/infrastructure/process"
	"kilometers.ai/libbundle/internal/interfaces/cli"
)

// Container holds all application dependencies
type Container struct {
	// Configuration
	ConfigRepo *config.CompositeConfigRepository

	// Infrastructure
	Executor   *process.Executor
	Toolchains *binfmt.Registry
	Files      *fsutil.LocalFileStore

	// Application services
	BundleService  *services.BundleService
	InspectService *services.InspectService
	VerifyService  *services.VerifyService

	// CLI
	CLIContainer *cli.CLIContainer

	// Logger
	Logger ports.LoggingGateway
}

// NewContainer creates and configures the dependency injection container
func NewContainer() (*Container, error) {
	return NewContainerWithLogger(logging.NewConsoleLogger())
}

// NewContainerWithLogger creates a container that logs through logger
func NewContainerWithLogger(logger ports.LoggingGateway) (*Container, error) {
	container := &Container{
		Logger: logger,
	}

	if err := container.initializeComponents(); err != nil {
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return container, nil
}

// initializeComponents initializes all components with proper dependencies
func (c *Container) initializeComponents() error {
	// 1. Initialize configuration repository
	c.ConfigRepo = config.NewCompositeConfigRepository("")

	// 2. Load configuration for tool settings
	appConfig, err := c.ConfigRepo.Load()
	if err != nil {
		c.Logger.LogWarning("Failed to load configuration, using defaults", map[string]interface{}{"error": err.Error()})
		appConfig = c.ConfigRepo.LoadDefault()
	}

	// 3. Initialize infrastructure components
	c.Executor = process.NewExecutorWithOptions(appConfig.Timeout(), "", nil)
	c.Toolchains = binfmt.NewRegistry(c.Executor, toolsFrom(appConfig))
	c.Files = fsutil.NewLocalFileStore()

	// 4. Initialize application services
	c.BundleService = services.NewBundleService(c.Toolchains, c.Files, c.Logger)
	c.InspectService = services.NewInspectService(c.Toolchains, c.Logger)
	c.VerifyService = services.NewVerifyService(c.Toolchains, c.Logger)

	// 5. Initialize CLI container
	c.CLIContainer = &cli.CLIContainer{
		BundleService:  c.BundleService,
		InspectService: c.InspectService,
		VerifyService:  c.VerifyService,
		ConfigRepo:     c.ConfigRepo,
		Logger:         c.Logger,
		MainContainer:  c,
	}

	c.Logger.LogDebug("Dependency injection container initialized", nil)
	return nil
}

// GetCLIContainer returns the CLI container for command execution
func (c *Container) GetCLIContainer() *cli.CLIContainer {
	return c.CLIContainer
}

// ApplyToolOverrides rebuilds the tool executor from the effective configuration.
// Explicitly configured tools must resolve; defaults are looked up when first run.
func (c *Container) ApplyToolOverrides(cfg *ports.Configuration) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if cfg.ToolTimeout <= 0 {
		return fmt.Errorf("tool timeout must be greater than 0")
	}

	executor := process.NewExecutorWithOptions(cfg.Timeout(), "", nil)
	for _, tool := range []string{cfg.InstallNameTool, cfg.Patchelf} {
		if tool == "" {
			continue
		}
		if _, err := executor.LookPath(tool); err != nil {
			return fmt.Errorf("configured tool is not usable: %w", err)
		}
	}

	c.Executor = executor
	c.Toolchains.Reconfigure(c.Executor, toolsFrom(cfg))

	c.Logger.LogDebug("Applied tool overrides", map[string]interface{}{
		"install_name_tool": cfg.InstallNameTool,
		"patchelf":          cfg.Patchelf,
		"tool_timeout":      cfg.Timeout().String(),
	})
	return nil
}

// HealthCheck verifies that every component is initialized
func (c *Container) HealthCheck(ctx context.Context) error {
	if c.ConfigRepo == nil {
		return fmt.Errorf("configuration repository not initialized")
	}
	if c.Toolchains == nil {
		return fmt.Errorf("toolchain registry not initialized")
	}
	if c.BundleService == nil || c.InspectService == nil || c.VerifyService == nil {
		return fmt.Errorf("application services not initialized")
	}
	return nil
}

func toolsFrom(cfg *ports.Configuration) binfmt.Tools {
	return binfmt.Tools{
		InstallNameTool: cfg.InstallNameTool,
		Patchelf:        cfg.Patchelf,
	}
}
