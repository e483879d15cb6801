package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"kilometers.ai/libbundle/internal/application/ports"
	"kilometers.ai/libbundle/internal/application/services"
	"kilometers.ai/libbundle/internal/infrastructure/config"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// CLIContainer holds all the dependencies for CLI commands
type CLIContainer struct {
	BundleService  *services.BundleService
	InspectService *services.InspectService
	VerifyService  *services.VerifyService
	ConfigRepo     *config.CompositeConfigRepository
	Logger         ports.LoggingGateway
	Out            io.Writer
	MainContainer  interface{} // Set to *di.Container, avoiding circular import
}

func (c *CLIContainer) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// NewRootCommand creates the base command when called without any subcommands
func NewRootCommand(container *CLIContainer) *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "libbundle",
		Short: "Bundle the shared library closure of an executable",
		Long: `libbundle copies every non-system shared library an executable depends on
into a single bundle directory and rewrites link records so the application
loads its own copies.

Mach-O binaries are edited with install_name_tool, ELF binaries with patchelf.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("config") {
				path, _ := cmd.Flags().GetString("config")
				container.ConfigRepo = config.NewCompositeConfigRepository(path)
			}
			if debugMode, _ := cmd.Flags().GetBool("debug"); debugMode {
				container.Logger.SetLogLevel(ports.LogLevelDebug)
			}
			return nil
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))
	rootCmd.SetOut(container.out())

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Config file path (default is $LIBBUNDLE_CONFIG or ./libbundle.json)")

	rootCmd.AddCommand(NewBundleCommand(container))
	rootCmd.AddCommand(NewInspectCommand(container))
	rootCmd.AddCommand(NewVerifyCommand(container))
	rootCmd.AddCommand(NewTreeCommand(container))
	rootCmd.AddCommand(NewConfigCommand(container))

	return rootCmd
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

// Execute runs the root command and returns the process exit code
func Execute(ctx context.Context, container *CLIContainer, args []string) int {
	rootCmd := NewRootCommand(container)
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		return 1
	}
	return 0
}
