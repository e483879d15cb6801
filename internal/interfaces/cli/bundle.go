package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"kilometers.ai/libbundle/internal/core/domain"
	coreports "kilometers.ai/libbundle/internal/core/ports"
)

// NewBundleCommand creates the bundle command
func NewBundleCommand(container *CLIContainer) *cobra.Command {
	flags := &BundleFlags{}
	var (
		noProgress bool
		verify     bool
	)

	cmd := &cobra.Command{
		Use:   "bundle <root>...",
		Short: "Copy the dependency closure of one or more roots into the bundle directory",
		Long: `Copy every non-system shared library reachable from each root into the bundle
directory, set each copy's identity to its bundled location, and rewrite every
link record that referred to the original.

Unresolved dependencies are reported as warnings and do not fail the run.

Examples:
  libbundle bundle dist/App.app/Contents/MacOS/cr3 -L /opt/homebrew/lib
  libbundle bundle dist/cr3/cr3 --format elf -b dist/cr3/lib -L /usr/local/lib
  libbundle bundle cr3 --dry-run --exclude 'libQt*'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfiguration(cmd, container, flags)
			if err != nil {
				return err
			}

			out := container.out()
			for _, root := range args {
				var observer coreports.ProgressObserver
				var progress *progressObserver
				if !noProgress {
					progress = newProgressObserver(os.Stderr, root)
					observer = progress
				}

				reports, err := container.BundleService.Bundle(cmd.Context(), cfg, []string{root}, observer)
				if progress != nil {
					progress.Finish()
				}
				printReports(out, reports)
				if err != nil {
					return err
				}

				if verify && !cfg.IsDryRun() {
					result, err := container.VerifyService.Verify(cmd.Context(), cfg, root)
					if err != nil {
						return err
					}
					printVerification(out, result)
					if !result.OK() {
						return fmt.Errorf("verification of %s failed with %d problems", root, len(result.Problems))
					}
				}
			}
			return nil
		},
	}

	addBundleFlags(cmd, flags)
	cmd.Flags().BoolVarP(&flags.DryRun, "dry-run", "n", false, "Resolve and report without copying or rewriting")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress spinner")
	cmd.Flags().BoolVar(&verify, "verify", false, "Verify the bundle after copying")

	return cmd
}

func printReports(w io.Writer, reports []*domain.BundleReport) {
	for _, report := range reports {
		fmt.Fprint(w, renderReport(report))
	}
}
