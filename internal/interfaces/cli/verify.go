package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"kilometers.ai/libbundle/internal/application/services"
)

// NewVerifyCommand creates the verify command
func NewVerifyCommand(container *CLIContainer) *cobra.Command {
	flags := &BundleFlags{}

	cmd := &cobra.Command{
		Use:   "verify <root>...",
		Short: "Check that bundled roots only reference libraries inside the bundle",
		Long: `Check each root and every library in its bundle directory: bundlable references
must use the bundled form and name a file in the bundle directory, and every
bundled library must cover the required architectures.

Exits non-zero when any problem is found.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfiguration(cmd, container, flags)
			if err != nil {
				return err
			}

			failed := 0
			for _, root := range args {
				result, err := container.VerifyService.Verify(cmd.Context(), cfg, root)
				if err != nil {
					return err
				}
				printVerification(container.out(), result)
				if !result.OK() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("verification failed for %d of %d roots", failed, len(args))
			}
			return nil
		},
	}

	addBundleFlags(cmd, flags)
	return cmd
}

func printVerification(w io.Writer, result *services.Verification) {
	if result.OK() {
		fmt.Fprintf(w, "%s %s (%d artifacts, %s)\n", okStyle.Render("✓"), result.Root, len(result.Checked), result.Architectures)
		return
	}
	fmt.Fprintf(w, "%s %s: %d problems\n", errorStyle.Render("✗"), result.Root, len(result.Problems))
	for _, p := range result.Problems {
		subject := p.Artifact
		if p.Reference != "" {
			subject += " -> " + p.Reference
		}
		fmt.Fprintf(w, "  %s %s: %s\n", warningStyle.Render(p.Kind), subject, p.Detail)
	}
}
