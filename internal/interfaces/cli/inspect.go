package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"kilometers.ai/libbundle/internal/application/services"
	"kilometers.ai/libbundle/internal/core/policy"
)

// NewInspectCommand creates the inspect command
func NewInspectCommand(container *CLIContainer) *cobra.Command {
	flags := &BundleFlags{}

	cmd := &cobra.Command{
		Use:   "inspect <artifact>",
		Short: "Show an artifact's architectures and how each reference is classified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfiguration(cmd, container, flags)
			if err != nil {
				return err
			}

			inspection, err := container.InspectService.Inspect(cmd.Context(), cfg, args[0])
			if err != nil {
				return err
			}
			printInspection(container.out(), inspection)
			return nil
		},
	}

	addBundleFlags(cmd, flags)
	return cmd
}

func printInspection(w io.Writer, inspection *services.Inspection) {
	fmt.Fprintln(w, titleStyle.Render(inspection.Path))
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Format       "), inspection.Format)
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Architectures"), inspection.Architectures)
	fmt.Fprintf(w, "  %s %d\n", labelStyle.Render("References   "), len(inspection.References))

	for _, ref := range inspection.References {
		class := okStyle.Render(string(ref.Class))
		if ref.Class != policy.ClassBundlable {
			class = mutedStyle.Render(string(ref.Class))
		}
		line := fmt.Sprintf("  %-10s %-11s %s", ref.Kind, class, ref.Reference)
		if ref.Rule != "" {
			line += mutedStyle.Render(" (" + ref.Rule + ")")
		}
		fmt.Fprintln(w, line)
	}
	if len(inspection.Rules) > 0 {
		fmt.Fprintln(w, labelStyle.Render(fmt.Sprintf("%d active rules:", len(inspection.Rules))))
		for _, rule := range inspection.Rules {
			fmt.Fprintln(w, "  "+mutedStyle.Render(rule))
		}
	}
}
