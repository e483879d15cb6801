package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"kilometers.ai/libbundle/internal/application/ports"
	"kilometers.ai/libbundle/internal/core/domain"
)

// NewTreeCommand creates the tree command
func NewTreeCommand(container *CLIContainer) *cobra.Command {
	flags := &BundleFlags{}
	var plain bool

	cmd := &cobra.Command{
		Use:   "tree <root>",
		Short: "Browse the dependency closure of a root",
		Long: `Resolve the dependency closure of a root without modifying anything and show it
as a tree. Bundled dependencies can be expanded; excluded, system and unresolved
references are shown as leaves.

Controls: [↑↓/jk] Navigate | [enter/space] Expand/Collapse | [e] Expand all | [q] Quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfiguration(cmd, container, flags)
			if err != nil {
				return err
			}
			cfg.DryRun = ports.Bool(true)

			reports, err := container.BundleService.Bundle(cmd.Context(), cfg, args, nil)
			if err != nil {
				return err
			}
			root := buildTree(reports[0])

			if plain {
				root.expandAll()
				fmt.Fprint(container.out(), renderPlainTree(root))
				return nil
			}

			program := tea.NewProgram(newTreeModel(root), tea.WithAltScreen())
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("tree browser failed: %w", err)
			}
			return nil
		},
	}

	addBundleFlags(cmd, flags)
	cmd.Flags().BoolVar(&plain, "plain", false, "Print the fully expanded tree instead of browsing it")
	return cmd
}

// treeNode is one artifact or reference in the closure tree
type treeNode struct {
	label    string
	path     string
	status   domain.EdgeStatus
	rule     string
	repeat   bool
	expanded bool
	children []*treeNode
}

// buildTree turns a report's edge list into a tree rooted at the report root.
// An artifact reached a second time is shown once more as a leaf marked as repeated.
func buildTree(report *domain.BundleReport) *treeNode {
	root := &treeNode{label: filepath.Base(report.Root), path: report.Root, status: domain.EdgeBundled, expanded: true}
	expanded := map[string]bool{report.Root: true}

	var grow func(n *treeNode)
	grow = func(n *treeNode) {
		for _, edge := range report.EdgesFrom(n.path) {
			child := &treeNode{label: edge.Reference, path: edge.To, status: edge.Status, rule: edge.Rule}
			n.children = append(n.children, child)
			if edge.Status != domain.EdgeBundled || edge.To == "" {
				continue
			}
			if expanded[edge.To] {
				child.repeat = true
				continue
			}
			expanded[edge.To] = true
			grow(child)
		}
	}
	grow(root)
	return root
}

func (n *treeNode) expandAll() {
	n.expanded = true
	for _, c := range n.children {
		c.expandAll()
	}
}

// visibleRow is a node at its rendered depth
type visibleRow struct {
	node  *treeNode
	depth int
}

func (n *treeNode) visible() []visibleRow {
	var rows []visibleRow
	var walk func(node *treeNode, depth int)
	walk = func(node *treeNode, depth int) {
		rows = append(rows, visibleRow{node: node, depth: depth})
		if !node.expanded {
			return
		}
		for _, c := range node.children {
			walk(c, depth+1)
		}
	}
	walk(n, 0)
	return rows
}

func (r visibleRow) render() string {
	marker := "  "
	if len(r.node.children) > 0 {
		marker = "▸ "
		if r.node.expanded {
			marker = "▾ "
		}
	}

	line := strings.Repeat("  ", r.depth) + marker + r.node.label
	if r.depth > 0 {
		line += " " + styleStatus(r.node.status)
	}
	if r.node.rule != "" {
		line += mutedStyle.Render(" (" + r.node.rule + ")")
	}
	if r.node.repeat {
		line += mutedStyle.Render(" (see above)")
	}
	return line
}

func renderPlainTree(root *treeNode) string {
	var b strings.Builder
	for _, row := range root.visible() {
		b.WriteString(row.render() + "\n")
	}
	return b.String()
}

// treeModel holds the state for the Bubble Tea tree browser
type treeModel struct {
	root         *treeNode
	selectedRow  int
	windowHeight int
}

func newTreeModel(root *treeNode) treeModel {
	return treeModel{root: root}
}

// Init implements the Bubble Tea init method
func (m treeModel) Init() tea.Cmd {
	return nil
}

// Update implements the Bubble Tea update method
func (m treeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowHeight = msg.Height
		return m, nil

	case tea.KeyMsg:
		rows := m.root.visible()
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit

		case "up", "k":
			if m.selectedRow > 0 {
				m.selectedRow--
			}

		case "down", "j":
			if m.selectedRow < len(rows)-1 {
				m.selectedRow++
			}

		case "enter", " ", "right", "left", "l", "h":
			node := rows[m.selectedRow].node
			if len(node.children) > 0 {
				node.expanded = !node.expanded
			}

		case "e":
			m.root.expandAll()
		}
	}

	return m, nil
}

// View implements the Bubble Tea view method
func (m treeModel) View() string {
	rows := m.root.visible()

	start, end := 0, len(rows)
	if maxRows := m.windowHeight - 4; maxRows > 0 && len(rows) > maxRows {
		start = m.selectedRow - maxRows/2
		if start < 0 {
			start = 0
		}
		if start+maxRows > len(rows) {
			start = len(rows) - maxRows
		}
		end = start + maxRows
	}

	lines := []string{titleStyle.Render("Dependency closure of " + m.root.label)}
	for i := start; i < end; i++ {
		line := rows[i].render()
		if i == m.selectedRow {
			line = selectStyle.Render(line)
		}
		lines = append(lines, line)
	}

	footer := mutedStyle.Render("Controls: [↑↓] Navigate | [enter] Expand/Collapse | [e] Expand all | [q] Quit")
	lines = append(lines, "", footer)

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
