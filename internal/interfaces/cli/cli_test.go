package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kilometers.ai/libbundle/internal/application/ports"
	"kilometers.ai/libbundle/internal/application/services"
	"kilometers.ai/libbundle/internal/core/domain"
	"kilometers.ai/libbundle/internal/core/testfixtures"
	"kilometers.ai/libbundle/internal/infrastructure/config"
	"kilometers.ai/libbundle/internal/infrastructure/fsutil"
	"kilometers.ai/libbundle/internal/infrastructure/logging"
)

var arm64 = []string{"arm64"}

type cliFixture struct {
	g          *testfixtures.GraphBuilder
	macOS      string
	frameworks string
	brew       string
	out        *bytes.Buffer
	logs       *bytes.Buffer
	container  *CLIContainer
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	for _, key := range []string{"LIBBUNDLE_CONFIG", "LIBBUNDLE_BUNDLE_DIR", "LIBBUNDLE_FORMAT", "LIBBUNDLE_SEARCH_PATHS", "LIBBUNDLE_DRY_RUN"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	g := testfixtures.NewGraphBuilder(t.TempDir())
	macOS, frameworks := g.AppDirs()
	tc := testfixtures.NewFakeToolchain()
	selector := &testfixtures.StaticSelector{Toolchain: tc}

	out, logs := &bytes.Buffer{}, &bytes.Buffer{}
	logger := logging.NewConsoleLoggerTo(logs, ports.LogLevelInfo)

	return &cliFixture{
		g:          g,
		macOS:      macOS,
		frameworks: frameworks,
		brew:       g.Dir("opt/homebrew/lib"),
		out:        out,
		logs:       logs,
		container: &CLIContainer{
			BundleService:  services.NewBundleService(selector, fsutil.NewLocalFileStore(), logger),
			InspectService: services.NewInspectService(selector, logger),
			VerifyService:  services.NewVerifyService(selector, logger),
			ConfigRepo:     config.NewCompositeConfigRepository(filepath.Join(g.Base(), "libbundle.json")),
			Logger:         logger,
			Out:            out,
		},
	}
}

func (f *cliFixture) run(args ...string) error {
	cmd := NewRootCommand(f.container)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	return cmd.ExecuteContext(context.Background())
}

// graph lays out cr3 -> libB -> libC -> libSystem, plus extra references of cr3
func (f *cliFixture) graph(extra ...string) string {
	libC := f.g.Binary(f.brew, "libC.dylib", arm64, "/usr/lib/libSystem.B.dylib")
	libB := f.g.Binary(f.brew, "libB.dylib", arm64, libC)
	return f.g.Binary(f.macOS, "cr3", arm64, append([]string{libB}, extra...)...)
}

func TestBundleCommand_BundlesAndVerifies(t *testing.T) {
	f := newCLIFixture(t)
	root := f.graph()

	err := f.run("bundle", "--no-progress", "--verify", "-b", f.frameworks, "-L", f.brew, root)
	require.NoError(t, err)

	assert.Equal(t, []string{"libB.dylib", "libC.dylib"}, f.g.Names(f.frameworks))
	out := f.out.String()
	assert.Contains(t, out, "Bundled cr3")
	assert.Contains(t, out, "+ libB.dylib")
	assert.Contains(t, out, "✓ "+root)
}

func TestBundleCommand_UnresolvedIsWarningUntilVerified(t *testing.T) {
	f := newCLIFixture(t)
	root := f.graph("@rpath/libmissing.dylib")

	require.NoError(t, f.run("bundle", "--no-progress", "-b", f.frameworks, "-L", f.brew, root))
	assert.Contains(t, f.out.String(), "1 unresolved dependencies")
	assert.Contains(t, f.logs.String(), "unresolved dependency libmissing.dylib")

	err := f.run("verify", "-b", f.frameworks, root)
	assert.Error(t, err, "the unrewritten reference is caught by verification")
}

func TestBundleCommand_DryRun(t *testing.T) {
	f := newCLIFixture(t)
	root := f.graph()

	require.NoError(t, f.run("bundle", "--no-progress", "--dry-run", "-b", f.frameworks, "-L", f.brew, root))

	assert.Contains(t, f.out.String(), "(dry run)")
	assert.NoDirExists(t, f.frameworks)
}

func TestBundleCommand_DryRunFlagOverridesConfigFile(t *testing.T) {
	f := newCLIFixture(t)
	root := f.graph()
	configPath := filepath.Join(f.g.Base(), "libbundle.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"dry_run": true}`), 0o644))

	require.NoError(t, f.run("bundle", "--no-progress", "-b", f.frameworks, "-L", f.brew, root))
	assert.NoDirExists(t, f.frameworks, "the config file enables dry run")

	require.NoError(t, f.run("bundle", "--no-progress", "--dry-run=false", "-b", f.frameworks, "-L", f.brew, root))
	assert.Equal(t, []string{"libB.dylib", "libC.dylib"}, f.g.Names(f.frameworks))
}

func TestBundleCommand_MissingRootFails(t *testing.T) {
	f := newCLIFixture(t)

	err := f.run("bundle", "--no-progress", "-b", f.frameworks, filepath.Join(f.macOS, "nope"))
	assert.Error(t, err)
}

func TestVerifyCommand_FailsOnUnbundledRoot(t *testing.T) {
	f := newCLIFixture(t)
	root := f.graph()

	err := f.run("verify", "-b", f.frameworks, root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verification failed for 1 of 1 roots")
	assert.Contains(t, f.out.String(), services.ProblemNotRewritten)
}

func TestInspectCommand(t *testing.T) {
	f := newCLIFixture(t)
	root := f.graph("@rpath/libmissing.dylib")

	require.NoError(t, f.run("inspect", "-b", f.frameworks, "-x", "libQt*", root))

	out := f.out.String()
	assert.Contains(t, out, "arm64")
	assert.Contains(t, out, "@rpath/libmissing.dylib")
	assert.Contains(t, out, "placeholder")
	assert.Contains(t, out, "active rules:")
	assert.Contains(t, out, "name glob libQt*")
	assert.Contains(t, out, "system prefix /usr/lib/")
}

func TestTreeCommand_Plain(t *testing.T) {
	f := newCLIFixture(t)
	root := f.graph("@rpath/libmissing.dylib")

	require.NoError(t, f.run("tree", "--plain", "-b", f.frameworks, "-L", f.brew, root))

	lines := strings.Split(strings.TrimSpace(f.out.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Contains(t, lines[0], "cr3")
	assert.Contains(t, f.out.String(), "unresolved")
	assert.Contains(t, f.out.String(), "/usr/lib/libSystem.B.dylib")
	assert.NoDirExists(t, f.frameworks, "tree never modifies the bundle")
}

func TestConfigCommands(t *testing.T) {
	f := newCLIFixture(t)

	require.NoError(t, f.run("config", "init"))
	assert.FileExists(t, f.container.ConfigRepo.GetConfigPath())
	assert.Error(t, f.run("config", "init"), "init refuses to overwrite")
	require.NoError(t, f.run("config", "init", "--force"))

	f.out.Reset()
	require.NoError(t, f.run("config", "show"))
	assert.Contains(t, f.out.String(), `"file_mode": "0755"`)

	f.out.Reset()
	require.NoError(t, f.run("config", "show", "--yaml"))
	assert.Contains(t, f.out.String(), "format: auto")
}

func TestConfigFlag_SelectsFile(t *testing.T) {
	f := newCLIFixture(t)
	path := filepath.Join(f.g.Base(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("format: elf\n"), 0o644))

	require.NoError(t, f.run("--config", path, "config", "show"))
	assert.Contains(t, f.out.String(), `"format": "elf"`)
}

func treeFixture() *treeNode {
	report := domain.NewBundleReport("/app/cr3", domain.NewArchSet(domain.ArchARM64), true)
	report.Edges = []domain.Edge{
		{From: "/app/cr3", Reference: "/brew/libA.dylib", To: "/brew/libA.dylib", Status: domain.EdgeBundled},
		{From: "/app/cr3", Reference: "/usr/lib/libSystem.B.dylib", Status: domain.EdgeSystem, Rule: "system prefix /usr/lib/"},
		{From: "/brew/libA.dylib", Reference: "/brew/libB.dylib", To: "/brew/libB.dylib", Status: domain.EdgeBundled},
		{From: "/brew/libB.dylib", Reference: "/brew/libA.dylib", To: "/brew/libA.dylib", Status: domain.EdgeBundled},
	}
	return buildTree(report)
}

func TestBuildTree_MarksRepeatedArtifacts(t *testing.T) {
	root := treeFixture()
	root.expandAll()

	rows := root.visible()
	require.Len(t, rows, 5)
	assert.Equal(t, "cr3", rows[0].node.label)
	assert.Equal(t, "/brew/libA.dylib", rows[1].node.label)
	assert.Equal(t, "/brew/libB.dylib", rows[2].node.label)
	assert.True(t, rows[3].node.repeat, "the cycle back to libA is a leaf")
	assert.Equal(t, 3, rows[3].depth)
	assert.Equal(t, domain.EdgeSystem, rows[4].node.status)
}

func TestTreeModel_Navigation(t *testing.T) {
	var m tea.Model = newTreeModel(treeFixture())

	// root expanded, libA collapsed: cr3, libA, libSystem
	assert.Len(t, m.(treeModel).root.visible(), 3)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.(treeModel).selectedRow)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Len(t, m.(treeModel).root.visible(), 4, "libA expands to show libB")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	assert.Len(t, m.(treeModel).root.visible(), 5)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.(treeModel).selectedRow)

	assert.Contains(t, m.View(), "Dependency closure of cr3")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
