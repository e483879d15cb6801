package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kilometers.ai/libbundle/internal/application/ports"
)

func clearLibbundleEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LIBBUNDLE_BUNDLE_DIR", "LIBBUNDLE_FORMAT", "LIBBUNDLE_SEARCH_PATHS", "LIBBUNDLE_EXCLUSIONS",
		"LIBBUNDLE_ARCHITECTURES", "LIBBUNDLE_TOOL_TIMEOUT", "LIBBUNDLE_DRY_RUN", "LIBBUNDLE_DEBUG",
		"LIBBUNDLE_FILE_MODE", "LIBBUNDLE_CONFIG",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestCompositeConfigRepository_Defaults(t *testing.T) {
	clearLibbundleEnv(t)
	repo := NewCompositeConfigRepository(filepath.Join(t.TempDir(), "missing.json"))

	config, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, "auto", config.Format)
	assert.Equal(t, "0755", config.FileMode)
	assert.Equal(t, 30, config.ToolTimeout)
	assert.False(t, config.IsDryRun())

	mode, err := config.Mode()
	require.NoError(t, err)
	assert.Equal(t, uint32(0o755), mode)
}

func TestCompositeConfigRepository_FileSources(t *testing.T) {
	clearLibbundleEnv(t)
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name:    "JSON",
			file:    "libbundle.json",
			content: `{"bundle_dir": "dist/App.app/Contents/Frameworks", "format": "macho", "search_paths": ["/opt/homebrew/lib"], "architectures": ["arm64"]}`,
		},
		{
			name: "YAML",
			file: "libbundle.yaml",
			content: `bundle_dir: dist/App.app/Contents/Frameworks
format: macho
search_paths:
  - /opt/homebrew/lib
architectures: [arm64]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			config, err := NewCompositeConfigRepository(path).Load()
			require.NoError(t, err)
			assert.Equal(t, "dist/App.app/Contents/Frameworks", config.BundleDir)
			assert.Equal(t, "macho", config.Format)
			assert.Equal(t, []string{"/opt/homebrew/lib"}, config.SearchPaths)
			assert.Equal(t, []string{"arm64"}, config.Architectures)
			assert.Equal(t, "0755", config.FileMode, "unset fields keep their defaults")
		})
	}
}

func TestCompositeConfigRepository_EnvironmentOverridesFile(t *testing.T) {
	clearLibbundleEnv(t)
	path := filepath.Join(t.TempDir(), "libbundle.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"format": "macho", "tool_timeout": 10}`), 0o644))

	t.Setenv("LIBBUNDLE_FORMAT", "elf")
	t.Setenv("LIBBUNDLE_SEARCH_PATHS", "/usr/local/lib"+string(os.PathListSeparator)+"/opt/lib")
	t.Setenv("LIBBUNDLE_EXCLUSIONS", "libGL, libEGL*")
	t.Setenv("LIBBUNDLE_DRY_RUN", "true")

	config, err := NewCompositeConfigRepository(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "elf", config.Format)
	assert.Equal(t, 10, config.ToolTimeout)
	assert.Equal(t, []string{"/usr/local/lib", "/opt/lib"}, config.SearchPaths)
	assert.Equal(t, []string{"libGL", "libEGL*"}, config.Exclusions)
	assert.True(t, config.IsDryRun())
}

func TestCompositeConfigRepository_FlagsOverrideEverything(t *testing.T) {
	clearLibbundleEnv(t)
	t.Setenv("LIBBUNDLE_BUNDLE_DIR", "from-env")

	repo := NewCompositeConfigRepository(filepath.Join(t.TempDir(), "none.json"))
	repo.AddSource(NewStaticConfigSource("flags", PriorityFlags, &ports.Configuration{BundleDir: "stale-flags"}))
	repo.AddSource(NewStaticConfigSource("flags", PriorityFlags, &ports.Configuration{BundleDir: "from-flags"}))

	config, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-flags", config.BundleDir)

	names := []string{}
	for _, s := range repo.Sources() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"file", "environment", "flags"}, names)
}

func TestCompositeConfigRepository_BooleansCanBeDisabled(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		flag     *bool
		expected bool
	}{
		{name: "file value kept", expected: true},
		{name: "environment disables", env: "false", expected: false},
		{name: "flag disables", flag: ports.Bool(false), expected: false},
		{name: "flag wins over environment", env: "false", flag: ports.Bool(true), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearLibbundleEnv(t)
			path := filepath.Join(t.TempDir(), "libbundle.yaml")
			require.NoError(t, os.WriteFile(path, []byte("dry_run: true\ndebug: true\n"), 0o644))
			if tt.env != "" {
				t.Setenv("LIBBUNDLE_DRY_RUN", tt.env)
			}

			repo := NewCompositeConfigRepository(path)
			if tt.flag != nil {
				repo.AddSource(NewStaticConfigSource("flags", PriorityFlags, &ports.Configuration{DryRun: tt.flag}))
			}

			config, err := repo.Load()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, config.IsDryRun())
			assert.True(t, config.IsDebug(), "unset sources leave the file value")
		})
	}
}

func TestCompositeConfigRepository_InvalidFile(t *testing.T) {
	clearLibbundleEnv(t)
	path := filepath.Join(t.TempDir(), "libbundle.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"format": `), 0o644))

	_, err := NewCompositeConfigRepository(path).Load()
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"format": "pe"}`), 0o644))
	_, err = NewCompositeConfigRepository(path).Load()
	assert.ErrorContains(t, err, "format must be one of")
}

func TestCompositeConfigRepository_ConfigPathFromEnvironment(t *testing.T) {
	clearLibbundleEnv(t)
	path := filepath.Join(t.TempDir(), "custom.yml")
	t.Setenv(ConfigPathEnv, path)

	repo := NewCompositeConfigRepository("")
	assert.Equal(t, path, repo.GetConfigPath())
}

func TestCompositeConfigRepository_SaveRoundTrip(t *testing.T) {
	clearLibbundleEnv(t)

	for _, file := range []string{"nested/libbundle.json", "nested/libbundle.yaml"} {
		t.Run(filepath.Ext(file), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), file)
			repo := NewCompositeConfigRepository(path)

			config := repo.LoadDefault()
			config.BundleDir = "lib"
			config.Exclusions = []string{"libGL"}
			require.NoError(t, repo.Save(config))

			loaded, err := repo.Load()
			require.NoError(t, err)
			assert.Equal(t, "lib", loaded.BundleDir)
			assert.Equal(t, []string{"libGL"}, loaded.Exclusions)
		})
	}
}

func TestCompositeConfigRepository_SaveRejectsInvalid(t *testing.T) {
	repo := NewCompositeConfigRepository(filepath.Join(t.TempDir(), "libbundle.json"))
	config := repo.LoadDefault()
	config.ToolTimeout = 0

	assert.Error(t, repo.Save(config))
	_, err := os.Stat(repo.GetConfigPath())
	assert.True(t, os.IsNotExist(err))
}
