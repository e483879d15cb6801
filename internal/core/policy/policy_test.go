package policy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPolicy_Classify(t *testing.T) {
	rules := Rules{
		Exclusions:     []string{"libSystem", "libnss_*", "Qt*.dylib"},
		SystemPrefixes: []string{"/usr/lib/", "/System/"},
	}
	p, err := NewPolicy(rules)
	require.NoError(t, err)

	tests := []struct {
		name      string
		reference string
		class     Class
		rule      string
	}{
		{
			name:      "SubstringExclusion_MatchesBaseName",
			reference: "/opt/local/lib/libSystem.B.dylib",
			class:     ClassExcluded,
			rule:      "name contains libSystem",
		},
		{
			name:      "GlobExclusion_MatchesBareName",
			reference: "libnss_files.so.2",
			class:     ClassExcluded,
			rule:      "name glob libnss_*",
		},
		{
			name:      "GlobExclusion_MatchesPlaceholder",
			reference: "@rpath/QtCore.dylib",
			class:     ClassExcluded,
			rule:      "name glob Qt*.dylib",
		},
		{
			name:      "SystemPrefix_Matches",
			reference: "/usr/lib/libc++.1.dylib",
			class:     ClassSystem,
			rule:      "system prefix /usr/lib/",
		},
		{
			name:      "SystemPrefix_CleansPath",
			reference: "/opt/../System/Library/Frameworks/Cocoa.framework/Cocoa",
			class:     ClassSystem,
			rule:      "system prefix /System/",
		},
		{
			name:      "SystemPrefix_IgnoresPlaceholders",
			reference: "@rpath/usr/lib/libfoo.dylib",
			class:     ClassBundlable,
		},
		{
			name:      "HomebrewLibrary_IsBundlable",
			reference: "/opt/homebrew/opt/zstd/lib/libzstd.1.dylib",
			class:     ClassBundlable,
		},
		{
			name:      "DirectoryPartDoesNotMatchNamePattern",
			reference: "/opt/libSystem/lib/libfoo.dylib",
			class:     ClassBundlable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Classify(tt.reference)
			assert.Equal(t, tt.class, d.Class)
			assert.Equal(t, tt.rule, d.Rule)
			assert.Equal(t, tt.class == ClassBundlable, d.Bundlable())
		})
	}
}

func TestPolicy_FirstMatchWins(t *testing.T) {
	p, err := NewPolicy(Rules{
		Exclusions:     []string{"libc++"},
		SystemPrefixes: []string{"/usr/lib/"},
	})
	require.NoError(t, err)

	d := p.Classify("/usr/lib/libc++.1.dylib")
	assert.Equal(t, ClassExcluded, d.Class, "name exclusions are evaluated before system prefixes")
}

func TestPolicy_Statistics(t *testing.T) {
	p, err := NewPolicy(Rules{Exclusions: []string{"libz"}, SystemPrefixes: []string{"/usr/lib/"}})
	require.NoError(t, err)

	p.Classify("libz.so.1")
	p.Classify("/usr/lib/libm.dylib")
	p.Classify("libpng16.so.16")
	p.Classify("libjpeg.so.8")

	stats := p.Statistics()
	assert.Equal(t, 4, stats.TotalEvaluated)
	assert.Equal(t, 1, stats.Excluded)
	assert.Equal(t, 1, stats.System)
	assert.Equal(t, 2, stats.Bundlable)
}

func TestNewNameMatcher(t *testing.T) {
	m, err := NewNameMatcher("   ")
	assert.NoError(t, err)
	assert.Nil(t, m, "blank patterns are ignored")

	_, err = NewNameMatcher("lib[.so")
	assert.Error(t, err, "malformed globs are rejected")

	m, err = NewNameMatcher("libGL")
	require.NoError(t, err)
	assert.IsType(t, &NameSubstringMatcher{}, m)

	m, err = NewNameMatcher("libGL*.so.?")
	require.NoError(t, err)
	assert.IsType(t, &NameGlobMatcher{}, m)
}

func TestNewPolicy_InvalidPattern(t *testing.T) {
	_, err := NewPolicy(Rules{Exclusions: []string{"ok", "bad["}})
	assert.Error(t, err)
}

func TestParseExclusionList(t *testing.T) {
	input := `
# glibc
libc.so.6
libm.so.6   # math

   libnss_*
`
	patterns, err := ParseExclusionList(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"libc.so.6", "libm.so.6", "libnss_*"}, patterns)
}

func TestLoadExclusionFile_Missing(t *testing.T) {
	_, err := LoadExclusionFile("/nonexistent/excludelist")
	assert.Error(t, err)
}

func TestDefaultExclusions(t *testing.T) {
	elf := DefaultExclusions("elf")
	assert.Contains(t, elf, "libc.so.6")
	assert.Contains(t, elf, "libnss_*")

	macho := DefaultExclusions("macho")
	assert.Contains(t, macho, "libSystem.B.dylib")

	assert.Empty(t, DefaultExclusions("pe"))

	for _, format := range []string{"elf", "macho"} {
		_, err := NewPolicy(Rules{Exclusions: DefaultExclusions(format)})
		assert.NoError(t, err, "built-in %s list must compile", format)
	}
}

// Property-based tests using rapid

func TestPolicy_PropertyBased_ExclusionIgnoresDirectory(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringMatching(`lib[a-z]{1,8}\.so\.[0-9]`).Draw(t, "name")
		dir := rapid.StringMatching(`(/[a-z]{1,6}){0,4}`).Draw(t, "dir")

		p, err := NewPolicy(Rules{Exclusions: []string{name}})
		require.NoError(t, err)

		assert.Equal(t, ClassExcluded, p.Classify(dir+"/"+name).Class)
		assert.Equal(t, ClassExcluded, p.Classify(name).Class)
		assert.Equal(t, ClassExcluded, p.Classify("@rpath/"+name).Class)
	})
}

func TestPolicy_PropertyBased_EmptyPolicyBundlesEverything(t *testing.T) {
	p, err := NewPolicy(Rules{})
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		ref := rapid.StringMatching(`[@/$a-zA-Z0-9._+-]{1,40}`).Draw(t, "reference")
		assert.True(t, p.Classify(ref).Bundlable())
	})
}
