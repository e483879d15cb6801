package policy

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed defaults/*.txt
var defaultLists embed.FS

// ParseExclusionList reads one pattern per line. Blank lines and text after '#' are ignored.
func ParseExclusionList(r io.Reader) ([]string, error) {
	var patterns []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read exclusion list: %w", err)
	}
	return patterns, nil
}

// LoadExclusionFile reads an exclusion list from disk
func LoadExclusionFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open exclusion list: %w", err)
	}
	defer f.Close()

	return ParseExclusionList(f)
}

// DefaultExclusions returns the built-in exclusion list for a binary format
func DefaultExclusions(format string) []string {
	data, err := defaultLists.ReadFile("defaults/" + format + ".txt")
	if err != nil {
		return nil
	}
	patterns, _ := ParseExclusionList(strings.NewReader(string(data)))
	return patterns
}
