package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kilometers.ai/libbundle/internal/application/ports"
)

func TestConfigValidator_Validate(t *testing.T) {
	validator := NewConfigValidator()
	valid := func() *ports.Configuration {
		return &ports.Configuration{Format: "auto", FileMode: "0755", ToolTimeout: 30}
	}

	tests := []struct {
		name    string
		mutate  func(c *ports.Configuration)
		wantErr bool
		errMsg  string
	}{
		{name: "defaults", mutate: func(c *ports.Configuration) {}},
		{name: "elf_format", mutate: func(c *ports.Configuration) { c.Format = "elf" }},
		{name: "unknown_format", mutate: func(c *ports.Configuration) { c.Format = "coff" }, wantErr: true, errMsg: "format must be one of"},
		{name: "group_writable_mode", mutate: func(c *ports.Configuration) { c.FileMode = "0775" }},
		{name: "non_octal_mode", mutate: func(c *ports.Configuration) { c.FileMode = "rwx" }, wantErr: true, errMsg: "invalid file mode"},
		{name: "not_executable", mutate: func(c *ports.Configuration) { c.FileMode = "0644" }, wantErr: true, errMsg: "owner rwx"},
		{name: "zero_timeout", mutate: func(c *ports.Configuration) { c.ToolTimeout = 0 }, wantErr: true, errMsg: "tool timeout"},
		{name: "known_architectures", mutate: func(c *ports.Configuration) { c.Architectures = []string{"arm64", "amd64"} }},
		{name: "unknown_architecture", mutate: func(c *ports.Configuration) { c.Architectures = []string{"m68k"} }, wantErr: true, errMsg: "invalid architectures"},
		{name: "bad_glob", mutate: func(c *ports.Configuration) { c.Exclusions = []string{"lib[GL"} }, wantErr: true, errMsg: "invalid exclusions"},
		{name: "empty_search_path", mutate: func(c *ports.Configuration) { c.SearchPaths = []string{"/lib", " "} }, wantErr: true, errMsg: "empty entries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(config)

			err := validator.Validate(config)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.Error(t, validator.Validate(nil))
}
