package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ctx       *Context
		version   string
		buildDate string
	}{
		{"nil context", nil, UnknownValue, UnknownValue},
		{"empty values", NewContext("", ""), UnknownValue, UnknownValue},
		{"populated", NewContext("v1.2.0", "2024-06-01T10:00:00Z"), "v1.2.0", "2024-06-01T10:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.version, tt.ctx.GetVersion())
			assert.Equal(t, tt.buildDate, tt.ctx.GetBuildDate())
		})
	}
}

func TestContextString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "v1.2.0 (built unknown)", NewContext("v1.2.0", "").String())
}
