package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecureFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "export.csv", "export.csv"},
		{"spaces", "my export 2024.csv", "my_export_2024.csv"},
		{"traversal", "../../etc/passwd.csv", "etc_passwd.csv"},
		{"windows path", `C:\Users\me\food.csv`, "C_Users_me_food.csv"},
		{"accents folded", "résumé.csv", "resume.csv"},
		{"leading dots", "...hidden.csv", "hidden.csv"},
		{"shell characters", "a;b|c$.csv", "abc.csv"},
		{"nothing left", "../..", fallbackFilename},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, secureFilename(tt.input))
		})
	}
}
