package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.WebServer = WebServerSettings{Port: "5000", RateLimit: 5, RateBurst: 10}
	s.Upload = UploadSettings{Dir: "uploads", MaxSize: DefaultMaxUploadSize, AllowedExtensions: []string{"csv"}}
	s.Output.SQLite = SQLiteSettings{Enabled: true, Path: "nutrilog.db"}
	s.Dashboard.URL = "http://localhost:3001"
	return s
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"bad port", func(s *Settings) { s.WebServer.Port = "99999" }, "webserver"},
		{"negative rate limit", func(s *Settings) { s.WebServer.RateLimit = -1 }, "ratelimit"},
		{"zero burst", func(s *Settings) { s.WebServer.RateBurst = 0 }, "rateburst"},
		{"no upload dir", func(s *Settings) { s.Upload.Dir = "" }, "upload: dir"},
		{"zero max size", func(s *Settings) { s.Upload.MaxSize = 0 }, "maxsize"},
		{"no extensions", func(s *Settings) { s.Upload.AllowedExtensions = nil }, "extension"},
		{"no backend", func(s *Settings) { s.Output.SQLite.Enabled = false }, "must be enabled"},
		{"mysql without host", func(s *Settings) {
			s.Output.SQLite.Enabled = false
			s.Output.MySQL = MySQLSettings{Enabled: true, Database: "n", Username: "u", Port: "3306"}
		}, "mysql host"},
		{"relative dashboard url", func(s *Settings) { s.Dashboard.URL = "/grafana" }, "dashboard"},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }, "sentry: dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)

			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateUploadNormalisesExtensions(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Upload.AllowedExtensions = []string{".CSV", "Txt"}
	require.NoError(t, ValidateSettings(s))
	assert.Equal(t, []string{"csv", "txt"}, s.Upload.AllowedExtensions)
}
