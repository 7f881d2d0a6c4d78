package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// loadFromYAML writes content to a temp config file and runs Load against it.
// Load uses the global viper instance, so these tests do not run in parallel.
func loadFromYAML(t *testing.T, content string) (*Settings, error) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	SetConfigFile(path)
	t.Cleanup(func() { SetConfigFile("") })

	return Load()
}

func TestLoadAppliesDefaults(t *testing.T) {
	settings, err := loadFromYAML(t, "main:\n  name: test-instance\n")
	require.NoError(t, err)

	assert.Equal(t, "test-instance", settings.Main.Name)
	assert.Equal(t, "5000", settings.WebServer.Port)
	assert.Equal(t, int64(DefaultMaxUploadSize), settings.Upload.MaxSize)
	assert.Equal(t, []string{"csv"}, settings.Upload.AllowedExtensions)
	assert.True(t, settings.Output.SQLite.Enabled)
	assert.False(t, settings.Output.MySQL.Enabled)
	assert.Equal(t, "http://localhost:3001", settings.Dashboard.URL)
	assert.False(t, settings.Ingest.HeaderRow)
	assert.False(t, settings.Ingest.PropagateMissing)
	assert.Equal(t, "info", settings.Logging.DefaultLevel)
	assert.Same(t, settings, GetSettings())
}

func TestLoadEmbeddedDefaultConfigIsValid(t *testing.T) {
	data, err := configFiles.ReadFile("config.yaml")
	require.NoError(t, err)

	settings, err := loadFromYAML(t, string(data))
	require.NoError(t, err)
	assert.Equal(t, "nutrilog", settings.Main.Name)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("NUTRILOG_HEADER_ROW", "true")
	t.Setenv("NUTRILOG_UPLOAD_DIR", "/var/lib/nutrilog/uploads")

	settings, err := loadFromYAML(t, "output:\n  sqlite:\n    enabled: true\n")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", settings.Output.MySQL.Host)
	assert.Equal(t, "3307", settings.Output.MySQL.Port)
	assert.True(t, settings.Ingest.HeaderRow)
	assert.Equal(t, "/var/lib/nutrilog/uploads", settings.Upload.Dir)
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")

	_, err := loadFromYAML(t, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PORT")
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	_, err := loadFromYAML(t, "output:\n  sqlite:\n    enabled: true\n  mysql:\n    enabled: true\n")
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 1)
}

func TestDumpMasksPassword(t *testing.T) {
	t.Parallel()

	settings := &Settings{}
	settings.Output.MySQL.Password = "secret"
	settings.Output.MySQL.Host = "localhost"
	settings.Sentry.DSN = "https://key@sentry.example.com/1"

	data, err := Dump(settings)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.NotContains(t, string(data), "key@sentry")

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "output")
	assert.Equal(t, "secret", settings.Output.MySQL.Password, "original settings must stay untouched")
}

func TestLoadDotEnvMissingFileIsIgnored(t *testing.T) {
	require.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadDotEnvExportsVariables(t *testing.T) {
	const key = "NUTRILOG_TEST_DOTENV_VALUE"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-dotenv\n"), 0o600))

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv(key))
}
