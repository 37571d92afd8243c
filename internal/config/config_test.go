package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("EQUIPVIZ_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	require.Equal(t, "admin", cfg.Backend.Username)
	require.Equal(t, time.Duration(0), cfg.Backend.Timeout)
	require.Equal(t, 5*time.Second, cfg.UI.NotifyTTL)
	require.Equal(t, "fs", cfg.Reports.Driver)
	require.Equal(t, "reports/", cfg.Reports.S3.Prefix)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[backend]
base_url = "http://analysis.internal:9000"
timeout = "30s"

[ui]
notify_ttl = "2s"

[reports]
driver = "s3"

[reports.s3]
bucket = "equipment-reports"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("EQUIPVIZ_CONFIG", path)
	t.Setenv("EQUIPVIZ_BACKEND_USERNAME", "operator")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://analysis.internal:9000", cfg.Backend.BaseURL)
	require.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	require.Equal(t, 2*time.Second, cfg.UI.NotifyTTL)
	require.Equal(t, "operator", cfg.Backend.Username)
	require.Equal(t, "equipment-reports", cfg.Reports.S3.Bucket)
}

func TestValidateRejectsBadDriver(t *testing.T) {
	t.Parallel()
	cfg := Config{
		Backend: BackendConfig{BaseURL: "http://x"},
		UI:      UIConfig{NotifyTTL: time.Second},
		Reports: ReportsConfig{Driver: "ftp"},
	}
	require.ErrorContains(t, cfg.Validate(), "unknown reports.driver")

	cfg.Reports.Driver = "s3"
	require.ErrorContains(t, cfg.Validate(), "bucket required")

	cfg.Reports.S3.Bucket = "b"
	require.NoError(t, cfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "out", "config.toml")
	t.Setenv("EQUIPVIZ_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	cfg.Backend.BaseURL = "http://saved:8000"
	cfg.UI.NotifyTTL = 3 * time.Second
	cfg.Reports.S3.AccessKeyID = "AKIA"
	cfg.Reports.S3.SecretAccessKey = "SECRET"
	require.NoError(t, Save(cfg))

	loaded, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://saved:8000", loaded.Backend.BaseURL)
	require.Equal(t, 3*time.Second, loaded.UI.NotifyTTL)
	require.Equal(t, "AKIA", loaded.Reports.S3.AccessKeyID)
	require.Equal(t, "SECRET", loaded.Reports.S3.SecretAccessKey)
	require.Empty(t, loaded.Reports.S3.SessionToken)
}
