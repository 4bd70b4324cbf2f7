package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(SignEnv, "")
	os.Unsetenv(SignEnv)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	if diff := cmp.Diff(Defaults(), *cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: postgres
announcement:
  interval: 5m
tasks:
  workers: 4
`), 0o600))

	t.Setenv("CONFERENCE_HTTP_ADDR", ":8080")
	t.Setenv("CONFERENCE_AUTH_SIGN", "from-env")
	t.Setenv(SignEnv, "legacy")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	want := Defaults()
	want.HTTP.Addr = ":8080"
	want.Store.Driver = "postgres"
	want.Announcement.Interval = 5 * time.Minute
	want.Tasks.Workers = 4
	want.Auth.Sign = "from-env"

	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_SignFallback(t *testing.T) {
	t.Setenv(SignEnv, "legacy-secret")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "legacy-secret", cfg.Auth.Sign)
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Setenv("CONFERENCE_STORE_DRIVER", "cassandra")

	_, err := Load(viper.New(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cassandra")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestGetSecret(t *testing.T) {
	t.Setenv("CONFERENCE_TEST_SECRET", "s3cr3t")

	val, err := GetSecret("CONFERENCE_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", val)

	_, err = GetSecret("CONFERENCE_TEST_SECRET_MISSING")
	require.Error(t, err)
}
