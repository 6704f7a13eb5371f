package config

import (
	"os"
	"path/filepath"
	"testing"

	"oncofit/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"ONCOFIT_P", "ONCOFIT_M", "ONCOFIT_DIVISIONS_PER_YEAR", "ONCOFIT_C", "ONCOFIT_R", "ONCOFIT_TAIL",
	"ONCOFIT_BYAGE_FILE", "ONCOFIT_BRAIN_FILE", "ONCOFIT_YEAR", "ONCOFIT_SITE", "ONCOFIT_SEX",
	"ONCOFIT_RACE", "ONCOFIT_EVENT_TYPE", "ONCOFIT_REPORT_FORMAT", "ONCOFIT_REPORT_OUTPUT", "LOG_LEVEL",
}

// clearEnv blanks every key for the test; empty values mean "use default".
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2e-9, cfg.Model.P)
	assert.Equal(t, 500000, cfg.Model.M)
	assert.Equal(t, 2.5, cfg.Model.DivisionsPerYear)
	assert.Equal(t, 1, cfg.Model.C)
	assert.Equal(t, 0.0, cfg.Model.R)
	assert.Equal(t, "gonum", cfg.Model.Tail)
	assert.Equal(t, 2020, cfg.Data.Year)
	assert.Equal(t, "All Cancer Sites Combined", cfg.Data.Site)
	assert.Equal(t, "Male and Female", cfg.Data.Sex)
	assert.Equal(t, "csv", cfg.Report.Format)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("ONCOFIT_P", "1e-9")
	t.Setenv("ONCOFIT_M", "1000")
	t.Setenv("ONCOFIT_C", "2")
	t.Setenv("ONCOFIT_YEAR", "2018")
	t.Setenv("ONCOFIT_REPORT_FORMAT", "JSON")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1e-9, cfg.Model.P)
	assert.Equal(t, 1000, cfg.Model.M)
	assert.Equal(t, 2, cfg.Model.C)
	assert.Equal(t, 2018, cfg.Data.Year)
	assert.Equal(t, "json", cfg.Report.Format)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	for _, key := range configKeys {
		// godotenv does not override variables that are already set
		require.NoError(t, os.Unsetenv(key))
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "oncofit.env")
	require.NoError(t, os.WriteFile(path, []byte("ONCOFIT_DIVISIONS_PER_YEAR=4\nONCOFIT_TAIL=recurrence\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("ONCOFIT_DIVISIONS_PER_YEAR")
		os.Unsetenv("ONCOFIT_TAIL")
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4.0, cfg.Model.DivisionsPerYear)
	assert.Equal(t, "recurrence", cfg.Model.Tail)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric p", "ONCOFIT_P", "tiny"},
		{"non-integer M", "ONCOFIT_M", "1e3x"},
		{"zero clones", "ONCOFIT_M", "0"},
		{"zero threshold", "ONCOFIT_C", "0"},
		{"bad year", "ONCOFIT_YEAR", "twenty"},
		{"bad format", "ONCOFIT_REPORT_FORMAT", "pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			chdir(t, t.TempDir())
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
