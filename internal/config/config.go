package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"oncofit/internal/errors"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Model    ModelConfig
	Data     DataConfig
	Report   ReportConfig
	LogLevel string
}

// ModelConfig holds the mutation-accumulation parameters and tail strategy
type ModelConfig struct {
	P                float64
	M                int
	DivisionsPerYear float64
	C                int
	R                float64
	Tail             string
}

// DataConfig holds USCS input files and the curve selection
type DataConfig struct {
	ByAgeFile       string
	BrainBySiteFile string
	Year            int
	Site            string
	Sex             string
	Race            string
	EventType       string
}

// ReportConfig holds output settings
type ReportConfig struct {
	Format string
	Output string
}

// Supported report formats
var reportFormats = map[string]bool{"csv": true, "json": true, "markdown": true, "html": true}

// Load reads an optional .env file (or the given files) and then the
// environment. Values already in the environment win over file values.
func Load(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, errors.Wrap(err, "failed to load env file")
	}

	config := &Config{}

	modelConfig, err := loadModelConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load model configuration")
	}
	config.Model = *modelConfig

	dataConfig, err := loadDataConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load data configuration")
	}
	config.Data = *dataConfig

	config.Report = *loadReportConfig()
	config.LogLevel = getEnvOrDefault("LOG_LEVEL", "INFO")

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		// The default .env is optional.
		if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	return godotenv.Load(files...)
}

func loadModelConfig() (*ModelConfig, error) {
	p, err := getEnvFloat("ONCOFIT_P", 2e-9)
	if err != nil {
		return nil, err
	}
	m, err := getEnvInt("ONCOFIT_M", 500000)
	if err != nil {
		return nil, err
	}
	dpy, err := getEnvFloat("ONCOFIT_DIVISIONS_PER_YEAR", 2.5)
	if err != nil {
		return nil, err
	}
	c, err := getEnvInt("ONCOFIT_C", 1)
	if err != nil {
		return nil, err
	}
	r, err := getEnvFloat("ONCOFIT_R", 0)
	if err != nil {
		return nil, err
	}

	return &ModelConfig{
		P:                p,
		M:                m,
		DivisionsPerYear: dpy,
		C:                c,
		R:                r,
		Tail:             getEnvOrDefault("ONCOFIT_TAIL", "gonum"),
	}, nil
}

func loadDataConfig() (*DataConfig, error) {
	year, err := getEnvInt("ONCOFIT_YEAR", 2020)
	if err != nil {
		return nil, err
	}
	return &DataConfig{
		ByAgeFile:       getEnvOrDefault("ONCOFIT_BYAGE_FILE", ""),
		BrainBySiteFile: getEnvOrDefault("ONCOFIT_BRAIN_FILE", ""),
		Year:            year,
		Site:            getEnvOrDefault("ONCOFIT_SITE", "All Cancer Sites Combined"),
		Sex:             getEnvOrDefault("ONCOFIT_SEX", "Male and Female"),
		Race:            getEnvOrDefault("ONCOFIT_RACE", "All Races"),
		EventType:       getEnvOrDefault("ONCOFIT_EVENT_TYPE", "Incidence"),
	}, nil
}

func loadReportConfig() *ReportConfig {
	return &ReportConfig{
		Format: strings.ToLower(getEnvOrDefault("ONCOFIT_REPORT_FORMAT", "csv")),
		Output: getEnvOrDefault("ONCOFIT_REPORT_OUTPUT", ""),
	}
}

func validateConfig(config *Config) error {
	if config.Model.M < 1 {
		return errors.ConfigInvalid("ONCOFIT_M must be >= 1")
	}
	if config.Model.C < 1 {
		return errors.ConfigInvalid("ONCOFIT_C must be >= 1")
	}
	if !reportFormats[config.Report.Format] {
		return errors.ConfigInvalid(fmt.Sprintf("unsupported report format %q", config.Report.Format))
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be an integer, got %q", key, value))
	}
	return intValue, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be a number, got %q", key, value))
	}
	return floatValue, nil
}
