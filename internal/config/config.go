package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed calibration.yaml
var calibrationYAML []byte

type Config struct {
	Embedding   EmbeddingConfig
	Database    DatabaseConfig
	Session     SessionConfig
	Calibration CalibrationConfig
}

type EmbeddingConfig struct {
	URL          string // defaults to http://localhost:8000
	Model        string // embedding model name, used to look up calibration
	Dim          int    // defaults to 128
	MaxFrameSize int    // frames larger than this (px) are downscaled before detection
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MariaDBDSN   string // optional MariaDB DSN; used instead of PostgreSQL when set
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type SessionConfig struct {
	// SightingThreshold is the number of frames a student must be recognized in
	// before being marked present. 1 marks on the first confident sighting.
	SightingThreshold int
}

// CalibrationConfig holds per-model match tolerances loaded from the embedded
// calibration.yaml. Tolerances come from measured false-accept/false-reject
// trade-offs, not from guessing.
type CalibrationConfig struct {
	Models map[string]ModelCalibration `yaml:"models"`
}

type ModelCalibration struct {
	Metric    string  `yaml:"metric"`
	Tolerance float64 `yaml:"tolerance"`
}

// envStr reads an environment variable, falling back to a default when unset.
func envStr(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func Load() *Config {
	var calibration CalibrationConfig
	if err := yaml.Unmarshal(calibrationYAML, &calibration); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded calibration.yaml: " + err.Error())
	}

	return &Config{
		Embedding: EmbeddingConfig{
			URL:          envStr("EMBEDDING_URL", "http://localhost:8000"),
			Model:        envStr("EMBEDDING_MODEL", "dlib-resnet"),
			Dim:          envInt("EMBEDDING_DIM", 128),
			MaxFrameSize: envInt("EMBEDDING_MAX_FRAME_SIZE", 960),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MariaDBDSN:   os.Getenv("MARIADB_DSN"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Session: SessionConfig{
			SightingThreshold: envInt("SESSION_SIGHTING_THRESHOLD", 1),
		},
		Calibration: calibration,
	}
}

// ToleranceFor returns the calibrated match tolerance for a model,
// or 0 if the model has no calibration entry.
func (c *Config) ToleranceFor(model string) float64 {
	if cal, ok := c.Calibration.Models[model]; ok {
		return cal.Tolerance
	}
	return 0
}
