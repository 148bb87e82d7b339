package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Backends
const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

// Object stores
const (
	ObjectStoreS3  = "s3"
	ObjectStoreDir = "dir"
)

// Upload policies
const (
	UploadBestEffort = "best-effort"
	UploadStrict     = "strict"
)

// TLSSettings configures the connection to the execution API
type TLSSettings struct {
	CertFile           string `env:"CERT_FILE"`
	KeyFile            string `env:"KEY_FILE"`
	CAFile             string `env:"CA_FILE"`
	InsecureSkipVerify bool   `env:"INSECURE" envDefault:"false"`
}

// Enabled reports whether any TLS option is set
func (t TLSSettings) Enabled() bool {
	return t.CertFile != "" || t.KeyFile != "" || t.CAFile != "" || t.InsecureSkipVerify
}

// Settings is the runtime configuration read from the environment
type Settings struct {
	APIURL  string `env:"DLTS_API_URL"`
	Backend string `env:"DLTS_BACKEND" envDefault:"local"`

	ObjectStore string `env:"DLTS_OBJECT_STORE" envDefault:"dir"`
	Bucket      string `env:"DLTS_BUCKET"`
	Region      string `env:"DLTS_REGION"`
	S3Endpoint  string `env:"DLTS_S3_ENDPOINT"`
	ObjectsDir  string `env:"DLTS_OBJECTS_DIR"`

	DatabasePath string `env:"DLTS_DATABASE"`

	UploadPolicy   string        `env:"DLTS_UPLOAD_POLICY" envDefault:"best-effort"`
	LogLevel       string        `env:"DLTS_LOG_LEVEL" envDefault:"warn"`
	HTTPTimeout    time.Duration `env:"DLTS_HTTP_TIMEOUT" envDefault:"30s"`
	RetryMax       uint64        `env:"DLTS_RETRY_MAX" envDefault:"3"`
	DownloadExpiry time.Duration `env:"DLTS_DOWNLOAD_EXPIRY" envDefault:"10s"`
	MetricsFile    string        `env:"DLTS_METRICS_FILE"`

	TLS TLSSettings `envPrefix:"DLTS_TLS_"`
}

// LoadEnv loads the env files that exist and returns how many were found.
// Variables already set in the environment win.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}

	if len(existing) == 0 {
		return 0, nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return 0, fmt.Errorf("failed to load env files: %w", err)
	}
	return len(existing), nil
}

// Load reads env files then parses and validates the settings
func Load(envFiles []string) (*Settings, error) {
	if _, err := LoadEnv(envFiles); err != nil {
		return nil, err
	}

	s := &Settings{}
	if err := env.Parse(s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks enum values and cross-field requirements
func (s *Settings) Validate() error {
	switch s.Backend {
	case BackendRemote:
		if s.APIURL == "" {
			return fmt.Errorf("DLTS_API_URL is required when DLTS_BACKEND is '%s'", BackendRemote)
		}
	case BackendLocal:
	default:
		return fmt.Errorf("DLTS_BACKEND must be '%s' or '%s', got '%s'", BackendRemote, BackendLocal, s.Backend)
	}

	switch s.ObjectStore {
	case ObjectStoreS3:
		if s.Bucket == "" {
			return fmt.Errorf("DLTS_BUCKET is required when DLTS_OBJECT_STORE is '%s'", ObjectStoreS3)
		}
	case ObjectStoreDir:
	default:
		return fmt.Errorf("DLTS_OBJECT_STORE must be '%s' or '%s', got '%s'", ObjectStoreS3, ObjectStoreDir, s.ObjectStore)
	}

	if s.UploadPolicy != UploadBestEffort && s.UploadPolicy != UploadStrict {
		return fmt.Errorf("DLTS_UPLOAD_POLICY must be '%s' or '%s', got '%s'", UploadBestEffort, UploadStrict, s.UploadPolicy)
	}

	if _, ok := logLevels[s.LogLevel]; !ok {
		return fmt.Errorf("DLTS_LOG_LEVEL must be one of silent, error, warn, info, debug, got '%s'", s.LogLevel)
	}

	if s.HTTPTimeout <= 0 {
		return fmt.Errorf("DLTS_HTTP_TIMEOUT must be positive, got %s", s.HTTPTimeout)
	}
	if s.DownloadExpiry <= 0 {
		return fmt.Errorf("DLTS_DOWNLOAD_EXPIRY must be positive, got %s", s.DownloadExpiry)
	}
	if s.RetryMax > 10 {
		return fmt.Errorf("DLTS_RETRY_MAX too high, maximum is 10, got %d", s.RetryMax)
	}
	if (s.TLS.CertFile == "") != (s.TLS.KeyFile == "") {
		return fmt.Errorf("DLTS_TLS_CERT_FILE and DLTS_TLS_KEY_FILE must be set together")
	}
	return nil
}
