// config.go: settings struct for the collector application and functions to
// load them from config.yaml via viper.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var configFiles embed.FS

// LogConfig contains settings for application logging.
type LogConfig struct {
	Enabled bool   // true to log collector events to a file
	Path    string // path to log file
}

// MainSettings contains general application settings.
type MainSettings struct {
	Name string    // name of this collector node, used in log output
	Log  LogConfig // log file settings
}

// ImageSettings contains settings for saved image files.
type ImageSettings struct {
	Format  string // image file type, only "jpg" is supported
	Quality int    // JPEG quality, 1-100
}

// DataSettings contains settings for the dataset directory.
type DataSettings struct {
	OutputDir string        // root dataset directory
	Layout    string        // "flat" or "session" (dataset/YYYYMMDD/session_NN)
	Image     ImageSettings // saved image settings
}

// ClassSettings holds the schema file path per well-known class label.
type ClassSettings struct {
	Pet     string // path to PET class schema
	Can     string // path to CAN class schema
	Foreign string // path to FOREIGN class schema
}

// CSVSettings contains settings for CSV output.
type CSVSettings struct {
	Delimiter        string // column delimiter
	BOM              bool   // prepend UTF-8 BOM so spreadsheet tools detect encoding
	IncludeTimestamp bool   // include timestamp column
	AttrPrefix       string // prefix for attribute columns ("attr_" or "")
	HeaderPolicy     string // "fixed" (drop unknown columns) or "rewrite" (widen header)
	BoolTrue         string // token written for boolean true
	BoolFalse        string // token written for boolean false
}

// ExportSettings contains settings for CSV export.
type ExportSettings struct {
	CSV CSVSettings
}

// SQLiteSettings contains settings for the optional sample index database.
type SQLiteSettings struct {
	Enabled bool   // true to mirror committed samples into a SQLite index
	Path    string // path to the SQLite database file
	Debug   bool   // true to log SQL statements
}

// OutputSettings contains secondary output settings.
type OutputSettings struct {
	SQLite SQLiteSettings
}

// WebServerSettings contains settings for the web front-end adapter.
type WebServerSettings struct {
	Enabled bool   // true to start the web server
	Port    string // port to listen on
}

// CameraSettings describes the frame source the collect command binds to.
type CameraSettings struct {
	Source string // frame source, a directory of still images for now
	Width  int    // capture width reported in sample metadata
	Height int    // capture height reported in sample metadata
	FPS    float64
}

// Settings contains all application settings
type Settings struct {
	Debug bool // true to enable debug level logging

	Main      MainSettings
	Data      DataSettings
	Classes   ClassSettings
	Export    ExportSettings
	Output    OutputSettings
	WebServer WebServerSettings
	Camera    CameraSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// Setting returns the current settings instance, loading it if necessary.
func Setting() *Settings {
	settingsMutex.RLock()
	s := settingsInstance
	settingsMutex.RUnlock()
	if s != nil {
		return s
	}
	s, err := Load()
	if err != nil {
		return &Settings{}
	}
	return s
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Set default values for each configuration parameter,
	// function defined in defaults.go
	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config to the first default
// config path and reads it back in.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig := getDefaultConfig()

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return ""
	}
	return string(data)
}

// GetDefaultConfigPaths returns the list of directories searched for
// config.yaml, the working directory first.
func GetDefaultConfigPaths() ([]string, error) {
	configPaths := []string{"."}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return configPaths, nil //nolint:nilerr // fall back to working directory only
	}

	configPaths = append(configPaths, filepath.Join(homeDir, ".config", "collector"))
	return configPaths, nil
}
