package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tmConfig "github.com/tendermint/tendermint/config"
)

const (
	// LogFormatPlain is a format for colored text
	LogFormatPlain = "plain"
	// LogFormatJSON is a format for json output
	LogFormatJSON = "json"

	defaultConfigDir = "config"
	defaultDataDir   = "data"

	defaultConfigFileName  = "config.toml"
	defaultGenesisJSONName = "genesis.json"
)

var (
	defaultConfigFilePath  = filepath.Join(defaultConfigDir, defaultConfigFileName)
	defaultGenesisJSONPath = filepath.Join(defaultConfigDir, defaultGenesisJSONName)
)

// DefaultConfig returns the default configuration for an engine node
func DefaultConfig() *Config {
	cfg := defaultConfig()

	cfg.DBPath = "data"

	cfg.Instrumentation.Namespace = "ember"
	cfg.Instrumentation.PrometheusListenAddr = ":8844"

	return cfg
}

// GetConfig ensures the layout of the given home dir and returns the config
// rooted there.
func GetConfig(homeDir string) *Config {
	cfg := DefaultConfig()

	cfg.SetRoot(homeDir)
	EnsureRoot(homeDir)

	return cfg
}

// Config defines the top level configuration for an engine node
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	// Options for services
	Instrumentation *tmConfig.InstrumentationConfig `mapstructure:"instrumentation"`
}

func defaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		Instrumentation: tmConfig.DefaultInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration for an engine node
type BaseConfig struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	// Path to the JSON file containing the deployment document
	Genesis string `mapstructure:"genesis_file"`

	// A custom human readable name for this node
	Moniker string `mapstructure:"moniker"`

	// Output level for logging
	LogLevel string `mapstructure:"log_level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log_format"`

	// Path to file for logs, "stdout" by default
	LogPath string `mapstructure:"log_path"`

	// TCP or UNIX socket address for the profiling server to listen on
	ProfListenAddress string `mapstructure:"prof_laddr"`

	// Database backend: goleveldb | memdb
	DBBackend string `mapstructure:"db_backend"`

	// Database directory
	DBPath string `mapstructure:"db_dir"`

	// Address to listen for API connections
	APIListenAddress string `mapstructure:"api_listen_addr"`

	// Limit for simultaneous requests to API
	APISimultaneousRequests int `mapstructure:"api_simultaneous_requests"`

	// Interval between two sealed blocks
	BlockTime time.Duration `mapstructure:"block_time"`

	KeepLastStates int64 `mapstructure:"keep_last_states"`

	StateCacheSize int `mapstructure:"state_cache_size"`

	// Memory available to the state database caches, in MB
	StateMemAvailable int `mapstructure:"state_mem_available"`

	HaltHeight int `mapstructure:"halt_height"`
}

// DefaultBaseConfig returns a default base configuration for an engine node
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		Genesis:                 defaultGenesisJSONPath,
		Moniker:                 defaultMoniker,
		LogLevel:                DefaultPackageLogLevels(),
		LogPath:                 "stdout",
		LogFormat:               LogFormatPlain,
		ProfListenAddress:       "",
		DBBackend:               "goleveldb",
		DBPath:                  "data",
		APIListenAddress:        "tcp://0.0.0.0:8841",
		APISimultaneousRequests: 100,
		BlockTime:               5 * time.Second,
		KeepLastStates:          120,
		StateCacheSize:          1000000,
		StateMemAvailable:       1024,
	}
}

// GenesisFile returns the full path to the genesis.json file
func (cfg BaseConfig) GenesisFile() string {
	return rootify(cfg.Genesis, cfg.RootDir)
}

// DBDir returns the full path to the database directory
func (cfg BaseConfig) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

// DefaultLogLevel returns a default log level of "error"
func DefaultLogLevel() string {
	return "error"
}

// DefaultPackageLogLevels returns a default log level setting so all packages
// log at "error", while the `engine` and `main` packages log at "info"
func DefaultPackageLogLevels() string {
	return fmt.Sprintf("engine:info,main:info,api:info,state:info,*:%s", DefaultLogLevel())
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

var defaultMoniker = getDefaultMoniker()

// getDefaultMoniker returns a default moniker, which is the host name. If runtime
// fails to get the host name, "anonymous" will be returned.
func getDefaultMoniker() string {
	moniker, err := os.Hostname()
	if err != nil {
		moniker = "anonymous"
	}
	return moniker
}
