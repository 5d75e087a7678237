// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2017-2023 The Spacemesh developers

package server

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/airmesh/hub/hub"
	"github.com/airmesh/hub/logging"
)

const (
	defaultDataDirname = "data"
	defaultDbDirName   = "db"
	defaultLogDirname  = "logs"
	defaultListenPort  = 8081
)

// Config defines the configuration options for the hub.
//
// See loadConfig for further details regarding the
// configuration loading+parsing process.
type Config struct {
	HubDir      string  `long:"hubdir"       description:"The base directory that contains the hub's data, logs, configuration file, etc."`
	ConfigFile  string  `long:"configfile"   description:"Path to configuration file"                                                      short:"c"`
	DataDir     string  `long:"datadir"      description:"The directory to store the hub's data within"                                    short:"b"`
	DbDir       string  `long:"dbdir"        description:"The directory to store DBs within"`
	LogDir      string  `long:"logdir"       description:"Directory to log output"`
	DebugLog    bool    `long:"debuglog"     description:"Enable debug logs"`
	JSONLog     bool    `long:"jsonlog"      description:"Whether to log in JSON format"`
	RawListener string  `long:"listen"       description:"The interface/port to listen for worker connections"                             short:"l"`
	MetricsPort *uint16 `long:"metrics-port" description:"The port to expose metrics"`

	CPUProfile string `long:"cpuprofile" description:"Write CPU profile to the specified file"`
	Profile    string `long:"profile"    description:"Enable HTTP profiling on given port -- must be between 1024 and 65535"`

	Hub hub.Config `group:"Hub"`
}

// DefaultConfig returns a config with default hardcoded values.
func DefaultConfig() *Config {
	hubDir := "./hub"
	cacheDir, err := os.UserCacheDir()
	if err == nil {
		hubDir = filepath.Join(cacheDir, "hub")
	}

	return &Config{
		HubDir:      hubDir,
		DataDir:     filepath.Join(hubDir, defaultDataDirname),
		DbDir:       filepath.Join(hubDir, defaultDbDirName),
		LogDir:      filepath.Join(hubDir, defaultLogDirname),
		RawListener: fmt.Sprintf("localhost:%d", defaultListenPort),
		Hub:         hub.DefaultConfig(),
	}
}

// ParseFlags reads values from command line arguments.
func ParseFlags(preCfg *Config) (*Config, error) {
	if _, err := flags.Parse(preCfg); err != nil {
		return nil, err
	}
	return preCfg, nil
}

// ReadConfigFile reads config from an ini file.
// It uses the provided `cfg` as a base config and overrides it with the values
// from the config file.
func ReadConfigFile(cfg *Config) (*Config, error) {
	if cfg.ConfigFile == "" {
		return cfg, nil
	}
	logging.FromContext(context.Background()).Sugar().Debugf("reading config from %s", cfg.ConfigFile)
	if err := flags.IniParse(cfg.ConfigFile, cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from %v: %w", cfg.ConfigFile, err)
	}

	return cfg, nil
}

// SetupConfig expands paths and initializes filesystem.
func SetupConfig(cfg *Config) (*Config, error) {
	// If the provided hub directory is not the default, we'll modify the
	// path to all of the files and directories that will live within it.
	defaultCfg := DefaultConfig()
	if cfg.HubDir != defaultCfg.HubDir {
		if cfg.DataDir == defaultCfg.DataDir {
			cfg.DataDir = filepath.Join(cfg.HubDir, defaultDataDirname)
		}
		if cfg.LogDir == defaultCfg.LogDir {
			cfg.LogDir = filepath.Join(cfg.HubDir, defaultLogDirname)
		}
		if cfg.DbDir == defaultCfg.DbDir {
			cfg.DbDir = filepath.Join(cfg.HubDir, defaultDbDirName)
		}
	}

	// Create the hub directory if it doesn't already exist.
	if err := os.MkdirAll(cfg.HubDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create %v: %w", cfg.HubDir, err)
	}

	// As soon as we're done parsing configuration options, ensure all paths
	// to directories and files are cleaned and expanded before attempting
	// to use them later on.
	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.DbDir = cleanAndExpandPath(cfg.DbDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	return cfg, nil
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		user, err := user.Current()
		if err == nil {
			homeDir = user.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
