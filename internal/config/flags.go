package config

import "flag"

// Flag values. Numeric overrides use -1 for "not set".
var (
	flagConfig    string
	flagDebug     bool
	flagWorkers   = -1
	flagMaxLevels = -1
	flagGroupSize int
)

// RegisterFlags adds the configuration flags to fs. Call it before fs.Parse.
func RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&flagConfig, "config", "", "Path to config file")
	fs.BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	fs.IntVar(&flagWorkers, "workers", -1, "Concurrent sub-meshes (0 = unbounded)")
	fs.IntVar(&flagMaxLevels, "max-levels", -1, "Maximum LOD levels (0 = unlimited)")
	fs.IntVar(&flagGroupSize, "group-size", 0, "Meshlets per simplification group")
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if flagDebug {
		cfg.Logging.Level = "debug"
	}
	if flagWorkers >= 0 {
		cfg.Processing.Workers = flagWorkers
	}
	if flagMaxLevels >= 0 {
		cfg.LOD.MaxLevels = flagMaxLevels
	}
	if flagGroupSize > 0 {
		cfg.LOD.GroupSize = flagGroupSize
	}
}
