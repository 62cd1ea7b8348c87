package config

// Overrides carries command-line settings that take priority over the
// config file. Zero values leave the file's setting alone.
type Overrides struct {
	ConfigPath string
	Debug      bool
	LogFile    string
	WDF        []string
	DNP        []string
	Root       string
}

// apply applies CLI overrides to the config. Archive lists given on the
// command line replace the configured ones rather than extending them.
func (o Overrides) apply(cfg *Config) {
	if o.Debug {
		cfg.Logging.Level = "debug"
	}
	if o.LogFile != "" {
		cfg.Logging.LogFile = o.LogFile
	}
	if len(o.WDF) > 0 {
		cfg.Archives.WDF = append([]string(nil), o.WDF...)
	}
	if len(o.DNP) > 0 {
		cfg.Archives.DNP = append([]string(nil), o.DNP...)
	}
	if o.Root != "" {
		cfg.Archives.Root = o.Root
		cfg.Archives.Filesystem = true
	}
}
