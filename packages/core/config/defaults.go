package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		DefaultEnvironment: "",
		Timeout:            30000, // 30 seconds
		Retries:            0,
		RetryDelay:         1000, // 1 second
		StopOnFailure:      BoolPtr(false),
		Shell:              "sh",
		HistoryLimit:       20,
		Reporters:          []string{"console"},
		Verbose:            BoolPtr(false),
		NoColor:            BoolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	d := DefaultConfig()
	return c.DefaultEnvironment == d.DefaultEnvironment &&
		c.Timeout == d.Timeout &&
		c.Retries == d.Retries &&
		c.RetryDelay == d.RetryDelay &&
		c.GetStopOnFailure() == d.GetStopOnFailure() &&
		c.Shell == d.Shell &&
		c.Remote == "" &&
		c.ScriptsDir == "" &&
		c.Database == "" &&
		c.HistoryLimit == d.HistoryLimit &&
		c.RateLimit == 0 &&
		c.OutputDir == "" &&
		c.GetVerbose() == d.GetVerbose() &&
		c.GetNoColor() == d.GetNoColor() &&
		len(c.Environments) == 0 &&
		c.Notify == nil
}
