package config

const (
	defaultStagingDir           = "~/.local/share/tidybids/staging"
	defaultLogDir               = "~/.local/share/tidybids/logs"
	defaultRunstorePath         = "~/.local/share/tidybids/history.db"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultStagingRetentionDays = 7
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Apply: Apply{
			StagingRetentionDays: defaultStagingRetentionDays,
		},
		Runstore: Runstore{
			Enabled: true,
			Path:    defaultRunstorePath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
