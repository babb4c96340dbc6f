package config

const (
	defaultWorkDir           = "~/.local/share/siphon/work"
	defaultLogDir            = "~/.local/share/siphon/logs"
	defaultFileIndexPath     = "~/.local/share/siphon/fileindex.db"
	defaultRepositoryTimeout = 60
	defaultRetryAttempts     = 4
	defaultRetryBaseSeconds  = 10
	defaultStoreTimeout      = 300
	defaultStoreStream       = "default"
	defaultDepotTimeout      = 60
	defaultToolBinary        = "fits2plane"
	defaultToolTimeout       = 300
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Archive: Archive{
			FileIndexPath: defaultFileIndexPath,
		},
		Repository: Repository{
			TimeoutSeconds:   defaultRepositoryTimeout,
			RetryAttempts:    defaultRetryAttempts,
			RetryBaseSeconds: defaultRetryBaseSeconds,
		},
		Store: Store{
			TimeoutSeconds: defaultStoreTimeout,
			Stream:         defaultStoreStream,
		},
		Depot: Depot{
			TimeoutSeconds: defaultDepotTimeout,
		},
		Tool: Tool{
			Binary:         defaultToolBinary,
			TimeoutSeconds: defaultToolTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
