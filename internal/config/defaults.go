package config

const (
	defaultDataDir                 = "~/.local/share/cutline"
	defaultLogDir                  = "~/.local/share/cutline/logs"
	defaultFrameRate               = 30
	defaultImageFrames             = 150
	defaultWidth                   = 1920
	defaultHeight                  = 1080
	defaultFileConcurrency         = 4
	defaultRemoteConcurrency       = 2
	defaultFFprobeBinary           = "ffprobe"
	defaultRemotePollIntervalMS    = 1000
	defaultRemoteRequestsPerSecond = 2
	defaultHistoryMaxEntries       = 100
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Project: Project{
			FrameRate:          defaultFrameRate,
			DefaultImageFrames: defaultImageFrames,
			DefaultWidth:       defaultWidth,
			DefaultHeight:      defaultHeight,
		},
		Acquisition: Acquisition{
			FileConcurrency:         defaultFileConcurrency,
			RemoteConcurrency:       defaultRemoteConcurrency,
			FFprobeBinary:           defaultFFprobeBinary,
			RemotePollIntervalMS:    defaultRemotePollIntervalMS,
			RemoteRequestsPerSecond: defaultRemoteRequestsPerSecond,
		},
		History: History{
			MaxEntries: defaultHistoryMaxEntries,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
