package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAcquisition()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAcquisition() {
	c.Acquisition.FFprobeBinary = strings.TrimSpace(c.Acquisition.FFprobeBinary)
	c.Acquisition.RemoteEndpoint = strings.TrimRight(strings.TrimSpace(c.Acquisition.RemoteEndpoint), "/")
	if c.Acquisition.RemoteAPIKey == "" {
		if value, ok := os.LookupEnv("CUTLINE_REMOTE_API_KEY"); ok {
			c.Acquisition.RemoteAPIKey = strings.TrimSpace(value)
		}
	}
	if c.Acquisition.RemotePollIntervalMS <= 0 {
		c.Acquisition.RemotePollIntervalMS = defaultRemotePollIntervalMS
	}
	if c.Acquisition.RemoteRequestsPerSecond <= 0 {
		c.Acquisition.RemoteRequestsPerSecond = defaultRemoteRequestsPerSecond
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
