package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProject(); err != nil {
		return err
	}
	if err := c.validateAcquisition(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateProject() error {
	if c.Project.FrameRate <= 0 {
		return errors.New("project.frame_rate must be positive")
	}
	if c.Project.DefaultImageFrames <= 0 {
		return errors.New("project.default_image_frames must be positive")
	}
	if c.Project.DefaultWidth <= 0 || c.Project.DefaultHeight <= 0 {
		return errors.New("project.default_width and project.default_height must be positive")
	}
	return nil
}

func (c *Config) validateAcquisition() error {
	if c.Acquisition.FileConcurrency < 1 {
		return errors.New("acquisition.file_concurrency must be at least 1")
	}
	if c.Acquisition.RemoteConcurrency < 1 {
		return errors.New("acquisition.remote_concurrency must be at least 1")
	}
	if c.Acquisition.RemoteEndpoint != "" {
		parsed, err := url.Parse(c.Acquisition.RemoteEndpoint)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("acquisition.remote_endpoint must be an absolute URL, got %q", c.Acquisition.RemoteEndpoint)
		}
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.MaxEntries < 1 {
		return errors.New("history.max_entries must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
