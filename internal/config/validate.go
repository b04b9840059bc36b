package config

import (
	"fmt"
	"strings"
	"time"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

// Validate checks the config and returns every problem found. Values that
// would break the render loop are clamped in place; the rest are reported
// only.
func (c *Config) Validate() []error {
	var errs []error

	if c.Width < 1 || c.Height < 1 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive, using 1024x768", c.Width, c.Height))
		c.Width, c.Height = 1024, 768
	}

	if c.FPS < 1 {
		errs = append(errs, fmt.Errorf("fps %d is below minimum 1, clamping", c.FPS))
		c.FPS = 1
	} else if c.FPS > 240 {
		errs = append(errs, fmt.Errorf("fps %d exceeds maximum 240, clamping", c.FPS))
		c.FPS = 240
	}

	if c.CaptureTimeout < 0 {
		errs = append(errs, fmt.Errorf("capture_timeout %s is negative, using 0", c.CaptureTimeout))
		c.CaptureTimeout = 0
	} else if c.CaptureTimeout > time.Second {
		errs = append(errs, fmt.Errorf("capture_timeout %s exceeds 1s, clamping", c.CaptureTimeout))
		c.CaptureTimeout = time.Second
	}

	if c.SideLength < 0 {
		errs = append(errs, fmt.Errorf("side_length %g is negative, using the largest triangle", c.SideLength))
		c.SideLength = 0
	}

	if c.GPUValidation && !c.Validation {
		c.Validation = true
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	if !validLogFormats[strings.ToLower(c.LogFormat)] {
		errs = append(errs, fmt.Errorf("log_format %q is not one of auto, text, json", c.LogFormat))
	}

	return errs
}

// Interval returns the redraw period for the configured frame rate.
func (c *Config) Interval() time.Duration {
	if c.FPS < 1 {
		return time.Second
	}
	return time.Second / time.Duration(c.FPS)
}
