package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"agrovision/internal/service/tracker"
	"agrovision/internal/service/vision/arucodict"
)

// Validate reports every configuration problem at once. It is called before
// any device or database is opened.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	keys := make([]string, 0, len(c.envErrors))
	for key := range c.envErrors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		errs = append(errs, c.envErrors[key])
	}

	if c.CaptureWidth <= 0 || c.CaptureHeight <= 0 {
		fail("capture size must be positive, got %dx%d", c.CaptureWidth, c.CaptureHeight)
	}
	if c.MaxFPS < 0 || math.IsNaN(c.MaxFPS) || math.IsInf(c.MaxFPS, 0) {
		fail("max fps must be a finite non-negative number, got %v", c.MaxFPS)
	}
	if c.Threshold < 1 {
		fail("confirmation threshold must be at least 1, got %d", c.Threshold)
	}
	if c.ResetInterval <= 0 {
		fail("reset interval must be positive, got %v", c.ResetInterval)
	}
	if _, err := tracker.ParseValidSet(c.ValidIDs); err != nil {
		fail("valid ids: %w", err)
	}
	if strings.TrimSpace(c.ArucoDict) == "" {
		fail("aruco dictionary must be set")
	} else if _, err := arucodict.Canonical(c.ArucoDict); err != nil {
		fail("%w (expected one of %s)", err, strings.Join(arucodict.Names(), ", "))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		fail("jpeg quality must be within 1..100, got %d", c.JPEGQuality)
	}
	if c.DispatchQueue < 1 {
		fail("dispatch queue size must be at least 1, got %d", c.DispatchQueue)
	}
	if c.WriteTimeout <= 0 {
		fail("write timeout must be positive, got %v", c.WriteTimeout)
	}

	switch c.StorageDriver() {
	case DriverNone:
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			fail("sqlite driver requires a database path")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.DBHost) == "" {
			fail("postgres driver requires a host")
		}
		if strings.TrimSpace(c.DBName) == "" {
			fail("postgres driver requires a database name")
		}
		if c.DBPort < 1 || c.DBPort > 65535 {
			fail("database port must be within 1..65535, got %d", c.DBPort)
		}
		switch c.DBSSLMode {
		case "", "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		default:
			fail("unknown sslmode %q", c.DBSSLMode)
		}
	default:
		fail("unknown database driver %q (expected %q or %q)", c.DBDriver, DriverSQLite, DriverPostgres)
	}

	return errors.Join(errs...)
}
