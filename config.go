// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package astimewheel

import (
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the scheduler-facing configuration: the wheel's tick
// duration expressed as an amount of TimeUnit, and the requested wheel
// width. All three keys must be positive / non-empty.
type Config struct {
	TickDuration  int64  `toml:"tick_duration"`
	TimeUnit      string `toml:"time_unit"`
	TicksPerWheel int    `toml:"ticks_per_wheel"`
}

// DefaultConfig returns the default configuration: a 100 ms tick on a
// 512-slot wheel.
func DefaultConfig() Config {
	return Config{
		TickDuration:  100,
		TimeUnit:      "milliseconds",
		TicksPerWheel: 512,
	}
}

// ParseTimeUnit maps a unit name to its duration. Both long names
// ("milliseconds") and the usual abbreviations ("ms") are accepted,
// case-insensitively.
func ParseTimeUnit(name string) (time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "nanoseconds", "nanosecond", "ns":
		return time.Nanosecond, nil
	case "microseconds", "microsecond", "us":
		return time.Microsecond, nil
	case "milliseconds", "millisecond", "ms":
		return time.Millisecond, nil
	case "seconds", "second", "s":
		return time.Second, nil
	case "minutes", "minute", "m":
		return time.Minute, nil
	case "hours", "hour", "h":
		return time.Hour, nil
	}
	return 0, ErrInvalidTimeUnit
}

// Validate checks all configuration keys.
func (c Config) Validate() error {
	if c.TickDuration <= 0 {
		return ErrInvalidTickDuration
	}
	if c.TicksPerWheel <= 0 {
		return ErrInvalidTicksPerWheel
	}
	if _, err := ParseTimeUnit(c.TimeUnit); err != nil {
		return err
	}
	return nil
}

// Build validates the configuration and returns the timer construction
// parameters: the tick duration (tick_duration x time_unit) and the
// requested wheel width.
func (c Config) Build() (time.Duration, int, error) {
	if err := c.Validate(); err != nil {
		return 0, 0, err
	}
	unit, _ := ParseTimeUnit(c.TimeUnit)
	return time.Duration(c.TickDuration) * unit, c.TicksPerWheel, nil
}

// LoadConfig reads a TOML configuration file. Missing keys keep their
// defaults; the result is validated before being returned.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
