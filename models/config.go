// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// CurrentConfigVersion is the newest SessionConfig layout this build understands.
const CurrentConfigVersion = 1

// Defaults applied to omitted config fields.
const (
	DefaultMaxRounds              = 3
	DefaultQuorumFraction         = 1.0
	DefaultMatchThresholdFraction = 0.75
	DefaultRoundTimeoutSeconds    = 90
)

// SessionConfig holds the recognized session options. Fields this build does
// not recognize are kept in Extra and written back unchanged.
//
// The options are pointers so an omitted key (nil, filled by WithDefaults)
// stays distinguishable from an explicit zero (rejected by Validate, except
// for RoundTimeoutSeconds where 0 turns the timer off).
type SessionConfig struct {
	Version                int      `json:"version"`
	MaxRounds              *int     `json:"max_rounds,omitempty"`
	QuorumFraction         *float64 `json:"quorum_fraction,omitempty"`
	MatchThresholdFraction *float64 `json:"match_threshold_fraction,omitempty"`
	RoundTimeoutSeconds    *int     `json:"round_timeout_seconds,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var sessionConfigKeys = []string{
	"version", "max_rounds", "quorum_fraction", "match_threshold_fraction", "round_timeout_seconds",
}

func (c *SessionConfig) UnmarshalJSON(data []byte) error {
	type plain SessionConfig
	var p plain
	extra, err := decodeWithExtra(data, &p, sessionConfigKeys)
	if err != nil {
		return err
	}
	*c = SessionConfig(p)
	c.Extra = extra
	return nil
}

func (c SessionConfig) MarshalJSON() ([]byte, error) {
	type plain SessionConfig
	return encodeWithExtra(plain(c), c.Extra)
}

// WithDefaults returns a copy with omitted fields set to their defaults.
// Explicit values, zero included, are kept for Validate to judge.
func (c SessionConfig) WithDefaults() SessionConfig {
	if c.Version == 0 {
		c.Version = CurrentConfigVersion
	}
	if c.MaxRounds == nil {
		c.MaxRounds = Rounds(DefaultMaxRounds)
	}
	if c.QuorumFraction == nil {
		c.QuorumFraction = Fraction(DefaultQuorumFraction)
	}
	if c.MatchThresholdFraction == nil {
		c.MatchThresholdFraction = Fraction(DefaultMatchThresholdFraction)
	}
	if c.RoundTimeoutSeconds == nil {
		c.RoundTimeoutSeconds = Seconds(DefaultRoundTimeoutSeconds)
	}
	return c
}

// Validate checks the recognized fields. It does not apply defaults.
func (c SessionConfig) Validate() error {
	if c.Version < 1 || c.Version > CurrentConfigVersion {
		return fmt.Errorf("%w: unsupported config version %d", ErrInvalidConfig, c.Version)
	}
	if c.MaxRounds != nil && *c.MaxRounds < 1 {
		return fmt.Errorf("%w: max_rounds must be at least 1, got %d", ErrInvalidConfig, *c.MaxRounds)
	}
	if c.QuorumFraction != nil && !validFraction(*c.QuorumFraction) {
		return fmt.Errorf("%w: quorum_fraction must be in (0,1], got %v", ErrInvalidConfig, *c.QuorumFraction)
	}
	if c.MatchThresholdFraction != nil && !validFraction(*c.MatchThresholdFraction) {
		return fmt.Errorf("%w: match_threshold_fraction must be in (0,1], got %v", ErrInvalidConfig, *c.MatchThresholdFraction)
	}
	if c.RoundTimeoutSeconds != nil && *c.RoundTimeoutSeconds < 0 {
		return fmt.Errorf("%w: round_timeout_seconds must not be negative, got %d", ErrInvalidConfig, *c.RoundTimeoutSeconds)
	}
	return nil
}

// RoundLimit is max_rounds, or its default when omitted.
func (c SessionConfig) RoundLimit() int {
	if c.MaxRounds == nil {
		return DefaultMaxRounds
	}
	return *c.MaxRounds
}

// Quorum is quorum_fraction, or its default when omitted.
func (c SessionConfig) Quorum() float64 {
	if c.QuorumFraction == nil {
		return DefaultQuorumFraction
	}
	return *c.QuorumFraction
}

// Threshold is match_threshold_fraction, or its default when omitted.
func (c SessionConfig) Threshold() float64 {
	if c.MatchThresholdFraction == nil {
		return DefaultMatchThresholdFraction
	}
	return *c.MatchThresholdFraction
}

// RoundTimeout is the round timer, or zero when the timer rule is off.
func (c SessionConfig) RoundTimeout() time.Duration {
	if c.RoundTimeoutSeconds == nil {
		return 0
	}
	return time.Duration(*c.RoundTimeoutSeconds) * time.Second
}

// Seconds returns a pointer to n, for SessionConfig.RoundTimeoutSeconds.
func Seconds(n int) *int {
	return &n
}

// Rounds returns a pointer to n, for SessionConfig.MaxRounds.
func Rounds(n int) *int {
	return &n
}

// Fraction returns a pointer to f, for the SessionConfig fractions.
func Fraction(f float64) *float64 {
	return &f
}

func validFraction(f float64) bool {
	return !math.IsNaN(f) && f > 0 && f <= 1
}
