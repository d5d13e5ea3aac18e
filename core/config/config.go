// Package config loads the keyed configuration store enumerated in §6.5,
// in the teacher's os.Getenv-based style (core/deeptreeecho/supabase_persistence.go),
// with an optional YAML file as a second source for operators who prefer a
// file over a pile of env vars.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config enumerates every recognized option from §6.5.
type Config struct {
	VectorDimension     int           `yaml:"vector_dimension"`
	CyclePeriod         time.Duration `yaml:"cycle_period"`
	ConsolidateThreshold float64      `yaml:"consolidate_threshold"`
	ForgetThreshold     float64       `yaml:"forget_threshold"`
	ConsolidationFlushEvery int       `yaml:"consolidation_flush_every"`
	IdentityFlushInterval  time.Duration `yaml:"identity_flush_interval"`
	DreamPeriod         time.Duration `yaml:"dream_period"`
	DreamSampleSize     int           `yaml:"dream_sample_size"`
	DreamSalienceCap    float64       `yaml:"dream_salience_cap"`
	MaxRestartsInWindow int           `yaml:"max_restarts_in_window"`
	RestartWindow       time.Duration `yaml:"restart_window"`
	StreamTrimMax       int           `yaml:"stream_trim_max"`
	InjectionRateSec    int           `yaml:"injection_rate_sec"`
	InjectionRateMin    int           `yaml:"injection_rate_min"`
	InjectionEntropySpikeThreshold float64 `yaml:"injection_entropy_spike_threshold"`
	KinshipTerms        []string      `yaml:"kinship_terms"`

	SupabaseURL string `yaml:"-"`
	SupabaseKey string `yaml:"-"`
}

// Default returns the documented defaults (§6.5).
func Default() Config {
	return Config{
		VectorDimension:                768,
		CyclePeriod:                    50 * time.Millisecond,
		ConsolidateThreshold:           0.70,
		ForgetThreshold:                0.30,
		ConsolidationFlushEvery:        100,
		IdentityFlushInterval:          30 * time.Second,
		DreamPeriod:                    30 * time.Second,
		DreamSampleSize:                16,
		DreamSalienceCap:               0.60,
		MaxRestartsInWindow:            3,
		RestartWindow:                  10 * time.Second,
		StreamTrimMax:                  100_000,
		InjectionRateSec:               5,
		InjectionRateMin:               100,
		InjectionEntropySpikeThreshold: 0.5,
		KinshipTerms:                   nil, // nil keeps the salience package's built-in default
	}
}

// LoadFile merges YAML file settings onto cfg, for keys present in the file.
func (c Config) LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("failed to parse config file: %w", err)
	}
	return c, nil
}

// LoadEnv overlays recognized environment variables onto cfg. Unset
// variables leave the existing value (whatever Default or a prior file load
// produced) untouched.
func (c Config) LoadEnv() (Config, error) {
	var err error
	c.VectorDimension, err = overlayInt(err, "VECTOR_DIMENSION", c.VectorDimension)
	c.CyclePeriod, err = overlayMillis(err, "CYCLE_PERIOD_MS", c.CyclePeriod)
	c.ConsolidateThreshold, err = overlayFloat(err, "CONSOLIDATE_THRESHOLD", c.ConsolidateThreshold)
	c.ForgetThreshold, err = overlayFloat(err, "FORGET_THRESHOLD", c.ForgetThreshold)
	c.ConsolidationFlushEvery, err = overlayInt(err, "CONSOLIDATION_FLUSH_EVERY", c.ConsolidationFlushEvery)
	c.IdentityFlushInterval, err = overlaySeconds(err, "IDENTITY_FLUSH_SECONDS", c.IdentityFlushInterval)
	c.DreamPeriod, err = overlayMillis(err, "DREAM_PERIOD_MS", c.DreamPeriod)
	c.DreamSampleSize, err = overlayInt(err, "DREAM_SAMPLE_SIZE", c.DreamSampleSize)
	c.DreamSalienceCap, err = overlayFloat(err, "DREAM_SALIENCE_CAP", c.DreamSalienceCap)
	c.StreamTrimMax, err = overlayInt(err, "STREAM_TRIM_MAX", c.StreamTrimMax)
	c.InjectionRateSec, err = overlayInt(err, "INJECTION_RATE_SEC", c.InjectionRateSec)
	c.InjectionRateMin, err = overlayInt(err, "INJECTION_RATE_MIN", c.InjectionRateMin)
	c.InjectionEntropySpikeThreshold, err = overlayFloat(err, "INJECTION_ENTROPY_SPIKE_THRESHOLD", c.InjectionEntropySpikeThreshold)
	if err != nil {
		return c, err
	}

	if v, ok := os.LookupEnv("MAX_RESTARTS_IN_WINDOW"); ok {
		n, window, perr := parseRestartBurst(v)
		if perr != nil {
			return c, fmt.Errorf("MAX_RESTARTS_IN_WINDOW: %w", perr)
		}
		c.MaxRestartsInWindow = n
		c.RestartWindow = window
	}
	if v, ok := os.LookupEnv("KINSHIP_TERMS"); ok {
		c.KinshipTerms = splitNonEmpty(v, ",")
	}

	c.SupabaseURL = os.Getenv("SUPABASE_URL")
	c.SupabaseKey = os.Getenv("SUPABASE_KEY")

	return c, nil
}

func overlayInt(prevErr error, key string, cur int) (int, error) {
	if prevErr != nil {
		return cur, prevErr
	}
	v, ok := os.LookupEnv(key)
	if !ok {
		return cur, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return cur, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func overlayFloat(prevErr error, key string, cur float64) (float64, error) {
	if prevErr != nil {
		return cur, prevErr
	}
	v, ok := os.LookupEnv(key)
	if !ok {
		return cur, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return cur, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func overlayMillis(prevErr error, key string, cur time.Duration) (time.Duration, error) {
	if prevErr != nil {
		return cur, prevErr
	}
	v, ok := os.LookupEnv(key)
	if !ok {
		return cur, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return cur, fmt.Errorf("%s: %w", key, err)
	}
	return time.Duration(n) * time.Millisecond, nil
}

func overlaySeconds(prevErr error, key string, cur time.Duration) (time.Duration, error) {
	if prevErr != nil {
		return cur, prevErr
	}
	v, ok := os.LookupEnv(key)
	if !ok {
		return cur, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return cur, fmt.Errorf("%s: %w", key, err)
	}
	return time.Duration(n) * time.Second, nil
}

// parseRestartBurst parses the "N/Ws" shorthand (e.g. "3/10s") as well as a
// bare integer (assumed against the default 10s window).
func parseRestartBurst(v string) (int, time.Duration, error) {
	parts := strings.SplitN(v, "/", 2)
	n, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	if len(parts) == 1 {
		return n, 10 * time.Second, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return n, d, nil
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
