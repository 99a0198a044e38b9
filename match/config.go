package match

import (
	"errors"
	"fmt"
	"runtime"
)

// Config holds the tunables of a Matcher.
type Config struct {
	// Threshold is the similarity a candidate must strictly exceed to be
	// returned. Default: 0.25
	Threshold float64

	// Precision is the number of decimals scores are rounded to.
	// Default: 2
	Precision int

	// StopWords are dropped during tokenization.
	// Default: EnglishStopWords()
	StopWords StopWords

	// ParallelCutoff is the pool size above which candidates are tokenized
	// on a worker pool. Zero always tokenizes in parallel.
	// Default: 256
	ParallelCutoff int

	// Workers is the size of the tokenization worker pool.
	// Default: runtime.NumCPU()
	Workers int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithThreshold sets the minimum similarity, exclusive.
func WithThreshold(threshold float64) ConfigOption {
	return func(c *Config) {
		c.Threshold = threshold
	}
}

// WithPrecision sets the number of decimals in a score.
func WithPrecision(precision int) ConfigOption {
	return func(c *Config) {
		c.Precision = precision
	}
}

// WithStopWords replaces the stop-word set.
func WithStopWords(words StopWords) ConfigOption {
	return func(c *Config) {
		c.StopWords = words
	}
}

// WithParallelCutoff sets the pool size above which tokenization fans out.
func WithParallelCutoff(cutoff int) ConfigOption {
	return func(c *Config) {
		c.ParallelCutoff = cutoff
	}
}

// WithWorkers sets the tokenization worker count.
func WithWorkers(workers int) ConfigOption {
	return func(c *Config) {
		c.Workers = workers
	}
}

// DefaultConfig returns the configuration that reproduces the reference
// scoring: threshold 0.25, two-decimal percentages, English stop words.
func DefaultConfig() *Config {
	return &Config{
		Threshold:      0.25,
		Precision:      2,
		StopWords:      englishStopWords,
		ParallelCutoff: 256,
		Workers:        runtime.NumCPU(),
	}
}

// NewConfig creates a Config with the default values and applies opts.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Threshold < 0 || c.Threshold >= 1 {
		return fmt.Errorf("match config: Threshold %v must be in [0, 1)", c.Threshold)
	}
	if c.Precision < 0 {
		return errors.New("match config: Precision must not be negative")
	}
	if c.ParallelCutoff < 0 {
		return errors.New("match config: ParallelCutoff must not be negative")
	}
	if c.Workers < 1 {
		return errors.New("match config: Workers must be at least 1")
	}
	if c.StopWords == nil {
		return errors.New("match config: StopWords is required")
	}
	return nil
}
