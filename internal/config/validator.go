package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var logLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var providers = map[string]bool{
	"jina":   true,
	"openai": true,
	"local":  true,
}

// Validate reports every invalid field. Zero values are never flagged
// (they mean "component default"); an empty provider is valid too, since
// the provider can be detected from the environment at startup.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Log.Level != "" && !logLevels[strings.ToLower(c.Log.Level)] {
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown level %q, want debug, info, warn or error", c.Log.Level),
		})
	}

	if c.Vector.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "vector.url",
			Message: "Postgres connection string is required (or set DATABASE_URL)",
		})
	} else if _, err := url.Parse(c.Vector.URL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "vector.url",
			Message: "invalid connection URL",
		})
	}

	if c.Vector.Dimension < 0 {
		errors = append(errors, ValidationError{
			Field:   "vector.dimension",
			Message: "dimension cannot be negative",
		})
	}

	if c.Embedding.Provider != "" && !providers[strings.ToLower(c.Embedding.Provider)] {
		errors = append(errors, ValidationError{
			Field:   "embedding.provider",
			Message: fmt.Sprintf("unknown provider %q, want jina, openai or local", c.Embedding.Provider),
		})
	}

	if c.Embedding.BatchSize < 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.batch_size",
			Message: "batch_size cannot be negative",
		})
	}

	if c.Embedding.MinBatchSize < 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.min_batch_size",
			Message: "min_batch_size cannot be negative",
		})
	}

	if c.Embedding.RequestsPerSecond < 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.requests_per_second",
			Message: "requests_per_second cannot be negative",
		})
	}

	if c.Queue.Concurrency < 0 {
		errors = append(errors, ValidationError{
			Field:   "queue.concurrency",
			Message: "concurrency cannot be negative",
		})
	}

	if c.Queue.PollIntervalMS < 0 {
		errors = append(errors, ValidationError{
			Field:   "queue.poll_interval_ms",
			Message: "poll_interval_ms cannot be negative",
		})
	}

	if c.Queue.RetryDelayMS < 0 {
		errors = append(errors, ValidationError{
			Field:   "queue.retry_delay_ms",
			Message: "retry_delay_ms cannot be negative",
		})
	}

	if c.Segment.TargetSize < 0 {
		errors = append(errors, ValidationError{
			Field:   "segment.target_size",
			Message: "target_size cannot be negative",
		})
	}

	if c.Segment.Overlap < 0 {
		errors = append(errors, ValidationError{
			Field:   "segment.overlap",
			Message: "overlap cannot be negative",
		})
	}

	if c.Segment.MinSize < 0 {
		errors = append(errors, ValidationError{
			Field:   "segment.min_size",
			Message: "min_size cannot be negative",
		})
	}

	if c.Segment.TargetSize > 0 && c.Segment.Overlap >= c.Segment.TargetSize {
		errors = append(errors, ValidationError{
			Field:   "segment.overlap",
			Message: "overlap must be less than target_size",
		})
	}

	return errors
}
