package worldtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"
)

// accepted layouts for the provider's datetime field, most specific first
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
}

// Provider returns the current time for a fixed timezone as an offset-aware string.
type Provider interface {
	CurrentTime(ctx context.Context) (string, error)
}

// Sources reported to a LookupRecorder.
const (
	SourceProvider = "provider"
	SourceFallback = "fallback"
)

// LookupRecorder observes the outcome of every Resolve call.
type LookupRecorder interface {
	TimeLookup(source, reason string)
}

type nopRecorder struct{}

func (nopRecorder) TimeLookup(string, string) {}

// Config holds the fixed settings of a Resolver.
type Config struct {
	// Timezone is an IANA zone name such as "Asia/Kolkata".
	Timezone string
	// Now reads the local clock; defaults to time.Now.
	Now func() time.Time
	// Recorder, when set, is told where each timestamp came from.
	Recorder LookupRecorder
}

// Resolver turns a provider lookup into a timestamp, falling back to the
// local clock in the configured zone whenever the provider cannot be used.
type Resolver struct {
	provider Provider
	location *time.Location
	now      func() time.Time
	recorder LookupRecorder
	logger   logrus.FieldLogger
}

// NewResolver validates cfg and returns a Resolver. A nil provider always falls back.
func NewResolver(provider Provider, cfg Config, logger logrus.FieldLogger) (*Resolver, error) {
	loc, err := LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Resolver{
		provider: provider,
		location: loc,
		now:      cfg.Now,
		recorder: cfg.Recorder,
		logger:   logger.WithField("timezone", loc.String()),
	}, nil
}

// LoadLocation resolves an IANA zone name.
func LoadLocation(timezone string) (*time.Location, error) {
	timezone = strings.TrimSpace(timezone)
	if timezone == "" {
		return nil, fmt.Errorf("timezone is required")
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return loc, nil
}

// Location returns the configured zone.
func (r *Resolver) Location() *time.Location {
	return r.location
}

// Resolve never fails: any provider error or unparsable value yields the local fallback.
func (r *Resolver) Resolve(ctx context.Context) time.Time {
	if r.provider == nil {
		return r.fallback("disabled")
	}

	raw, err := r.provider.CurrentTime(ctx)
	if err != nil {
		reason := ReasonTransport
		var perr *ProviderError
		if errors.As(err, &perr) {
			reason = perr.Reason
		}
		r.logger.WithError(err).WithField("reason", reason).Warn("time provider unavailable, using local clock")
		return r.fallback(reason)
	}

	ts, err := parseDatetime(raw)
	if err != nil {
		r.logger.WithError(err).WithField("reason", "parse").Warn("time provider returned unparsable datetime, using local clock")
		return r.fallback("parse")
	}
	r.recorder.TimeLookup(SourceProvider, "")
	return ts
}

func (r *Resolver) fallback(reason string) time.Time {
	r.recorder.TimeLookup(SourceFallback, reason)
	return r.now().In(r.location)
}

func parseDatetime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range layouts {
		ts, err := time.Parse(layout, raw)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("parse datetime %q: %w", raw, lastErr)
}
