package atem

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/atemkit/atem/pkg/atem/transport"
)

// ConnectionConfig holds the resolved values the core consumes. The host
// application is responsible for parsing these out of flags, environment,
// or a config file — the core itself never reads configuration from disk.
//
// Grounded on the teacher's rtmp.Config / DefaultConfig split: a plain
// struct plus a Default constructor, with host-owned parsing entirely out
// of scope.
type ConnectionConfig struct {
	PeerHost                  string
	PeerPort                  uint16
	RecvTimeout               time.Duration
	LivenessProbesBeforeReset uint32
	StoreSendEnabled          bool
	MaxUnacked                uint32
}

// DefaultConnectionConfig returns the configuration the wire protocol's
// own defaults imply, with PeerHost left blank for the caller to fill in.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		PeerPort:                  transport.DefaultPort,
		RecvTimeout:               time.Second,
		LivenessProbesBeforeReset: 4,
		StoreSendEnabled:          true,
		MaxUnacked:                transport.MaxUnacked,
	}
}

// Option configures a Device at construction time.
type Option func(*Device)

// WithClock overrides the Device's time source, for deterministic tests.
func WithClock(clock transport.Clock) Option {
	return func(d *Device) { d.clock = clock }
}

// WithMetricsRegisterer attaches a prometheus registerer the Device
// publishes its counters and gauges to. Without this option metrics are
// registered against prometheus.DefaultRegisterer.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(d *Device) { d.metrics = newMetrics(reg) }
}

// WithLogger overrides the Device's structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(d *Device) { d.log = log }
}
