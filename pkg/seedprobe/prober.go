// Package seedprobe classifies the reachability of seed endpoints.
//
// Each endpoint in a batch is probed with one TCP connect plus one bounded
// read, concurrently, and classified as online, stuck or offline. The batch
// joins against a fixed deadline so total latency stays near one deadline
// period regardless of how many endpoints are probed; a probe that has not
// finished by then is abandoned and its endpoint reported offline.
package seedprobe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Status is the terminal classification of one probed endpoint.
type Status int

const (
	// StatusOffline means the endpoint refused, closed or never answered
	// the connection attempt, or the probe was abandoned at the batch
	// deadline.
	StatusOffline Status = iota
	// StatusStuck means the endpoint accepted the connection but sent
	// nothing within the read timeout.
	StatusStuck
	// StatusOnline means the endpoint accepted and sent at least one byte.
	StatusOnline
)

func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusStuck:
		return "stuck"
	default:
		return "offline"
	}
}

// MarshalJSON encodes the status as its string form.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Result is the outcome for one endpoint in a batch.
type Result struct {
	Endpoint string        `json:"endpoint"`
	Status   Status        `json:"status"`
	Elapsed  time.Duration `json:"elapsed_ns"`
}

// Default probe parameters.
const (
	DefaultConnectTimeout = 3 * time.Second
	DefaultReadTimeout    = 3 * time.Second
	DefaultGreetingBytes  = 256
	DefaultJoinTimeout    = 5 * time.Second
	DefaultMaxConcurrent  = 64
)

// Config holds prober configuration.
type Config struct {
	// ConnectTimeout bounds the TCP connection attempt.
	ConnectTimeout time.Duration

	// ReadTimeout bounds the wait for a greeting after connecting.
	ReadTimeout time.Duration

	// GreetingBytes is how many bytes at most are read from the peer.
	GreetingBytes int

	// JoinTimeout bounds an entire batch. Probes still running when it
	// expires are abandoned and reported offline.
	JoinTimeout time.Duration

	// MaxConcurrent limits how many probes run at once. Probes queued
	// behind the limit still count against the batch deadline.
	MaxConcurrent int

	// DialContext overrides the dialer, mainly for tests.
	DialContext func(ctx context.Context, network, addr string) (net.Conn, error)
}

// DefaultConfig returns a default prober configuration.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: DefaultConnectTimeout,
		ReadTimeout:    DefaultReadTimeout,
		GreetingBytes:  DefaultGreetingBytes,
		JoinTimeout:    DefaultJoinTimeout,
		MaxConcurrent:  DefaultMaxConcurrent,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.GreetingBytes == 0 {
		c.GreetingBytes = def.GreetingBytes
	}
	if c.JoinTimeout == 0 {
		c.JoinTimeout = def.JoinTimeout
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = def.MaxConcurrent
	}
	return c
}

// Validate checks the configuration for usable values.
func (c Config) Validate() error {
	if c.ConnectTimeout <= 0 {
		return errors.New("connect timeout must be positive")
	}
	if c.ReadTimeout <= 0 {
		return errors.New("read timeout must be positive")
	}
	if c.GreetingBytes <= 0 {
		return errors.New("greeting size must be positive")
	}
	if c.JoinTimeout <= 0 {
		return errors.New("join timeout must be positive")
	}
	if c.MaxConcurrent <= 0 {
		return errors.New("concurrency limit must be positive")
	}
	return nil
}

// Prober probes batches of seed endpoints.
type Prober struct {
	config  Config
	metrics *proberMetrics
}

// New creates a Prober from config, filling defaults first.
func New(config Config) (*Prober, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid prober config: %w", err)
	}
	return &Prober{config: config, metrics: defaultProberMetrics()}, nil
}

// Probe classifies every endpoint in the batch. The returned slice has one
// Result per endpoint, in the input order. Probe never fails: endpoints
// unresolved when the join deadline expires are reported offline. Abandoned
// probes are not killed; whatever they eventually produce is discarded.
func (p *Prober) Probe(ctx context.Context, endpoints []string) []Result {
	start := time.Now()

	resultChans := make([]chan Result, len(endpoints))
	sem := make(chan struct{}, p.config.MaxConcurrent)
	for i, endpoint := range endpoints {
		resultChans[i] = make(chan Result, 1)
		go func(out chan<- Result, endpoint string) {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			out <- p.probeOne(ctx, endpoint)
		}(resultChans[i], endpoint)
	}

	deadline := time.NewTimer(p.config.JoinTimeout)
	defer deadline.Stop()

	results := make([]Result, len(endpoints))
	expired := false
	for i, endpoint := range endpoints {
		if expired {
			// Past the deadline: take a result only if it is already
			// waiting, never block for one.
			select {
			case results[i] = <-resultChans[i]:
			default:
				results[i] = Result{Endpoint: endpoint, Status: StatusOffline}
			}
			continue
		}
		select {
		case results[i] = <-resultChans[i]:
		case <-deadline.C:
			expired = true
			select {
			case results[i] = <-resultChans[i]:
			default:
				results[i] = Result{Endpoint: endpoint, Status: StatusOffline}
			}
		case <-ctx.Done():
			expired = true
			select {
			case results[i] = <-resultChans[i]:
			default:
				results[i] = Result{Endpoint: endpoint, Status: StatusOffline}
			}
		}
	}

	for _, r := range results {
		p.metrics.results.WithLabelValues(r.Status.String()).Inc()
	}
	p.metrics.batchDuration.Observe(time.Since(start).Seconds())
	return results
}

// probeOne runs the full state machine for one endpoint: connect with a
// bounded timeout, then wait for a greeting within the read timeout.
func (p *Prober) probeOne(ctx context.Context, endpoint string) Result {
	start := time.Now()

	dialCtx, cancel := context.WithTimeout(ctx, p.config.ConnectTimeout)
	defer cancel()

	dial := p.config.DialContext
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	conn, err := dial(dialCtx, "tcp", endpoint)
	if err != nil {
		return Result{Endpoint: endpoint, Status: StatusOffline, Elapsed: time.Since(start)}
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(p.config.ReadTimeout))
	buf := make([]byte, p.config.GreetingBytes)
	n, err := conn.Read(buf)
	elapsed := time.Since(start)

	switch {
	case n > 0:
		return Result{Endpoint: endpoint, Status: StatusOnline, Elapsed: elapsed}
	case isTimeout(err):
		return Result{Endpoint: endpoint, Status: StatusStuck, Elapsed: elapsed}
	default:
		// EOF or reset: the peer closed without saying anything.
		return Result{Endpoint: endpoint, Status: StatusOffline, Elapsed: elapsed}
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
