package announce

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/benbjohnson/clock"
	"gopkg.in/yaml.v3"
)

// Config is used to configure Publish.
type Config struct {
	Records       []string      // record entries, bare names or key=value descriptors
	Hostname      string        // local hostname, normalized with SelfHostname
	Dial          Dialer        // opens the responder connection
	RetryInterval time.Duration // pause after a failed poll, default 1s

	Logger  log.Interface
	Clock   clock.Clock
	Metrics *Metrics
}

// Validate reports configuration that cannot be used.
func (c *Config) Validate() error {
	if c == nil {
		return errNilConfig
	}
	if c.Dial == nil {
		return errNilDialer
	}
	if c.RetryInterval < 0 {
		return errBadRetry
	}
	return nil
}

func (c *Config) options() []Option {
	opts := []Option{}
	if c.Logger != nil {
		opts = append(opts, WithLogger(c.Logger))
	}
	if c.Clock != nil {
		opts = append(opts, WithClock(c.Clock))
	}
	if c.RetryInterval > 0 {
		opts = append(opts, WithRetryInterval(c.RetryInterval))
	}
	if c.Metrics != nil {
		opts = append(opts, WithMetrics(c.Metrics))
	}
	return opts
}

// Option customizes a Session or the keepalive loop.
type Option func(*options)

type options struct {
	log           log.Interface
	clock         clock.Clock
	retryInterval time.Duration
	metrics       *Metrics
}

func newOptions(opts []Option) *options {
	o := &options{
		clock:         clock.New(),
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = defaultLogger()
	}
	return o
}

// WithLogger sets the logger.
func WithLogger(l log.Interface) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithClock sets the clock used for retry pauses.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithRetryInterval sets the pause after a failed poll.
func WithRetryInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.retryInterval = d
		}
	}
}

// WithMetrics records registration and poll outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// FileConfig is the YAML configuration file.
//
//	hostname: box
//	backend: avahi
//	retry_interval: 2s
//	register:
//	  - myprinter
//	  - name=svc,ip=192.0.2.5,unique=1
type FileConfig struct {
	Hostname      string        `yaml:"hostname"`
	Backend       string        `yaml:"backend"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
	MetricsListen string        `yaml:"metrics_listen"`
	Register      []string      `yaml:"register"`
}

// LoadFileConfig reads a YAML configuration file.
func LoadFileConfig(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFileConfig(b)
}

// ParseFileConfig decodes YAML configuration. Unknown fields are rejected.
func ParseFileConfig(b []byte) (*FileConfig, error) {
	fc := &FileConfig{}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return fc, nil
}
