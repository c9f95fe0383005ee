// Package avahi connects announce to the Avahi daemon over the D-Bus system bus.
package avahi

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/godbus/dbus/v5"
	goavahi "github.com/holoplot/go-avahi"

	"github.com/bino7/announce"
)

const (
	busName             = "org.freedesktop.Avahi"
	entryGroupInterface = "org.freedesktop.Avahi.EntryGroup"
	signalBuffer        = 16
)

var (
	errNilConfig    = errors.New("avahi: config is nil")
	errDisconnected = errors.New("avahi: lost connection to the system bus")
	errNoDaemon     = errors.New("avahi: daemon is not reachable")
)

// Config is used to configure the Avahi client.
type Config struct {
	// Conn is the bus to use. A private system bus connection is opened on
	// every dial when nil. The client owns Conn: Close closes it.
	Conn *dbus.Conn

	Logger log.Interface
}

// Client is an announce.Client backed by avahi-daemon.
type Client struct {
	conn    *dbus.Conn
	server  *goavahi.Server
	log     log.Interface
	signals chan *dbus.Signal

	closeOnce sync.Once
}

// Dialer returns an announce.Dialer connecting to avahi-daemon with config.
func Dialer(config *Config) announce.Dialer {
	return func(context.Context) (announce.Client, error) {
		return Dial(config)
	}
}

// Dial connects to avahi-daemon.
func Dial(config *Config) (*Client, error) {
	if config == nil {
		return nil, errNilConfig
	}

	logger := config.Logger
	if logger == nil {
		logger = &log.Logger{
			Handler: cli.New(os.Stderr),
			Level:   log.InfoLevel,
		}
	}

	conn := config.Conn
	if conn == nil {
		var err error
		if conn, err = dbus.ConnectSystemBus(); err != nil {
			return nil, fmt.Errorf("unable to connect to the system bus: %w", err)
		}
	}

	server, err := goavahi.ServerNew(conn)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize DNS resolution: %w", err)
	}
	if err := checkDaemon(server); err != nil {
		server.Close()
		return nil, err
	}

	if err := conn.AddMatchSignal(dbus.WithMatchSender(busName)); err != nil {
		server.Close()
		return nil, fmt.Errorf("unable to subscribe to avahi signals: %w", err)
	}
	signals := make(chan *dbus.Signal, signalBuffer)
	conn.Signal(signals)

	return &Client{
		conn:    conn,
		server:  server,
		log:     logger,
		signals: signals,
	}, nil
}

type apiVersioner interface {
	GetAPIVersion() (int32, error)
}

// checkDaemon makes one round trip to avahi-daemon. ServerNew alone never
// talks to it.
func checkDaemon(s apiVersioner) error {
	if _, err := s.GetAPIVersion(); err != nil {
		return fmt.Errorf("%w: %w", errNoDaemon, err)
	}
	return nil
}

// Version returns the daemon version string.
func (c *Client) Version() (string, error) {
	return c.server.GetVersionString()
}

// NewEntryGroup creates an entry group on the daemon.
func (c *Client) NewEntryGroup() (announce.EntryGroup, error) {
	eg, err := c.server.EntryGroupNew()
	if err != nil {
		return nil, fmt.Errorf("unable to initialize entry group: %w", err)
	}
	return &entryGroup{eg: eg}, nil
}

// Poll dispatches daemon signals until the bus connection drops or ctx is
// done. State changes are only logged.
func (c *Client) Poll(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-c.signals:
			if !ok {
				return errDisconnected
			}
			c.handleSignal(sig)
		}
	}
}

func (c *Client) handleSignal(sig *dbus.Signal) {
	if sig == nil {
		return
	}
	ctx := c.log.WithFields(log.Fields{
		"signal": sig.Name,
		"path":   string(sig.Path),
	})
	if sig.Name == entryGroupInterface+".StateChanged" && len(sig.Body) > 0 {
		ctx = ctx.WithField("state", sig.Body[0])
	}
	ctx.Debug("avahi signal")
}

// Close releases the daemon handle and closes the bus connection. The entry
// group is dropped by the daemon once the connection goes away.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.conn.RemoveSignal(c.signals)
		c.server.Close()
	})
	return nil
}

type entryGroup struct {
	eg *goavahi.EntryGroup
}

func (g *entryGroup) AddRecord(r announce.Record) error {
	return g.eg.AddRecord(r.Interface, r.Protocol, uint32(r.Flags), r.Name,
		uint16(r.Class), uint16(r.Type), r.TTL, r.Data)
}

func (g *entryGroup) Commit() error {
	return g.eg.Commit()
}
