package responder

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"golang.org/x/net/dns/dnsmessage"
	"golang.org/x/net/ipv4"

	"github.com/bino7/announce"
)

const (
	inboundBufferSize = 9000
	maxMessageRecords = 300
	readTimeout       = time.Second
	multicastTTL      = 255
	version           = "announce builtin responder"
)

var (
	errNilConfig             = errors.New("responder: config is nil")
	errJoiningMulticastGroup = errors.New("responder: failed to join multicast group on any interface")
	errConnectionClosed      = errors.New("responder: connection closed")
	errAlreadyCommitted      = errors.New("responder: entry group already committed")
)

// packetConn is the part of *ipv4.PacketConn the responder uses once it is
// listening.
type packetConn interface {
	ReadFrom(b []byte) (int, *ipv4.ControlMessage, net.Addr, error)
	WriteTo(b []byte, cm *ipv4.ControlMessage, dst net.Addr) (int, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// Config is used to configure the responder.
type Config struct {
	// Interfaces to join the mDNS group on. All interfaces when empty.
	Interfaces []net.Interface

	Logger log.Interface
}

// Conn represents a mDNS responder
type Conn struct {
	mu      sync.Mutex
	log     log.Interface
	socket  packetConn
	dstAddr *net.UDPAddr
	zone    *RecordZone

	closed chan struct{}
}

// Dialer returns an announce.Dialer that starts a responder with config.
func Dialer(config *Config) announce.Dialer {
	return func(context.Context) (announce.Client, error) {
		return Listen(config)
	}
}

// Listen opens the mDNS socket and joins the multicast group.
func Listen(config *Config) (*Conn, error) {
	if config == nil {
		return nil, errNilConfig
	}

	l, err := net.ListenMulticastUDP("udp4", nil, ipv4Addr)
	if err != nil {
		return nil, err
	}
	conn := ipv4.NewPacketConn(l)

	ifaces := config.Interfaces
	if len(ifaces) == 0 {
		if ifaces, err = net.Interfaces(); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	joinErrCount := 0
	for i := range ifaces {
		if err = conn.JoinGroup(&ifaces[i], &net.UDPAddr{IP: ipv4Addr.IP}); err != nil {
			joinErrCount++
		}
	}
	// ListenMulticastUDP already joined on the default interface, so failures
	// only matter when the caller picked the interfaces.
	if len(config.Interfaces) > 0 && joinErrCount >= len(config.Interfaces) {
		_ = conn.Close()
		return nil, errJoiningMulticastGroup
	}
	if err := conn.SetMulticastTTL(multicastTTL); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = &log.Logger{
			Handler: cli.New(os.Stderr),
			Level:   log.InfoLevel,
		}
	}

	return &Conn{
		log:     logger,
		socket:  conn,
		dstAddr: ipv4Addr,
		zone:    NewRecordZone(),
		closed:  make(chan struct{}),
	}, nil
}

// Version identifies the responder.
func (c *Conn) Version() (string, error) {
	return version, nil
}

// NewEntryGroup returns an empty entry group publishing into this responder.
func (c *Conn) NewEntryGroup() (announce.EntryGroup, error) {
	select {
	case <-c.closed:
		return nil, errConnectionClosed
	default:
	}
	return &entryGroup{conn: c, zone: NewRecordZone()}, nil
}

// Close closes the mDNS socket. Records are not withdrawn.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
		return nil
	default:
	}
	close(c.closed)
	return c.socket.Close()
}

// Poll reads questions and answers them from the committed records until the
// socket fails or ctx is done.
func (c *Conn) Poll(ctx context.Context) error {
	b := make([]byte, inboundBufferSize)
	for {
		select {
		case <-c.closed:
			return errConnectionClosed
		default:
		}
		if ctx.Err() != nil {
			return nil
		}

		if err := c.socket.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return err
		}
		n, _, src, err := c.socket.ReadFrom(b)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}
		c.handleQuery(b[:n], src)
	}
}

func (c *Conn) handleQuery(packet []byte, src net.Addr) {
	var p dnsmessage.Parser
	h, err := p.Start(packet)
	if err != nil {
		c.log.Warnf("Failed to parse mDNS packet %v", err)
		return
	}
	if h.Response {
		return
	}

	for i := 0; i <= maxMessageRecords; i++ {
		q, err := p.Question()
		if errors.Is(err, dnsmessage.ErrSectionDone) {
			return
		} else if err != nil {
			c.log.Warnf("Failed to parse mDNS packet %v", err)
			return
		}

		resources, err := c.zone.Resources(h.ID, q)
		if err != nil {
			c.log.Warnf("build answer error %v", err)
			continue
		}
		if resources == nil {
			continue
		}

		dst := net.Addr(c.dstAddr)
		if q.Class&unicastResponse != 0 {
			dst = src
		}
		c.log.Debugf("answering %v %v to %v", q.Name, q.Type, dst)
		c.send(resources, dst)
	}
}

func (c *Conn) send(packet []byte, dst net.Addr) error {
	if _, err := c.socket.WriteTo(packet, nil, dst); err != nil {
		c.log.Warnf("Failed to send mDNS packet %v", err)
		return err
	}
	return nil
}

// commit publishes the records of an entry group and announces them.
func (c *Conn) commit(z *RecordZone) error {
	select {
	case <-c.closed:
		return errConnectionClosed
	default:
	}

	z.mu.RLock()
	for _, key := range z.order {
		for _, r := range z.records[key] {
			if err := c.zone.Add(r); err != nil {
				z.mu.RUnlock()
				return err
			}
		}
	}
	z.mu.RUnlock()

	packet, err := c.zone.Announcement()
	if err != nil || packet == nil {
		return err
	}
	return c.send(packet, c.dstAddr)
}

type entryGroup struct {
	conn      *Conn
	zone      *RecordZone
	committed bool
}

func (g *entryGroup) AddRecord(r announce.Record) error {
	if g.committed {
		return errAlreadyCommitted
	}
	return g.zone.Add(r)
}

func (g *entryGroup) Commit() error {
	if g.committed {
		return errAlreadyCommitted
	}
	if err := g.conn.commit(g.zone); err != nil {
		return err
	}
	g.committed = true
	return nil
}
