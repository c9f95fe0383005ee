package announce

import (
	"context"
	"strings"

	"golang.org/x/net/dns/dnsmessage"
)

// PublishFlags mirror the publish flags of the multicast daemon.
type PublishFlags uint32

const (
	PublishUnique        PublishFlags = 1 << 0
	PublishNoProbe       PublishFlags = 1 << 1
	PublishNoAnnounce    PublishFlags = 1 << 2
	PublishAllowMultiple PublishFlags = 1 << 3
	PublishUseMulticast  PublishFlags = 1 << 8
)

// Interface and protocol scope meaning "all".
const (
	InterfaceUnspec int32 = -1
	ProtoUnspec     int32 = -1
)

func (f PublishFlags) String() string {
	var names []string
	for _, n := range []struct {
		flag PublishFlags
		name string
	}{
		{PublishUnique, "unique"},
		{PublishNoProbe, "no-probe"},
		{PublishNoAnnounce, "no-announce"},
		{PublishAllowMultiple, "allow-multiple"},
		{PublishUseMulticast, "multicast"},
	} {
		if f&n.flag != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// Record is one raw resource record handed to an entry group.
type Record struct {
	Interface int32
	Protocol  int32
	Flags     PublishFlags
	Name      string
	Class     dnsmessage.Class
	Type      dnsmessage.Type
	TTL       uint32
	Data      []byte // wire format rdata
}

// EntryGroup collects records and publishes them together on Commit.
type EntryGroup interface {
	AddRecord(r Record) error
	Commit() error
}

// Poller runs the daemon's event dispatch until it fails or ctx is done.
type Poller interface {
	Poll(ctx context.Context) error
}

// Client is a connection to the multicast responder.
type Client interface {
	Poller
	Version() (string, error)
	NewEntryGroup() (EntryGroup, error)
	Close() error
}

// Dialer opens a Client.
type Dialer func(ctx context.Context) (Client, error)

// PollFunc adapts a plain function to Poller.
type PollFunc func(ctx context.Context) error

func (f PollFunc) Poll(ctx context.Context) error {
	return f(ctx)
}
