// Package responder implements a small multicast DNS responder that answers
// for committed CNAME and A records. It satisfies announce.Client and is used
// on hosts where no Avahi daemon is running.
package responder

import (
	"net"

	"golang.org/x/net/dns/dnsmessage"
)

const (
	ipv4mdns = "224.0.0.251"
	mdnsPort = 5353
)

var ipv4Addr = &net.UDPAddr{
	IP:   net.ParseIP(ipv4mdns),
	Port: mdnsPort,
}

func newBuilder(id uint16) *dnsmessage.Builder {
	b := dnsmessage.NewBuilder(nil, dnsmessage.Header{
		ID:            id,
		Response:      true,
		Authoritative: true,
	})
	return &b
}
