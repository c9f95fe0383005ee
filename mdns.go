// Package announce publishes CNAME and A records on the local network through a
// multicast DNS responder, so that names like "myservice.local" resolve without
// a DNS server.
//
// Records are declared as strings, resolved into RecordSpecs, added to a single
// entry group and committed together. After the commit a background loop keeps
// the responder's event dispatch running for the rest of the process lifetime.
package announce

import (
	"os"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
)

const (
	// RecordTTL is the TTL of every published record in seconds.
	RecordTTL = 60

	defaultRetryInterval = time.Second
)

func defaultLogger() log.Interface {
	return &log.Logger{
		Handler: cli.New(os.Stderr),
		Level:   log.InfoLevel,
	}
}
