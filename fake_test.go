package announce

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
)

var errFake = errors.New("fake failure")

func testLogger() log.Interface {
	return &log.Logger{Handler: discard.New(), Level: log.DebugLevel}
}

type fakeGroup struct {
	mu        sync.Mutex
	added     []Record
	failNames map[string]bool
	commitErr error
	commits   int
}

func (g *fakeGroup) AddRecord(r Record) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failNames[r.Name] {
		return errFake
	}
	g.added = append(g.added, r)
	return nil
}

func (g *fakeGroup) Commit() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.commits++
	return g.commitErr
}

type fakeClient struct {
	group    *fakeGroup
	groupErr error
	polls    chan struct{}
	closed   bool
}

func (c *fakeClient) Version() (string, error) {
	return "fake 0.8", nil
}

func (c *fakeClient) NewEntryGroup() (EntryGroup, error) {
	if c.groupErr != nil {
		return nil, c.groupErr
	}
	return c.group, nil
}

func (c *fakeClient) Poll(ctx context.Context) error {
	if c.polls != nil {
		select {
		case c.polls <- struct{}{}:
		default:
		}
	}
	<-ctx.Done()
	return nil
}

func (c *fakeClient) Close() error {
	c.closed = true
	return nil
}

func dialerFor(c *fakeClient) (Dialer, *int) {
	dials := 0
	return func(context.Context) (Client, error) {
		dials++
		return c, nil
	}, &dials
}

func failingDialer(context.Context) (Client, error) {
	return nil, io.ErrUnexpectedEOF
}
