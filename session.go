package announce

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/apex/log"
	"go.uber.org/multierr"
)

// State is the progress of an announcement session.
type State int32

const (
	StateUninitialized State = iota
	StateClientConnected
	StateGroupCreated
	StateRecordsAdded
	StateCommitted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateClientConnected:
		return "client-connected"
	case StateGroupCreated:
		return "group-created"
	case StateRecordsAdded:
		return "records-added"
	case StateCommitted:
		return "committed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Report summarizes the records of one announcement.
type Report struct {
	Added    int
	Failed   int
	Warnings error // per record failures, combined
}

// Session owns the responder connection and the single entry group holding
// every configured record.
type Session struct {
	specs     []RecordSpec
	dial      Dialer
	opts      *options
	log       log.Interface
	registrar *Registrar

	state  atomic.Int32
	client Client
	group  EntryGroup
	report Report
}

// NewSession returns a session that will publish specs through the client
// returned by dial.
func NewSession(specs []RecordSpec, dial Dialer, opts ...Option) *Session {
	o := newOptions(opts)
	return &Session{
		specs:     specs,
		dial:      dial,
		opts:      o,
		log:       o.log,
		registrar: &Registrar{log: o.log, metrics: o.metrics},
	}
}

// State returns the current state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Client returns the responder connection, nil before Announce connected.
func (s *Session) Client() Client {
	return s.client
}

// Report returns the outcome of the last Announce.
func (s *Session) Report() Report {
	return s.report
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	s.opts.metrics.setState(st)
	s.log.WithField("state", st.String()).Debug("session state")
}

// Announce connects, creates the entry group, adds every record and commits
// the group. A failure to add a single record is reported in the Report and
// does not stop the others. Any other failure is returned as a *SessionError.
//
// With no records configured Announce does nothing.
func (s *Session) Announce(ctx context.Context) (*Report, error) {
	if len(s.specs) == 0 {
		s.log.Info("no records configured, nothing to announce")
		return &s.report, nil
	}
	if s.State() != StateUninitialized {
		return nil, errAlreadyBegun
	}
	if s.dial == nil {
		return nil, &SessionError{Op: "connect", Err: errNilDialer}
	}

	client, err := s.dial(ctx)
	if err != nil {
		return nil, &SessionError{Op: "connect", Err: err}
	}
	s.client = client
	s.setState(StateClientConnected)

	if version, err := client.Version(); err != nil {
		s.log.WithError(err).Warn("unable to read responder version")
	} else {
		s.log.Infof("responder version: %s", version)
	}

	group, err := client.NewEntryGroup()
	if err != nil {
		return nil, s.fail("create entry group", err)
	}
	s.group = group
	s.setState(StateGroupCreated)

	for _, spec := range s.specs {
		err := s.registrar.AddRecord(group, spec)
		switch {
		case err == nil:
			s.report.Added++
		case errors.Is(err, ErrInvalidName):
			return nil, s.fail("encode record", err)
		default:
			s.report.Failed++
			s.report.Warnings = multierr.Append(s.report.Warnings, err)
		}
	}
	s.setState(StateRecordsAdded)

	if err := group.Commit(); err != nil {
		return nil, s.fail("commit records", err)
	}
	s.setState(StateCommitted)

	s.log.WithFields(log.Fields{
		"added":  s.report.Added,
		"failed": s.report.Failed,
	}).Info("records committed")
	return &s.report, nil
}

func (s *Session) fail(op string, err error) error {
	if s.client != nil {
		if cerr := s.client.Close(); cerr != nil {
			s.log.WithError(cerr).Debug("close after failure")
		}
	}
	return &SessionError{Op: op, Err: err}
}
