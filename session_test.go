package announce

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func specs(t *testing.T, entries ...string) []RecordSpec {
	t.Helper()
	s, err := Resolve(entries, "box.local")
	require.NoError(t, err)
	return s
}

func TestSessionAnnounce(t *testing.T) {
	client := &fakeClient{group: &fakeGroup{}}
	dial, _ := dialerFor(client)
	s := NewSession(specs(t, "myprinter", "name=svc,ip=192.0.2.5,unique=1"), dial, WithLogger(testLogger()))
	assert.Equal(t, StateUninitialized, s.State())

	report, err := s.Announce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, s.State())
	assert.Equal(t, 2, report.Added)
	assert.Equal(t, 0, report.Failed)
	assert.NoError(t, report.Warnings)
	assert.Equal(t, 1, client.group.commits)
	assert.Len(t, client.group.added, 2)
	assert.Same(t, client, s.Client())
	assert.False(t, client.closed)
}

func TestSessionNoRecords(t *testing.T) {
	client := &fakeClient{group: &fakeGroup{}}
	dial, dials := dialerFor(client)
	s := NewSession(nil, dial, WithLogger(testLogger()))

	report, err := s.Announce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Added)
	assert.Equal(t, StateUninitialized, s.State())
	assert.Equal(t, 0, *dials)
	assert.Nil(t, s.Client())
}

func TestSessionRecordFailureContinues(t *testing.T) {
	group := &fakeGroup{failNames: map[string]bool{"first": true}}
	client := &fakeClient{group: group}
	dial, _ := dialerFor(client)
	s := NewSession(specs(t, "first", "name=bad,ip=nope", "last"), dial, WithLogger(testLogger()))

	report, err := s.Announce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, s.State())
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 2, report.Failed)
	assert.Len(t, multierr.Errors(report.Warnings), 2)
	assert.ErrorIs(t, report.Warnings, errFake)
	assert.ErrorIs(t, report.Warnings, ErrInvalidAddress)

	require.Len(t, group.added, 1)
	assert.Equal(t, "last", group.added[0].Name)
	assert.Equal(t, 1, group.commits)
}

func TestSessionConnectFailure(t *testing.T) {
	s := NewSession(specs(t, "x"), failingDialer, WithLogger(testLogger()))

	_, err := s.Announce(context.Background())
	var serr *SessionError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "connect", serr.Op)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, StateUninitialized, s.State())
}

func TestSessionGroupFailure(t *testing.T) {
	client := &fakeClient{groupErr: errFake}
	dial, _ := dialerFor(client)
	s := NewSession(specs(t, "x"), dial, WithLogger(testLogger()))

	_, err := s.Announce(context.Background())
	var serr *SessionError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "create entry group", serr.Op)
	assert.Equal(t, StateClientConnected, s.State())
	assert.True(t, client.closed)
}

func TestSessionCommitFailure(t *testing.T) {
	group := &fakeGroup{commitErr: errFake}
	client := &fakeClient{group: group}
	dial, _ := dialerFor(client)
	s := NewSession(specs(t, "x", "y"), dial, WithLogger(testLogger()))

	_, err := s.Announce(context.Background())
	var serr *SessionError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "commit records", serr.Op)
	assert.ErrorIs(t, err, errFake)
	assert.Equal(t, StateRecordsAdded, s.State())
	assert.Len(t, group.added, 2)
}

func TestSessionEncodeFailureIsFatal(t *testing.T) {
	group := &fakeGroup{}
	client := &fakeClient{group: group}
	dial, _ := dialerFor(client)
	bad := []RecordSpec{{Name: "x", Target: "a..b", Kind: KindCNAME}}
	s := NewSession(bad, dial, WithLogger(testLogger()))

	_, err := s.Announce(context.Background())
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.Equal(t, 0, group.commits)
}

func TestSessionAnnounceTwice(t *testing.T) {
	client := &fakeClient{group: &fakeGroup{}}
	dial, _ := dialerFor(client)
	s := NewSession(specs(t, "x"), dial, WithLogger(testLogger()))

	_, err := s.Announce(context.Background())
	require.NoError(t, err)
	_, err = s.Announce(context.Background())
	assert.ErrorIs(t, err, errAlreadyBegun)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "committed", StateCommitted.String())
	assert.Equal(t, "State(9)", State(9).String())
	assert.Equal(t, "RecordKind(7)", RecordKind(7).String())
}
