package responder

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/dns/dnsmessage"

	"github.com/bino7/announce"
)

/*
(Question.Name->{Type->[Records]})

<name>. -> {
	TypeA     ->[A, CNAME],
	TypeCNAME ->[CNAME],
	TypeANY   ->[A, CNAME]
}

A CNAME owner answers every question type for its name.
*/

// Zone is the interface used to integrate with the server and
// to serve records dynamically
type Zone interface {
	// Resources returns a packed response to a DNS question, or nil when
	// the zone has nothing to say.
	Resources(id uint16, q dnsmessage.Question) ([]byte, error)
}

const (
	// TypeANY matches every record type in a question.
	TypeANY = dnsmessage.Type(255)

	classANY        = dnsmessage.Class(255)
	cacheFlushBit   = 1 << 15
	unicastResponse = 1 << 15
)

// RecordZone holds committed records keyed by lower-cased, dot terminated name.
type RecordZone struct {
	mu      sync.RWMutex
	records map[string][]announce.Record
	order   []string
}

// NewRecordZone returns an empty zone.
func NewRecordZone() *RecordZone {
	return &RecordZone{records: make(map[string][]announce.Record)}
}

// Add validates r and adds it to the zone.
func (z *RecordZone) Add(r announce.Record) error {
	if err := validateRecord(r); err != nil {
		return err
	}
	key := canonical(r.Name)

	z.mu.Lock()
	defer z.mu.Unlock()
	if _, ok := z.records[key]; !ok {
		z.order = append(z.order, key)
	}
	z.records[key] = append(z.records[key], r)
	return nil
}

// Len returns the number of records.
func (z *RecordZone) Len() int {
	z.mu.RLock()
	defer z.mu.RUnlock()
	n := 0
	for _, rs := range z.records {
		n += len(rs)
	}
	return n
}

// Resources returns DNS records in response to a DNS question.
func (z *RecordZone) Resources(id uint16, q dnsmessage.Question) ([]byte, error) {
	if c := q.Class &^ unicastResponse; c != dnsmessage.ClassINET && c != classANY {
		return nil, nil
	}

	z.mu.RLock()
	var answers []announce.Record
	for _, r := range z.records[canonical(q.Name.String())] {
		if q.Type == TypeANY || q.Type == r.Type || r.Type == dnsmessage.TypeCNAME {
			answers = append(answers, r)
		}
	}
	z.mu.RUnlock()

	if len(answers) == 0 {
		return nil, nil
	}
	return pack(id, answers)
}

// Announcement packs every record of the zone into one unsolicited response.
func (z *RecordZone) Announcement() ([]byte, error) {
	z.mu.RLock()
	var all []announce.Record
	for _, key := range z.order {
		all = append(all, z.records[key]...)
	}
	z.mu.RUnlock()

	if len(all) == 0 {
		return nil, nil
	}
	return pack(0, all)
}

func pack(id uint16, records []announce.Record) ([]byte, error) {
	builder := newBuilder(id)
	builder.EnableCompression()
	if err := builder.StartAnswers(); err != nil {
		return nil, err
	}
	for _, r := range records {
		name, err := dnsmessage.NewName(canonical(r.Name))
		if err != nil {
			return nil, err
		}
		class := r.Class
		if r.Flags&announce.PublishUnique != 0 {
			class |= cacheFlushBit
		}
		err = builder.UnknownResource(
			dnsmessage.ResourceHeader{
				Name:  name,
				Type:  r.Type,
				Class: class,
				TTL:   r.TTL,
			},
			dnsmessage.UnknownResource{
				Type: r.Type,
				Data: r.Data,
			},
		)
		if err != nil {
			return nil, fmt.Errorf("pack %v record %s: %w", r.Type, r.Name, err)
		}
	}
	return builder.Finish()
}

func validateRecord(r announce.Record) error {
	if r.Name == "" {
		return fmt.Errorf("record name must not be blank")
	}
	if _, err := dnsmessage.NewName(canonical(r.Name)); err != nil {
		return fmt.Errorf("invalid record name %q: %w", r.Name, err)
	}
	if r.Class != dnsmessage.ClassINET {
		return fmt.Errorf("unsupported class %v", r.Class)
	}
	switch r.Type {
	case dnsmessage.TypeA:
		if len(r.Data) != 4 {
			return fmt.Errorf("A record %s: want 4 bytes of rdata, got %d", r.Name, len(r.Data))
		}
	case dnsmessage.TypeCNAME:
		if _, err := announce.DecodeName(r.Data); err != nil {
			return fmt.Errorf("CNAME record %s: %w", r.Name, err)
		}
	default:
		return fmt.Errorf("unsupported record type %v", r.Type)
	}
	return nil
}

// canonical lower-cases s and makes it dot terminated.
func canonical(s string) string {
	s = strings.ToLower(s)
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}
