package announce

import (
	"fmt"
	"net/netip"

	"github.com/apex/log"
	"golang.org/x/net/dns/dnsmessage"
)

// Registrar builds the record payload for a RecordSpec and adds it to an
// entry group.
type Registrar struct {
	log     log.Interface
	metrics *Metrics
}

// NewRegistrar returns a Registrar.
func NewRegistrar(opts ...Option) *Registrar {
	o := newOptions(opts)
	return &Registrar{log: o.log, metrics: o.metrics}
}

// AddRecord adds spec to group. A failed add is logged as a warning and
// returned; the caller may keep adding other records. An error wrapping
// ErrInvalidName means the payload itself could not be built.
func (r *Registrar) AddRecord(group EntryGroup, spec RecordSpec) error {
	if group == nil {
		return errNilGroup
	}

	rec, err := r.build(spec)
	if err == nil {
		err = group.AddRecord(rec)
	}
	r.metrics.record(spec.Kind, err)

	ctx := r.log.WithFields(log.Fields{
		"name":   spec.Name,
		"type":   spec.Kind.String(),
		"target": spec.Target,
	})
	if err != nil {
		ctx.WithError(err).Warn("add record failed")
		return fmt.Errorf("add %s record %s: %w", spec.Kind, spec.Name, err)
	}
	ctx.Infof("registered record %s %v %s", spec.Name, spec.Kind, spec.Target)
	return nil
}

func (r *Registrar) build(spec RecordSpec) (Record, error) {
	rec := Record{
		Interface: InterfaceUnspec,
		Protocol:  ProtoUnspec,
		Flags:     flagsFor(spec.Unique),
		Name:      spec.Name,
		Class:     dnsmessage.ClassINET,
		TTL:       RecordTTL,
	}

	switch spec.Kind {
	case KindCNAME:
		data, err := EncodeName(spec.Target)
		if err != nil {
			return Record{}, fmt.Errorf("%w: %w", ErrInvalidName, err)
		}
		rec.Type = dnsmessage.TypeCNAME
		rec.Data = data
	case KindA:
		addr, err := netip.ParseAddr(spec.Target)
		if err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}
		addr = addr.Unmap()
		if !addr.Is4() {
			return Record{}, fmt.Errorf("%w: %s is not IPv4", ErrInvalidAddress, spec.Target)
		}
		a4 := addr.As4()
		rec.Type = dnsmessage.TypeA
		rec.Data = a4[:]
	default:
		return Record{}, errBadKind
	}
	return rec, nil
}

func flagsFor(unique bool) PublishFlags {
	if unique {
		return PublishUseMulticast | PublishUnique
	}
	return PublishUseMulticast | PublishAllowMultiple
}
