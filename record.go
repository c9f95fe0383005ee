package announce

import (
	"fmt"
	"strings"
)

// RecordKind is the type of record a RecordSpec publishes.
type RecordKind int

const (
	KindCNAME RecordKind = iota
	KindA
)

func (k RecordKind) String() string {
	switch k {
	case KindCNAME:
		return "CNAME"
	case KindA:
		return "A"
	default:
		return fmt.Sprintf("RecordKind(%d)", int(k))
	}
}

// RecordSpec is one record the user asked to publish.
type RecordSpec struct {
	Name   string     // name to publish (e.g. "myprinter.local")
	Target string     // alias for CNAME, dotted IPv4 address for A
	Kind   RecordKind // inferred from the descriptor keys
	Unique bool       // claim exclusive ownership of Name
}

func (s RecordSpec) String() string {
	fields := []string{
		fmt.Sprintf("Name:%s", s.Name),
		fmt.Sprintf("Kind:%v", s.Kind),
		fmt.Sprintf("Target:%s", s.Target),
	}
	if s.Unique {
		fields = append(fields, "Unique")
	}
	return strings.Join(fields, ",")
}

// SelfHostname returns the default CNAME target for host: host itself when it
// already ends in ".local" or ".lan", host + ".local" otherwise.
func SelfHostname(host string) string {
	if strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".lan") {
		return host
	}
	return host + ".local"
}
