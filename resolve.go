package announce

import (
	"fmt"
	"strings"
)

const (
	listSeparator = ','
	kvSeparator   = '='
	escapeChar    = '\\'
)

// Resolve turns the configured record entries into record specs. An entry
// without '=' publishes a CNAME from the entry to self; any other entry is a
// comma separated key=value descriptor with the keys name, cname, unique and
// ip (alias a).
//
// Every entry is validated before anything is returned, so a bad entry never
// leaves the caller half configured.
func Resolve(entries []string, self string) ([]RecordSpec, error) {
	specs := make([]RecordSpec, 0, len(entries))
	for _, entry := range entries {
		spec, err := resolveEntry(entry, self)
		if err != nil {
			return nil, &ConfigError{Entry: entry, Err: err}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func resolveEntry(entry, self string) (RecordSpec, error) {
	if !strings.ContainsRune(entry, kvSeparator) {
		spec := RecordSpec{Name: entry, Target: self, Kind: KindCNAME}
		return spec, checkTarget(spec)
	}

	items, err := parseKVList(entry)
	if err != nil {
		return RecordSpec{}, err
	}

	var name, cname, ip string
	var hasName, hasCNAME, hasIP, unique bool
	for _, it := range items {
		switch it.key {
		case "name":
			name, hasName = it.value, true
		case "cname":
			cname, hasCNAME = it.value, true
		case "unique":
			unique = true
		case "ip", "a":
			ip, hasIP = it.value, true
		default:
			return RecordSpec{}, fmt.Errorf("%w %q", ErrUnknownKey, it.key)
		}
	}
	if !hasName || name == "" {
		return RecordSpec{}, ErrMissingName
	}

	spec := RecordSpec{Name: name, Unique: unique}
	switch {
	case hasCNAME:
		spec.Kind, spec.Target = KindCNAME, cname
	case hasIP:
		spec.Kind, spec.Target = KindA, ip
	default:
		spec.Kind, spec.Target = KindCNAME, self
	}
	return spec, checkTarget(spec)
}

// checkTarget makes sure a CNAME target encodes before any connection exists.
func checkTarget(spec RecordSpec) error {
	if spec.Kind != KindCNAME {
		return nil
	}
	if _, err := EncodeName(spec.Target); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidName, err)
	}
	return nil
}

type kv struct {
	key   string
	value string
}

// parseKVList splits "k1=v1,k2=v2". A backslash makes the next character
// literal. The value runs to the next unescaped comma and may contain '='.
func parseKVList(s string) ([]kv, error) {
	var (
		items    []kv
		cur      strings.Builder
		key      string
		inValue  bool
		escaped  bool
		finished = func() error {
			if !inValue {
				return fmt.Errorf("%w: %q has no %q", ErrInvalidSyntax, cur.String(), kvSeparator)
			}
			items = append(items, kv{key: key, value: cur.String()})
			cur.Reset()
			key, inValue = "", false
			return nil
		}
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			cur.WriteByte(c)
			escaped = false
		case c == escapeChar:
			escaped = true
		case c == listSeparator:
			if err := finished(); err != nil {
				return nil, err
			}
		case c == kvSeparator && !inValue:
			key, inValue = cur.String(), true
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if escaped {
		return nil, fmt.Errorf("%w: dangling %q", ErrInvalidSyntax, escapeChar)
	}
	// a single trailing separator does not start a new item
	if inValue || cur.Len() > 0 || len(items) == 0 {
		if err := finished(); err != nil {
			return nil, err
		}
	}
	return items, nil
}
