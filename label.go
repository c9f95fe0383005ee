package announce

import (
	"fmt"
	"strings"
)

const maxLabelLen = 255

// EncodeName converts a dotted name into DNS wire format: every component is
// prefixed by its length byte and the whole name ends with a zero byte.
//
// A trailing dot does not produce an empty component, so "host." and "host"
// encode the same way. Empty leading or interior components ("a..b") are
// rejected rather than written as a premature terminator.
func EncodeName(name string) ([]byte, error) {
	if name == "" || name == "." {
		return []byte{0}, nil
	}

	buf := make([]byte, 0, len(name)+2)
	start := 0
	for i := 0; i <= len(name); i++ {
		if i < len(name) && name[i] != '.' {
			continue
		}
		chunk := name[start:i]
		start = i + 1
		if len(chunk) == 0 {
			// only the run after a trailing dot may be empty
			if i == len(name) {
				break
			}
			return nil, fmt.Errorf("%w in %q", ErrEmptyLabel, name)
		}
		if len(chunk) > maxLabelLen {
			return nil, fmt.Errorf("%w in %q", ErrLabelTooLong, name)
		}
		buf = append(buf, byte(len(chunk)))
		buf = append(buf, chunk...)
	}
	return append(buf, 0), nil
}

// DecodeName is the inverse of EncodeName. The returned name has no trailing dot.
func DecodeName(b []byte) (string, error) {
	var parts []string
	for i := 0; i < len(b); {
		n := int(b[i])
		i++
		if n == 0 {
			if i != len(b) {
				return "", fmt.Errorf("%w: %d trailing bytes", ErrInvalidName, len(b)-i)
			}
			return strings.Join(parts, "."), nil
		}
		if i+n > len(b) {
			return "", fmt.Errorf("%w: label overruns buffer", ErrInvalidName)
		}
		parts = append(parts, string(b[i:i+n]))
		i += n
	}
	return "", fmt.Errorf("%w: missing terminator", ErrInvalidName)
}
