package announce

import (
	"strings"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeName(t *testing.T) {
	got, err := EncodeName("a.b.c")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 'a', 1, 'b', 1, 'c', 0}, got)

	got, err = EncodeName("box.local")
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 'b', 'o', 'x', 5, 'l', 'o', 'c', 'a', 'l', 0}, got)
}

func TestEncodeNameTrailingDot(t *testing.T) {
	withDot, err := EncodeName("host.")
	require.NoError(t, err)
	without, err := EncodeName("host")
	require.NoError(t, err)

	assert.Equal(t, []byte{4, 'h', 'o', 's', 't', 0}, withDot)
	assert.Equal(t, without, withDot)
}

func TestEncodeNameRoot(t *testing.T) {
	for _, name := range []string{"", "."} {
		got, err := EncodeName(name)
		require.NoError(t, err)
		assert.Equal(t, []byte{0}, got, "name %q", name)
	}
}

func TestEncodeNameEmptyLabel(t *testing.T) {
	for _, name := range []string{"a..b", ".a", "host..", ".."} {
		_, err := EncodeName(name)
		assert.ErrorIs(t, err, ErrEmptyLabel, "name %q", name)
	}
}

func TestEncodeNameLabelLength(t *testing.T) {
	longest := strings.Repeat("x", 255)
	got, err := EncodeName(longest + ".local")
	require.NoError(t, err)
	assert.Equal(t, byte(255), got[0])
	assert.Len(t, got, 1+255+1+5+1)

	_, err = EncodeName(strings.Repeat("x", 256) + ".local")
	assert.ErrorIs(t, err, ErrLabelTooLong)
}

func TestEncodeNameMatchesMiekg(t *testing.T) {
	names := []string{
		"a",
		"myprinter.local",
		"worker1.lan",
		"deep.sub.domain.example.local",
		"x-1.y_2.local",
	}
	for _, name := range names {
		got, err := EncodeName(name)
		require.NoError(t, err)

		buf := make([]byte, 256)
		off, err := dns.PackDomainName(dns.Fqdn(name), buf, 0, nil, false)
		require.NoError(t, err)
		assert.Equal(t, buf[:off], got, "name %q", name)

		unpacked, n, err := dns.UnpackDomainName(got, 0)
		require.NoError(t, err)
		assert.Equal(t, len(got), n)
		assert.Equal(t, dns.Fqdn(name), unpacked)
	}
}

func TestDecodeName(t *testing.T) {
	for _, name := range []string{"a.b.c", "box.local", "x"} {
		b, err := EncodeName(name)
		require.NoError(t, err)
		got, err := DecodeName(b)
		require.NoError(t, err)
		assert.Equal(t, name, got)
	}

	_, err := DecodeName([]byte{3, 'b', 'o'})
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = DecodeName([]byte{1, 'a'})
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = DecodeName([]byte{1, 'a', 0, 1})
	assert.ErrorIs(t, err, ErrInvalidName)
}
