package validate

import (
	"crypto/sha1"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPv4_AllOctets(t *testing.T) {
	for n := 0; n <= 255; n++ {
		addr := fmt.Sprintf("10.%d.0.%d", n, n)
		assert.NoError(t, IPv4(addr), addr)
	}
	for _, n := range []int{256, 300, 999, 1000} {
		addr := fmt.Sprintf("10.0.0.%d", n)
		assert.ErrorIs(t, IPv4(addr), ErrInvalidIPv4, addr)
	}
}

func TestIPv4_Rejects(t *testing.T) {
	bad := []string{
		"1.2.3",
		"1.2.3.4.5",
		"01.2.3.4",
		"1.2.3.004",
		"1.2.3.-4",
		" 1.2.3.4",
		"1.2.3.4 ",
		"a.b.c.d",
		"1..2.3",
		"1.2.3.4.",
		"::1",
	}
	for _, s := range bad {
		assert.ErrorIs(t, IPv4(s), ErrInvalidIPv4, "%q", s)
	}
	assert.ErrorIs(t, IPv4(""), ErrEmpty)
}

func TestSubnetMask(t *testing.T) {
	for bits := 1; bits <= 32; bits++ {
		m := ^uint32(0) << (32 - bits)
		s := fmt.Sprintf("%d.%d.%d.%d", m>>24, m>>16&0xff, m>>8&0xff, m&0xff)
		assert.NoError(t, SubnetMask(s), "/%d %s", bits, s)
	}
	for _, s := range []string{"0.0.0.0", "255.0.255.0", "255.255.255.1", "254.255.255.0", "255.255.256.0"} {
		assert.ErrorIs(t, SubnetMask(s), ErrInvalidMask, s)
	}
	assert.ErrorIs(t, SubnetMask(""), ErrEmpty)
}

func TestGateway(t *testing.T) {
	assert.NoError(t, Gateway("192.168.1.20", "255.255.255.0", "192.168.1.1"))
	assert.ErrorIs(t, Gateway("192.168.1.20", "255.255.255.0", "192.168.2.1"), ErrGateway)
	assert.NoError(t, Gateway("192.168.1.20", "255.255.0.0", "192.168.2.1"))
	assert.ErrorIs(t, Gateway("192.168.1.20", "255.255.255.0", "192.168.1"), ErrInvalidIPv4)
}

func TestHMACKey(t *testing.T) {
	alg := sha256.New()
	good := strings.Repeat("aF", 32)
	assert.NoError(t, HMACKey(alg, good))

	err := HMACKey(alg, good[:63])
	require.ErrorIs(t, err, ErrLength)
	fe, ok := AsFieldError(err)
	require.True(t, ok)
	assert.Equal(t, KeyHexLength, fe.Key)
	assert.Equal(t, []any{64}, fe.Args)

	assert.ErrorIs(t, HMACKey(alg, good+"0"), ErrLength)
	assert.ErrorIs(t, HMACKey(alg, strings.Repeat("g", 64)), ErrNotHex)
	assert.ErrorIs(t, HMACKey(alg, ""), ErrEmpty)

	assert.NoError(t, HMACKey(sha1.New(), strings.Repeat("0", 40)))
	assert.ErrorIs(t, HMACKey(sha1.New(), strings.Repeat("0", 64)), ErrLength)
}

func TestIntRange(t *testing.T) {
	n, err := IntRange(" 42 ", 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = IntRange("101", 0, 100)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = IntRange("x", 0, 100)
	assert.ErrorIs(t, err, ErrNotNumeric)
	_, err = IntRange("", 0, 100)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestHost(t *testing.T) {
	for _, s := range []string{"10.0.0.1", "localhost", "gw.casino.local", "a-b.example"} {
		assert.NoError(t, Host(s), s)
	}
	for _, s := range []string{"-bad.example", "bad-.example", "256.1.1.1", "a b", "x;rm -rf", "host..local"} {
		assert.ErrorIs(t, Host(s), ErrHostname, s)
	}
}

func TestFieldError_Unwrap(t *testing.T) {
	err := Required("  ")
	assert.True(t, errors.Is(err, ErrEmpty))
	fe, ok := AsFieldError(err)
	require.True(t, ok)
	assert.Equal(t, KeyRequired, fe.Key)
	assert.Equal(t, "value required", err.Error())
}

func TestMaxLength(t *testing.T) {
	assert.NoError(t, MaxLength("Bank 12", 8))
	assert.NoError(t, MaxLength("éééé", 4))
	err := MaxLength("Bank 1234", 8)
	assert.ErrorIs(t, err, ErrTooLong)
	fe, _ := AsFieldError(err)
	assert.Equal(t, []any{8}, fe.Args)
}
