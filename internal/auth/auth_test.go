package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"opmenu/internal/eventbus"
	"opmenu/internal/progress"
	"opmenu/internal/validate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeComponents(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"game.bin":      "game payload",
		"os/kernel.img": "kernel",
		"os/.hidden":    "skip me",
		".git/HEAD":     "skip dir",
		"paytable.yaml": "rtp: 92.5",
	}
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return dir
}

type recorder struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recorder) Emit(ev progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func TestComponents_SortedSkipsHidden(t *testing.T) {
	s := NewService(writeComponents(t))
	names, err := s.Components()
	require.NoError(t, err)
	assert.Equal(t, []string{"game.bin", "os/kernel.img", "paytable.yaml"}, names)
}

func TestCompute_Plain(t *testing.T) {
	bus := eventbus.New(nil)
	var hashed []ComponentHashedEvent
	var complete []HashCompleteEvent
	eventbus.Subscribe(bus, t, func(e ComponentHashedEvent) { hashed = append(hashed, e) })
	eventbus.Subscribe(bus, t, func(e HashCompleteEvent) { complete = append(complete, e) })
	rec := &recorder{}

	s := NewService(writeComponents(t), WithBus(bus), WithEmitter(rec))
	res, err := s.Compute(context.Background(), Request{Algorithm: SHA256})
	require.NoError(t, err)

	require.Len(t, res.Components, 3)
	want := sha256.Sum256([]byte("game payload"))
	assert.Equal(t, want[:], res.Components[0].Sum)
	assert.Equal(t, int64(len("game payload")), res.Components[0].Size)
	assert.False(t, res.Keyed)

	combined := sha256.New()
	for _, c := range res.Components {
		combined.Write(c.Sum)
	}
	assert.Equal(t, combined.Sum(nil), res.Combined)

	assert.Len(t, hashed, 3)
	require.Len(t, complete, 1)
	assert.Equal(t, FormatHash(res.Combined), complete[0].Combined)
	assert.Empty(t, complete[0].Err)

	require.Len(t, rec.events, 4)
	last := rec.events[3]
	assert.Equal(t, progress.StatusDone, last.Status)
	assert.Equal(t, 100, last.Percent())
}

func TestCompute_HMAC(t *testing.T) {
	seed := strings.Repeat("0f", 32)
	s := NewService(writeComponents(t))
	res, err := s.Compute(context.Background(), Request{Algorithm: SHA256, Seed: seed})
	require.NoError(t, err)
	assert.True(t, res.Keyed)

	key, _ := hex.DecodeString(seed)
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("game payload"))
	assert.Equal(t, mac.Sum(nil), res.Components[0].Sum)
}

func TestCompute_RejectsBadSeed(t *testing.T) {
	rec := &recorder{}
	s := NewService(writeComponents(t), WithEmitter(rec))
	_, err := s.Compute(context.Background(), Request{Algorithm: SHA1, Seed: "abc"})
	assert.ErrorIs(t, err, validate.ErrLength)
	require.NotEmpty(t, rec.events)
	assert.Equal(t, progress.StatusError, rec.events[len(rec.events)-1].Status)
}

func TestCompute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &recorder{}
	s := NewService(writeComponents(t), WithEmitter(rec))
	res, err := s.Compute(ctx, Request{Algorithm: SHA512})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
	assert.Equal(t, progress.StatusAborted, rec.events[len(rec.events)-1].Status)
}

func TestCompute_MissingDir(t *testing.T) {
	s := NewService(filepath.Join(t.TempDir(), "absent"))
	_, err := s.Compute(context.Background(), Request{Algorithm: SHA256})
	assert.Error(t, err)
}

func TestAlgorithms_Sizes(t *testing.T) {
	sizes := map[Algorithm]int{SHA1: 20, SHA256: 32, SHA384: 48, SHA512: 64, SHA3_256: 32}
	for _, a := range Algorithms() {
		assert.Equal(t, sizes[a], a.Size(), a.String())
	}
}

func TestAlgorithm_UnknownValue(t *testing.T) {
	bogus := Algorithm(42)
	assert.False(t, bogus.Valid())
	assert.PanicsWithValue(t, "auth: unknown hash algorithm 42", func() { bogus.New() })

	s := NewService(writeComponents(t))
	_, err := s.Compute(context.Background(), Request{Algorithm: bogus})
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)

	_, err = DeriveSeed(bogus, []byte("secret"), nil)
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestParseAlgorithm(t *testing.T) {
	for in, want := range map[string]Algorithm{
		"sha1": SHA1, "SHA-256": SHA256, "sha384": SHA384, "Sha512": SHA512, "sha3_256": SHA3_256,
	} {
		got, err := ParseAlgorithm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseAlgorithm("md5")
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestFormatHash(t *testing.T) {
	assert.Equal(t, "ABCD EF01", FormatHash([]byte{0xab, 0xcd, 0xef, 0x01}))
	assert.Equal(t, "ABCD EF", FormatHash([]byte{0xab, 0xcd, 0xef}))
	assert.Equal(t, "", FormatHash(nil))
}

func TestDeriveSeed(t *testing.T) {
	for _, a := range Algorithms() {
		seed, err := DeriveSeed(a, []byte("cabinet-secret"), []byte("serial-1234"))
		require.NoError(t, err)
		assert.NoError(t, validate.HMACKey(a, seed), a.String())

		again, err := DeriveSeed(a, []byte("cabinet-secret"), []byte("serial-1234"))
		require.NoError(t, err)
		assert.Equal(t, seed, again)
	}
	other, _ := DeriveSeed(SHA256, []byte("cabinet-secret"), []byte("serial-9999"))
	first, _ := DeriveSeed(SHA256, []byte("cabinet-secret"), []byte("serial-1234"))
	assert.NotEqual(t, first, other)

	_, err := DeriveSeed(SHA256, nil, nil)
	assert.Error(t, err)
}
