package properties

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"opmenu/internal/eventbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	m, err := NewManager(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestGetValue_ReturnsDefaultWhenUnset(t *testing.T) {
	m := newTestManager(t)
	assert.Equal(t, 42, m.GetValue("missing", 42))
	assert.Equal(t, "x", Get(m, "missing", "x"))
}

func TestGetValue_TypedByDefault(t *testing.T) {
	m := newTestManager(t)
	m.SetProperty("Audio.Volume", 7)
	m.SetProperty("Audio.Muted", true)
	m.SetProperty(KeyMachineLocation, "Floor 2")

	assert.Equal(t, 7, Get(m, "Audio.Volume", 0))
	assert.Equal(t, int64(7), Get(m, "Audio.Volume", int64(0)))
	assert.Equal(t, 7.0, Get(m, "Audio.Volume", 0.0))
	assert.True(t, Get(m, "Audio.Muted", false))
	assert.Equal(t, "Floor 2", Get(m, KeyMachineLocation, ""))
}

func TestGetValue_TypeMismatchReturnsDefault(t *testing.T) {
	m := newTestManager(t)
	m.SetProperty("k", "not a number")
	assert.Equal(t, 5, Get(m, "k", 5))

	m.SetProperty("f", 1.5)
	assert.Equal(t, 3, Get(m, "f", 3), "fractional value must not truncate into int")
}

func TestGetValue_NilDefaultDecodesGeneric(t *testing.T) {
	m := newTestManager(t)
	m.SetProperty("k", map[string]int{"a": 1})
	v := m.GetValue("k", nil)
	assert.Equal(t, map[string]any{"a": 1.0}, v)
}

func TestGet_NilGetter(t *testing.T) {
	assert.Equal(t, "d", Get[string](nil, "k", "d"))
}

func TestSetProperty_PublishesOnlyOnChange(t *testing.T) {
	bus := eventbus.New(nil)
	m := newTestManager(t, WithBus(bus))

	var keys []string
	eventbus.Subscribe(bus, t, func(e PropertyChangedEvent) { keys = append(keys, e.Key) })

	m.SetProperty("a", 1)
	m.SetProperty("a", 1)
	m.SetProperty("a", 2)
	m.SetProperty("b", "x")

	assert.Equal(t, []string{"a", "a", "b"}, keys)
}

type failingPersister struct{ saved map[string][]byte }

func (f *failingPersister) Load() (map[string][]byte, error) { return f.saved, nil }
func (f *failingPersister) Save(string, []byte) error         { return errors.New("disk full") }
func (f *failingPersister) Close() error                      { return nil }

func TestSet_PersistFailureStillUpdatesMemory(t *testing.T) {
	m := newTestManager(t, WithPersister(&failingPersister{}))
	err := m.Set("k", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, "v", Get(m, "k", ""))
}

// gatedPersister holds its first Save until release is closed.
type gatedPersister struct {
	mu      sync.Mutex
	saved   map[string][]byte
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (g *gatedPersister) Load() (map[string][]byte, error) { return nil, nil }
func (g *gatedPersister) Close() error                     { return nil }

func (g *gatedPersister) Save(key string, value []byte) error {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()
	if first {
		close(g.entered)
		<-g.release
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saved[key] = value
	return nil
}

func TestSet_ConcurrentWritesPersistInOrder(t *testing.T) {
	p := &gatedPersister{saved: map[string][]byte{}, entered: make(chan struct{}), release: make(chan struct{})}
	m := newTestManager(t, WithPersister(p))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.SetProperty(KeyAudioVolume, 10)
	}()
	<-p.entered
	go func() {
		defer wg.Done()
		m.SetProperty(KeyAudioVolume, 90)
	}()
	time.Sleep(20 * time.Millisecond)
	close(p.release)
	wg.Wait()

	assert.Equal(t, 90, Get(m, KeyAudioVolume, 0))
	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, "90", string(p.saved[KeyAudioVolume]))
}

func TestSQLiteStore_RoundTripAcrossManagers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "props.db")

	store, err := OpenSQLite(path)
	require.NoError(t, err)
	m, err := NewManager(WithPersister(store))
	require.NoError(t, err)
	require.NoError(t, m.Set(KeyMachineAssetNumber, 1234))
	require.NoError(t, m.Set(KeyMachineAssetNumber, 5678))
	require.NoError(t, m.Set(KeyNetworkDHCP, false))
	require.NoError(t, m.Close())

	store, err = OpenSQLite(path)
	require.NoError(t, err)
	m2, err := NewManager(WithPersister(store))
	require.NoError(t, err)
	defer m2.Close()

	assert.Equal(t, 5678, Get(m2, KeyMachineAssetNumber, 0))
	assert.False(t, Get(m2, KeyNetworkDHCP, true))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDefaults_PersistedValuesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defaults.yaml")
	writeFile(t, path, "Audio.Volume: 5\nMachine.Location: Lobby\n")

	bus := eventbus.New(nil)
	m := newTestManager(t, WithBus(bus))
	m.SetProperty("Audio.Volume", 9)

	var keys []string
	eventbus.Subscribe(bus, t, func(e PropertyChangedEvent) { keys = append(keys, e.Key) })

	changed, err := m.LoadDefaults(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Machine.Location"}, changed)
	assert.Equal(t, []string{"Machine.Location"}, keys)

	assert.Equal(t, 9, Get(m, "Audio.Volume", 0))
	assert.Equal(t, "Lobby", Get(m, "Machine.Location", ""))
	assert.True(t, m.Has("Machine.Location"))
}

func TestLoadDefaults_Errors(t *testing.T) {
	m := newTestManager(t)
	_, err := m.LoadDefaults(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, bad, "a: [unterminated\n")
	_, err = m.LoadDefaults(bad)
	assert.Error(t, err)
}

func TestDefaultsWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "defaults.yaml")
	writeFile(t, path, "Machine.Location: Lobby\n")

	m := newTestManager(t)
	_, err := m.LoadDefaults(path)
	require.NoError(t, err)

	w, err := NewDefaultsWatcher(m, path, nil)
	require.NoError(t, err)
	w.debounceDur = 20 * time.Millisecond
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	writeFile(t, path, "Machine.Location: Terrace\n")

	assert.Eventually(t, func() bool {
		return Get(m, "Machine.Location", "") == "Terrace"
	}, 3*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, w.Reloads(), 1)
}

func TestDefaultsWatcher_StopWithoutStart(t *testing.T) {
	m := newTestManager(t)
	w, err := NewDefaultsWatcher(m, filepath.Join(t.TempDir(), "d.yaml"), nil)
	require.NoError(t, err)
	w.Stop()
}

func TestWatchDefaults_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "defaults.yaml")
	writeFile(t, path, "Audio.Volume: 40\n")

	m := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	w, err := m.WatchDefaults(ctx, path, nil)
	require.NoError(t, err)
	cancel()
	w.Stop()

	_, err = m.WatchDefaults(context.Background(), filepath.Join(dir, "missing", "d.yaml"), nil)
	assert.Error(t, err)
}
