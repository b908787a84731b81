package ingress

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"opmenu/internal/eventbus"
	"opmenu/internal/hardware"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_HandleEvent(t *testing.T) {
	bus := eventbus.New(nil)
	var got []hardware.DoorOpenedEvent
	eventbus.Subscribe(bus, t, func(e hardware.DoorOpenedEvent) { got = append(got, e) })
	s := NewServer(bus, nil, "", nil)

	t.Run("POST valid event", func(t *testing.T) {
		w := post(t, s.Handler(), "/events/door.opened", `{"DoorID": 2, "Name": "Logic Door"}`)
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

		require.Len(t, got, 1)
		assert.Equal(t, 2, got[0].DoorID)
		assert.Equal(t, "Logic Door", got[0].Name)
		assert.NotEqual(t, uuid.Nil, got[0].ID)
		assert.False(t, got[0].At.IsZero())

		var resp acceptedResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, got[0].ID.String(), resp.ID)
		assert.Equal(t, int64(1), s.Published())
	})

	t.Run("POST keeps sender id", func(t *testing.T) {
		id := uuid.New()
		body := fmt.Sprintf(`{"id": %q, "DoorID": 3}`, id)
		w := post(t, s.Handler(), "/events/door.opened", body)
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, id, got[len(got)-1].ID)
	})

	t.Run("POST unknown kind", func(t *testing.T) {
		w := post(t, s.Handler(), "/events/door.exploded", `{}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("POST invalid JSON", func(t *testing.T) {
		w := post(t, s.Handler(), "/events/door.opened", "invalid json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("POST unknown field", func(t *testing.T) {
		w := post(t, s.Handler(), "/events/door.opened", `{"Door": 1}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("GET event returns 405", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/events/door.opened", nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	assert.Len(t, got, 2)
}

func TestServer_Health(t *testing.T) {
	s := NewServer(eventbus.New(nil), nil, "", nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","published":0}`, w.Body.String())
}

func TestServer_Kinds(t *testing.T) {
	s := NewServer(eventbus.New(nil), nil, "", nil)
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	var body map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["kinds"], "coin.in")
	assert.Len(t, body["kinds"], 13)
}

func TestServer_StartStop(t *testing.T) {
	bus := eventbus.New(nil)
	coins := make(chan hardware.CoinInEvent, 1)
	eventbus.Subscribe(bus, t, func(e hardware.CoinInEvent) { coins <- e })

	s := NewServer(bus, nil, "127.0.0.1:0", nil)
	require.NoError(t, s.Start())
	assert.Error(t, s.Start())

	url := "http://" + s.Addr() + "/events/coin.in"
	resp, err := http.Post(url, "application/json", strings.NewReader(`{"ValueCents": 25}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, int64(25), (<-coins).ValueCents)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	http.DefaultClient.CloseIdleConnections()
}

func TestServer_StopWithoutStart(t *testing.T) {
	s := NewServer(eventbus.New(nil), nil, "", nil)
	assert.NoError(t, s.Stop(context.Background()))
}

func TestRegistry_Decode(t *testing.T) {
	r := DefaultRegistry()
	ev, err := r.Decode("reel.stopped", strings.NewReader(`{"ReelID": 3, "Step": 104}`))
	require.NoError(t, err)
	stopped, ok := ev.(hardware.ReelStoppedEvent)
	require.True(t, ok)
	assert.Equal(t, 3, stopped.ReelID)

	_, err = r.Decode("nope", strings.NewReader(`{}`))
	assert.ErrorIs(t, err, ErrUnknownKind)
}
