package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/harrylevesque/forgaile/internal/background"
	"github.com/harrylevesque/forgaile/internal/crypto"
	"github.com/harrylevesque/forgaile/internal/files"
	"github.com/harrylevesque/forgaile/internal/models"
	"github.com/harrylevesque/forgaile/internal/notify"
	"github.com/harrylevesque/forgaile/internal/sequencer"
	"github.com/harrylevesque/forgaile/internal/session"
)

type stubNotifier struct {
	err   error
	calls atomic.Int32
}

func (s *stubNotifier) Notify(context.Context) error {
	s.calls.Add(1)
	return s.err
}

type testServer struct {
	*httptest.Server
	client *http.Client
	hub    *session.Hub
	acks   files.AckStore
	signer *crypto.Signer
}

func newTestServer(t *testing.T, sc *sequencer.Script, n notify.Notifier) *testServer {
	t.Helper()
	log := zaptest.NewLogger(t)
	acks := files.NewMemoryAckStore()
	var seqNotifier sequencer.Notifier
	if n != nil {
		seqNotifier = n
	}
	hub, err := session.NewHub(session.Options{Script: sc, Notifier: seqNotifier, Acks: acks, Logger: log})
	require.NoError(t, err)

	master, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer, err := crypto.NewSigner(master, "visitor-cookie")
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(Deps{
		Hub:        hub,
		Notifier:   n,
		Acks:       acks,
		Signer:     signer,
		Background: background.DefaultConfig(),
		Logger:     log,
	}))
	t.Cleanup(func() {
		srv.Close()
		hub.Close()
	})
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testServer{Server: srv, client: &http.Client{Jar: jar}, hub: hub, acks: acks, signer: signer}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func (ts *testServer) createSession(t *testing.T) createSessionResponse {
	t.Helper()
	resp, body := ts.do(t, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	var out createSessionResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func (ts *testServer) event(t *testing.T, id, body string) (int, models.Snapshot) {
	t.Helper()
	resp, data := ts.do(t, http.MethodPost, "/api/sessions/"+id+"/events", body)
	var snap models.Snapshot
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.Unmarshal([]byte(data), &snap))
	}
	return resp.StatusCode, snap
}

func fastScript() *sequencer.Script {
	sc := sequencer.DefaultScript()
	sc.Timing = sequencer.Timing{}
	sc.Showcase = sequencer.Showcase{}
	return sc
}

func TestHealthAndPage(t *testing.T) {
	ts := newTestServer(t, sequencer.DefaultScript(), nil)

	resp, body := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK\n", body)

	for _, path := range []string{"/", "/index.html"} {
		resp, body = ts.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, body, "<title>For Gaile</title>", path)
	}

	resp, body = ts.do(t, http.MethodGet, "/static/app.js", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "EventSource")

	resp, _ = ts.do(t, http.MethodGet, "/static/missing.js", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNotifyEndpoint(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"delivered", nil, http.StatusOK, `{"ok":true}`},
		{"missing config", notify.ErrMissingConfig, http.StatusInternalServerError, `{"error":"Missing Telegram config"}`},
		{"retries exhausted", fmt.Errorf("%w: status 500", notify.ErrDeliveryFailed), http.StatusBadGateway, `{"error":"Failed after retries"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := &stubNotifier{err: tc.err}
			ts := newTestServer(t, sequencer.DefaultScript(), n)
			resp, body := ts.do(t, http.MethodPost, "/api/notify", "")
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.JSONEq(t, tc.body, body)
			assert.EqualValues(t, 1, n.calls.Load())
		})
	}
}

func TestNotifyMissingConfigMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	bot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer bot.Close()

	tg := notify.NewTelegram(notify.TelegramConfig{APIBase: bot.URL}, bot.Client(), nil)
	ts := newTestServer(t, sequencer.DefaultScript(), tg)
	resp, body := ts.do(t, http.MethodPost, "/api/notify", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Missing Telegram config"}`, body)
	assert.Zero(t, calls.Load())
}

func TestNotifyWithoutNotifier(t *testing.T) {
	ts := newTestServer(t, sequencer.DefaultScript(), nil)
	resp, body := ts.do(t, http.MethodPost, "/api/notify", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Missing Telegram config"}`, body)
}

func TestBackgroundConfig(t *testing.T) {
	ts := newTestServer(t, sequencer.DefaultScript(), nil)
	resp, body := ts.do(t, http.MethodGet, "/api/background", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cfg background.Config
	require.NoError(t, json.Unmarshal([]byte(body), &cfg))
	assert.Equal(t, background.DefaultConfig(), cfg)
	assert.Contains(t, body, `"skyColor":"#e8ddef"`)
}

func TestSessionEvents(t *testing.T) {
	ts := newTestServer(t, sequencer.DefaultScript(), nil)
	created := ts.createSession(t)
	assert.Equal(t, "gate", created.Snapshot.Phase)

	status, snap := ts.event(t, created.ID, `{"type":"start","sound":true}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "input", snap.Phase)
	assert.True(t, snap.Sound)

	status, snap = ts.event(t, created.ID, `{"type":"key","char":"g"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "g", snap.Slots[0].Char)
	assert.Equal(t, 1, snap.Focus)

	status, snap = ts.event(t, created.ID, `{"type":"paste","text":"xyz"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "z", snap.Slots[3].Char)

	status, _ = ts.event(t, created.ID, `{"type":"dance"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = ts.event(t, created.ID, `{"type":"key"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = ts.event(t, created.ID, `not json`)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = ts.event(t, "no-such-session", `{"type":"backspace"}`)
	assert.Equal(t, http.StatusNotFound, status)

	resp, _ := ts.do(t, http.MethodGet, "/api/sessions/"+created.ID, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionsAreScopedToVisitor(t *testing.T) {
	ts := newTestServer(t, sequencer.DefaultScript(), nil)
	created := ts.createSession(t)

	// A different browser has no cookie and cannot drive the session.
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/sessions/"+created.ID+"/events",
		strings.NewReader(`{"type":"start"}`))
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: visitorCookie, Value: "forged.value"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Set-Cookie"), "a forged cookie is replaced")
}

func TestVisitorCookieIsSignedToken(t *testing.T) {
	ts := newTestServer(t, sequencer.DefaultScript(), nil)
	resp, _ := ts.do(t, http.MethodGet, "/api/ack", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var value string
	for _, c := range resp.Cookies() {
		if c.Name == visitorCookie {
			value = c.Value
		}
	}
	require.NotEmpty(t, value)
	assert.Equal(t, 2, strings.Count(value, "."), "compact JWS")

	id, err := ts.signer.Verify(value)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)

	// The cookie is reused on the next request.
	resp, _ = ts.do(t, http.MethodGet, "/api/ack", "")
	assert.Empty(t, resp.Cookies())
}

func TestDeleteSessionUnmounts(t *testing.T) {
	ts := newTestServer(t, sequencer.DefaultScript(), nil)
	created := ts.createSession(t)
	ts.event(t, created.ID, `{"type":"start"}`)

	resp, _ := ts.do(t, http.MethodDelete, "/api/sessions/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Zero(t, ts.hub.Len())

	status, _ := ts.event(t, created.ID, `{"type":"backspace"}`)
	assert.Equal(t, http.StatusNotFound, status)
}

// readEvent returns the next SSE event name and payload, skipping comments.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "" && name != "":
			return name, data
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestStreamSendsStatesAndCues(t *testing.T) {
	ts := newTestServer(t, sequencer.DefaultScript(), nil)
	created := ts.createSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/sessions/"+created.ID+"/stream", nil)
	require.NoError(t, err)
	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	name, data := readEvent(t, reader)
	assert.Equal(t, "state", name)
	assert.Contains(t, data, `"phase":"gate"`)

	ts.event(t, created.ID, `{"type":"start","sound":true}`)
	ts.event(t, created.ID, `{"type":"key","char":"q"}`)

	seenCue := false
	for i := 0; i < 10 && !seenCue; i++ {
		name, data = readEvent(t, reader)
		if name == "cue" {
			assert.Equal(t, `"keypress"`, data)
			seenCue = true
		}
	}
	assert.True(t, seenCue)
}

func TestStreamEndsWhenSessionRemoved(t *testing.T) {
	ts := newTestServer(t, sequencer.DefaultScript(), nil)
	created := ts.createSession(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/sessions/"+created.ID+"/stream", nil)
	require.NoError(t, err)
	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	reader := bufio.NewReader(resp.Body)
	readEvent(t, reader)

	require.NoError(t, ts.hub.Remove(created.ID))
	_, err = io.ReadAll(reader)
	assert.NoError(t, err)
}

func TestRespondAndResetAck(t *testing.T) {
	n := &stubNotifier{}
	ts := newTestServer(t, fastScript(), n)

	resp, body := ts.do(t, http.MethodGet, "/api/ack", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"acknowledged":false}`, body)

	created := ts.createSession(t)
	ts.event(t, created.ID, `{"type":"start"}`)
	ts.event(t, created.ID, `{"type":"paste","text":"gaile"}`)
	require.Eventually(t, func() bool {
		resp, body := ts.do(t, http.MethodGet, "/api/sessions/"+created.ID, "")
		return resp.StatusCode == http.StatusOK && strings.Contains(body, `"phase":"done"`)
	}, 5*time.Second, 10*time.Millisecond)

	status, snap := ts.event(t, created.ID, `{"type":"respond"}`)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, snap.Acknowledged)
	assert.False(t, snap.CanRespond)

	_, body = ts.do(t, http.MethodGet, "/api/ack", "")
	assert.JSONEq(t, `{"acknowledged":true}`, body)

	// A fresh session for the same visitor starts acknowledged.
	assert.True(t, ts.createSession(t).Snapshot.Acknowledged)

	resp, _ = ts.do(t, http.MethodDelete, "/api/ack", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, body = ts.do(t, http.MethodGet, "/api/ack", "")
	assert.JSONEq(t, `{"acknowledged":false}`, body)

	require.Eventually(t, func() bool { return n.calls.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestEventRequestMapping(t *testing.T) {
	ev, err := EventRequest{Type: "key", Char: "é"}.Event()
	require.NoError(t, err)
	assert.Equal(t, sequencer.Key{Char: 'é'}, ev)

	ev, err = EventRequest{Type: "focus", Slot: 3}.Event()
	require.NoError(t, err)
	assert.Equal(t, sequencer.Focus{Slot: 3}, ev)

	_, err = EventRequest{Type: ""}.Event()
	assert.Error(t, err)
	assert.False(t, errors.Is(err, session.ErrNotFound))
}
