package sse

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashcardexchange/flashcards/internal/client"
	domainerrors "github.com/flashcardexchange/flashcards/internal/errors"
	"github.com/flashcardexchange/flashcards/internal/render"
)

func startManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	t.Cleanup(func() {
		cancel()
		_ = m.Shutdown(context.Background())
	})
	return m
}

func receive(t *testing.T, s *Stream) Event {
	t.Helper()
	select {
	case e := <-s.EventChan:
		return e
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return Event{}
	}
}

func TestManager_RoutesByClient(t *testing.T) {
	m := startManager(t)

	a, err := m.Connect("cli-a")
	require.NoError(t, err)
	b, err := m.Connect("cli-b")
	require.NoError(t, err)
	assert.Equal(t, 2, m.StreamCount())

	NewPublisher(m, "cli-a").Notify(client.Notice{Code: domainerrors.CodeUnavailable, Message: "Failed to create deck"})

	e := receive(t, a)
	assert.Equal(t, EventNotice, e.Type)
	assert.Equal(t, "Failed to create deck", e.Data.(client.Notice).Message)

	select {
	case e := <-b.EventChan:
		t.Fatalf("unexpected event for other client: %s", e.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_BroadcastWithoutClientID(t *testing.T) {
	m := startManager(t)

	a, err := m.Connect("cli-a")
	require.NoError(t, err)
	b, err := m.Connect("cli-b")
	require.NoError(t, err)

	m.Emit(NewHeartbeatEvent())

	assert.Equal(t, EventHeartbeat, receive(t, a).Type)
	assert.Equal(t, EventHeartbeat, receive(t, b).Type)
}

func TestManager_DisconnectClosesStream(t *testing.T) {
	m := startManager(t)

	s, err := m.Connect("cli-a")
	require.NoError(t, err)
	m.Disconnect(s.ID)
	m.Disconnect(s.ID)

	_, ok := <-s.Done
	assert.False(t, ok)
	assert.Equal(t, 0, m.StreamCount())
}

func TestManager_EmitAfterShutdownIsDropped(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))

	assert.NotPanics(t, func() { m.Emit(NewHeartbeatEvent()) })
}

func TestPublisher_RegionPainted(t *testing.T) {
	m := startManager(t)
	s, err := m.Connect("cli-a")
	require.NoError(t, err)

	p := NewPublisher(m, "cli-a")
	p.Render(client.RenderEvent{
		Region: "public-decks",
		Gen:    7,
		HTML:   "<section></section>",
		Patch:  render.Patch{Added: []string{"deck/d1"}},
	})
	p.Search(client.SearchEvent{Query: "verb", Results: 1, Visible: true, Dimmed: true})

	e := receive(t, s)
	require.Equal(t, EventRegionPainted, e.Type)
	data := e.Data.(RegionPaintedData)
	assert.Equal(t, "public-decks", data.Region)
	assert.Equal(t, uint64(7), data.Gen)
	assert.Equal(t, []string{"deck/d1"}, data.Added)

	e = receive(t, s)
	require.Equal(t, EventSearchOverlay, e.Type)
	assert.True(t, e.Data.(client.SearchEvent).Dimmed)
}

func TestHandler_StreamsEvents(t *testing.T) {
	m := startManager(t)
	h := NewHandler(m, func(r *http.Request) (string, error) {
		if r.Header.Get("Authorization") != "Bearer ok" {
			return "", errors.New("no token")
		}
		return "cli-a", nil
	}, nil)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer ok")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: connected", lines.Text())

	require.Eventually(t, func() bool { return m.StreamCount() == 1 }, time.Second, 5*time.Millisecond)
	NewPublisher(m, "cli-a").Notify(client.Notice{Code: domainerrors.CodeUnavailable, Message: "boom"})

	var sawNotice bool
	for lines.Scan() {
		if lines.Text() == "event: notice" {
			require.True(t, lines.Scan())
			assert.True(t, strings.Contains(lines.Text(), `"boom"`))
			sawNotice = true
			break
		}
	}
	assert.True(t, sawNotice)
}
