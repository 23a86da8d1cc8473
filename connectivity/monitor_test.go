package connectivity

import (
	"context"
	"net/http/httptest"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsConnectedWithoutStart(t *testing.T) {
	m := NewMonitor(func() bool { return true }, time.Minute)
	assert.True(t, m.IsConnected(), "query must work without a running loop")

	m = NewMonitor(func() bool { return false }, time.Minute)
	assert.False(t, m.IsConnected())
}

func TestTransitionNotifiesListeners(t *testing.T) {
	var online atomic.Bool
	online.Store(true)

	m := NewMonitor(func() bool { return online.Load() }, 5*time.Millisecond)

	events := make(chan bool, 4)
	m.Subscribe(func(connected bool) { events <- connected })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	online.Store(false)
	select {
	case got := <-events:
		assert.False(t, got)
	case <-time.After(time.Second):
		t.Fatal("no offline notification")
	}
	assert.False(t, m.IsConnected())

	online.Store(true)
	select {
	case got := <-events:
		assert.True(t, got)
	case <-time.After(time.Second):
		t.Fatal("no online notification")
	}
	assert.True(t, m.IsConnected())
}

func TestNoNotificationWithoutTransition(t *testing.T) {
	m := NewMonitor(func() bool { return true }, 5*time.Millisecond)

	var fired atomic.Int32
	m.Subscribe(func(bool) { fired.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestDialProber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	probe := DialProber(srv.URL, time.Second)
	require.True(t, probe())

	srv.Close()
	assert.False(t, probe())
}

func TestDialProberBadURL(t *testing.T) {
	probe := DialProber("://not-a-url", time.Second)
	assert.False(t, probe())
}
