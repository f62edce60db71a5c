package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestEstimateHub(t *testing.T) {
	t.Parallel()

	t.Run("streams updates to connected clients", func(t *testing.T) {
		t.Parallel()
		hub := newEstimateHub()
		srv := httptest.NewServer(http.HandlerFunc(hub.handleWS))
		defer srv.Close()

		conn := dialHub(t, srv)
		defer conn.Close()

		require.Eventually(t, func() bool { return hub.clientCount() == 1 },
			time.Second, time.Millisecond)

		hub.update(Estimate{Time: 1.5}, []byte(`{"time":1.5}`))

		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, `{"time":1.5}`, string(payload))
	})

	t.Run("updates during a client disconnect do not panic the hub", func(t *testing.T) {
		t.Parallel()
		hub := newEstimateHub()
		srv := httptest.NewServer(http.HandlerFunc(hub.handleWS))
		defer srv.Close()

		conn := dialHub(t, srv)
		require.Eventually(t, func() bool { return hub.clientCount() == 1 },
			time.Second, time.Millisecond)

		// Tear the connection down and keep publishing into the window
		// where the server side is still cleaning the client up.
		conn.Close()
		for i := 0; i < 200; i++ {
			hub.update(Estimate{Time: float64(i)}, []byte(`{}`))
		}

		assert.Eventually(t, func() bool { return hub.clientCount() == 0 },
			time.Second, time.Millisecond)
	})

	t.Run("slow clients skip frames instead of stalling the hub", func(t *testing.T) {
		t.Parallel()
		hub := newEstimateHub()
		srv := httptest.NewServer(http.HandlerFunc(hub.handleWS))
		defer srv.Close()

		conn := dialHub(t, srv)
		defer conn.Close()

		require.Eventually(t, func() bool { return hub.clientCount() == 1 },
			time.Second, time.Millisecond)

		// Far more frames than the per-client buffer holds; update must
		// never block on the unread connection.
		done := make(chan struct{})
		go func() {
			for i := 0; i < 1000; i++ {
				hub.update(Estimate{}, []byte(`{}`))
			}
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("hub update blocked on a slow client")
		}
	})
}
