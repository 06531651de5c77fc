package limitless

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/limitbot/internal/domain"
)

// feedServer upgrades every request and hands the connection to serve,
// counting connections as they arrive.
type feedServer struct {
	*httptest.Server
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns int
}

func newFeedServer(t *testing.T, serve func(n int, conn *websocket.Conn)) *feedServer {
	t.Helper()
	fs := &feedServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		conn, err := fs.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		fs.mu.Lock()
		fs.conns++
		n := fs.conns
		fs.mu.Unlock()
		serve(n, conn)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *feedServer) wsURL() string {
	return "ws" + strings.TrimPrefix(fs.URL, "http")
}

func TestFeedDispatchesBookSnapshots(t *testing.T) {
	srv := newFeedServer(t, func(n int, conn *websocket.Conn) {
		defer conn.Close()
		// Wait for the subscribe command, then push one snapshot.
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		msg := `{"channel":"book","tokenId":"111","bids":[{"price":0.48,"size":100}],"asks":[{"price":0.52,"size":80}],"timestamp":1700000000000}`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			return
		}
		// Hold the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	client := NewWSClient(srv.wsURL())
	books := make(chan domain.OrderbookSnapshot, 1)
	client.OnBook(func(s domain.OrderbookSnapshot) { books <- s })

	ctx := context.Background()
	require.NoError(t, client.Connect(ctx))
	defer client.Close()
	require.NoError(t, client.SubscribeBook(ctx, []string{"111"}))

	select {
	case snap := <-books:
		assert.Equal(t, "111", snap.TokenID)
		assert.Equal(t, 0.48, snap.BestBid)
		assert.Equal(t, 0.52, snap.BestAsk)
	case <-time.After(5 * time.Second):
		t.Fatal("no book snapshot received")
	}
}

func TestFeedSurvivesDisconnect(t *testing.T) {
	resubs := make(chan wsCommand, 1)
	srv := newFeedServer(t, func(n int, conn *websocket.Conn) {
		defer conn.Close()
		if n == 1 {
			// Swallow the subscribe command and drop the connection.
			_, _, _ = conn.ReadMessage()
			return
		}
		// Replacement connection: the client must restore its
		// subscription here, and messages must reach the handlers.
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd wsCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			return
		}
		resubs <- cmd

		msg := `{"channel":"prices","tokenId":"111","side":"BUY","price":0.47,"size":25,"timestamp":1700000000000}`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	client := NewWSClient(srv.wsURL())
	changes := make(chan domain.PriceChange, 1)
	client.OnPriceChange(func(c domain.PriceChange) { changes <- c })

	ctx := context.Background()
	require.NoError(t, client.Connect(ctx))
	defer client.Close()
	require.NoError(t, client.SubscribePrices(ctx, []string{"111"}))

	// The first connection dies immediately; the client backs off, redials,
	// and restores the prices subscription on the new connection.
	select {
	case cmd := <-resubs:
		assert.Equal(t, "subscribe", cmd.Type)
		assert.Equal(t, "prices", cmd.Channel)
		assert.Equal(t, []string{"111"}, cmd.Tokens)
	case <-time.After(15 * time.Second):
		t.Fatal("subscription was not restored after reconnect")
	}

	// The reconnected connection must stay up long enough to deliver; a
	// stale read loop closing it would surface here as a missing event.
	select {
	case change := <-changes:
		assert.Equal(t, "111", change.TokenID)
		assert.Equal(t, 0.47, change.Price)
	case <-time.After(5 * time.Second):
		t.Fatal("no price change received on the reconnected feed")
	}
}
