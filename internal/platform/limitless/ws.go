package limitless

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quantfold/limitbot/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// BookHandler is called for every full orderbook snapshot on the "book" channel.
type BookHandler func(domain.OrderbookSnapshot)

// PriceChangeHandler is called for every incremental level update on the
// "prices" channel.
type PriceChangeHandler func(domain.PriceChange)

// OrderUpdateHandler is called for every order lifecycle event on the
// "orders" channel.
type OrderUpdateHandler func(domain.OrderUpdate)

// WSClient is the client for the Limitless realtime feed. It manages the
// connection lifecycle, subscriptions, and dispatches messages to registered
// handlers.
type WSClient struct {
	wsURL string
	conn  *websocket.Conn

	mu     sync.RWMutex
	closed bool

	// Subscriptions to restore on reconnect.
	subscriptions []wsCommand

	bookHandlers  []BookHandler
	priceHandlers []PriceChangeHandler
	orderHandlers []OrderUpdateHandler
	handlerMu     sync.RWMutex

	// done is closed when the client is shut down.
	done chan struct{}
}

// NewWSClient creates a feed client for the given WebSocket URL, e.g.
// "wss://ws.limitless.exchange/feed".
func NewWSClient(wsURL string) *WSClient {
	return &WSClient{
		wsURL: wsURL,
		done:  make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and starts the read and
// keep-alive loops. Any prior subscriptions are restored, so callers only
// need Connect after a manual Close.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("limitless/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("limitless/ws: connect: %w", err)
	}

	w.conn = conn

	// Pong handler for keep-alive. Bound to this connection so a stale
	// loop never touches a replacement connection's deadlines.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.readLoop(conn)
	go w.pingLoop(conn)

	// Restore any previous subscriptions after reconnect.
	for _, cmd := range w.subscriptions {
		if err := w.sendCommand(cmd); err != nil {
			return fmt.Errorf("limitless/ws: restore subscription: %w", err)
		}
	}

	return nil
}

// SubscribeBook subscribes to orderbook snapshots for the given token IDs.
func (w *WSClient) SubscribeBook(ctx context.Context, tokenIDs []string) error {
	return w.subscribe(wsCommand{Type: "subscribe", Channel: "book", Tokens: tokenIDs})
}

// SubscribePrices subscribes to incremental price updates for the given
// token IDs.
func (w *WSClient) SubscribePrices(ctx context.Context, tokenIDs []string) error {
	return w.subscribe(wsCommand{Type: "subscribe", Channel: "prices", Tokens: tokenIDs})
}

// SubscribeOrders subscribes to order lifecycle events for the account's
// orders in the given markets.
func (w *WSClient) SubscribeOrders(ctx context.Context, marketSlugs []string) error {
	return w.subscribe(wsCommand{Type: "subscribe", Channel: "orders", Markets: marketSlugs})
}

// Unsubscribe removes the given token IDs from the channel's subscription.
func (w *WSClient) Unsubscribe(ctx context.Context, channel string, tokenIDs []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("limitless/ws: not connected")
	}

	cmd := wsCommand{Type: "unsubscribe", Channel: channel, Tokens: tokenIDs}
	if err := w.sendCommand(cmd); err != nil {
		return fmt.Errorf("limitless/ws: unsubscribe from %s: %w", channel, err)
	}

	// Remove the tokens from the tracked subscription for this channel.
	tokenSet := make(map[string]struct{}, len(tokenIDs))
	for _, t := range tokenIDs {
		tokenSet[t] = struct{}{}
	}

	filtered := w.subscriptions[:0]
	for _, sub := range w.subscriptions {
		if sub.Channel == channel {
			remaining := make([]string, 0, len(sub.Tokens))
			for _, t := range sub.Tokens {
				if _, found := tokenSet[t]; !found {
					remaining = append(remaining, t)
				}
			}
			if len(remaining) == 0 && len(sub.Markets) == 0 {
				continue
			}
			sub.Tokens = remaining
		}
		filtered = append(filtered, sub)
	}
	w.subscriptions = filtered

	return nil
}

// Close shuts down the WebSocket connection and stops the read loop.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}

	return nil
}

// OnBook registers a handler for orderbook snapshots.
func (w *WSClient) OnBook(handler BookHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.bookHandlers = append(w.bookHandlers, handler)
}

// OnPriceChange registers a handler for incremental price updates.
func (w *WSClient) OnPriceChange(handler PriceChangeHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.priceHandlers = append(w.priceHandlers, handler)
}

// OnOrderUpdate registers a handler for order lifecycle events.
func (w *WSClient) OnOrderUpdate(handler OrderUpdateHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.orderHandlers = append(w.orderHandlers, handler)
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

func (w *WSClient) subscribe(cmd wsCommand) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("limitless/ws: not connected")
	}

	if err := w.sendCommand(cmd); err != nil {
		return fmt.Errorf("limitless/ws: subscribe to %s: %w", cmd.Channel, err)
	}

	// Track subscription for reconnection.
	w.subscriptions = append(w.subscriptions, cmd)
	return nil
}

// sendCommand sends a JSON command to the WebSocket. Caller must hold w.mu.
func (w *WSClient) sendCommand(cmd wsCommand) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop continuously reads messages from one connection and dispatches
// them to the registered handlers. It runs in its own goroutine. On
// disconnect, it attempts to reconnect with exponential backoff.
//
// The loop owns exactly the connection it was started with: the deferred
// close must not touch w.conn, which reconnect() will have replaced with the
// new connection by the time this goroutine unwinds.
func (w *WSClient) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		select {
		case <-w.done:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			// Check if we've been shut down.
			select {
			case <-w.done:
				return
			default:
			}

			w.reconnect()
			return // the replacement connection runs its own readLoop
		}

		w.handleMessage(message)
	}
}

// pingLoop sends periodic ping messages to keep one connection alive. It
// stops when its connection dies; the replacement connection gets its own
// loop from Connect.
func (w *WSClient) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage parses a raw feed message and routes it to the appropriate
// handlers based on the channel.
func (w *WSClient) handleMessage(raw []byte) {
	var envelope wsEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return // Silently drop unparseable messages.
	}

	switch envelope.Channel {
	case "book":
		var msg wsBookMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return
		}
		snap := msg.toDomain()

		w.handlerMu.RLock()
		handlers := w.bookHandlers
		w.handlerMu.RUnlock()

		for _, h := range handlers {
			h(snap)
		}

	case "prices":
		var msg wsPriceChangeMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return
		}
		change := msg.toDomain()

		w.handlerMu.RLock()
		handlers := w.priceHandlers
		w.handlerMu.RUnlock()

		for _, h := range handlers {
			h(change)
		}

	case "orders":
		var msg wsOrderUpdateMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return
		}
		update := msg.toDomain()

		w.handlerMu.RLock()
		handlers := w.orderHandlers
		w.handlerMu.RUnlock()

		for _, h := range handlers {
			h(update)
		}
	}
}

// reconnect attempts to re-establish the WebSocket connection with
// exponential backoff. It blocks until successful or the client is closed.
func (w *WSClient) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-w.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := w.Connect(ctx)
		cancel()

		if err == nil {
			return
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
