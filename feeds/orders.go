package feeds

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/snipebot/smartmoney"
	"github.com/web3guy0/snipebot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ORDER FEED - Live on-chain order flow into the smart money tracker
// ═══════════════════════════════════════════════════════════════════════════════

const (
	DefaultOrdersWSURL = "wss://ws-subscriptions-clob.polymarket.com/ws/activity"
	reconnectDelay     = 5 * time.Second
	pingInterval       = 30 * time.Second
)

// orderMessage is one raw order event off the wire.
type orderMessage struct {
	EventType string          `json:"event_type"`
	MarketID  string          `json:"market_id"`
	Wallet    string          `json:"wallet"`
	Side      string          `json:"side"`
	Size      decimal.Decimal `json:"size"`
}

// OrderFeed streams order events into the tracker, reconnecting with a
// fixed backoff on failure.
type OrderFeed struct {
	mu sync.RWMutex

	wsURL   string
	tracker *smartmoney.Tracker

	conn    *websocket.Conn
	running bool
	stopCh  chan struct{}

	retryDelay time.Duration
}

// NewOrderFeed creates the feed. An empty url uses the default endpoint.
func NewOrderFeed(wsURL string, tracker *smartmoney.Tracker) *OrderFeed {
	if wsURL == "" {
		wsURL = DefaultOrdersWSURL
	}
	return &OrderFeed{
		wsURL:      wsURL,
		tracker:    tracker,
		stopCh:     make(chan struct{}),
		retryDelay: reconnectDelay,
	}
}

// Start connects and begins streaming orders.
func (f *OrderFeed) Start(ctx context.Context) {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return
	}
	f.running = true
	f.mu.Unlock()

	go f.connectionLoop(ctx)
	log.Info().Msg("📡 Order feed started")
}

// Stop closes the connection and halts reconnects.
func (f *OrderFeed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.running {
		return
	}
	f.running = false
	close(f.stopCh)
	if f.conn != nil {
		f.conn.Close()
	}
	log.Info().Msg("Order feed stopped")
}

func (f *OrderFeed) connectionLoop(ctx context.Context) {
	for {
		select {
		case <-f.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		conn, err := f.connect()
		if err != nil {
			log.Error().Err(err).Msg("Order feed connection failed, retrying...")
			select {
			case <-f.stopCh:
				return
			case <-ctx.Done():
				return
			case <-time.After(f.retryDelay):
			}
			continue
		}

		// The ping loop lives exactly as long as its connection.
		done := make(chan struct{})
		go f.pingLoop(conn, done)
		f.readLoop(ctx, conn)
		close(done)
		conn.Close()

		select {
		case <-f.stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(f.retryDelay):
		}
	}
}

func (f *OrderFeed) connect() (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL, nil)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	log.Info().Msg("🔌 Order feed connected")
	return conn, nil
}

func (f *OrderFeed) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopCh:
			return
		case <-done:
			return
		case <-ticker.C:
			conn.WriteMessage(websocket.PingMessage, nil)
		}
	}
}

func (f *OrderFeed) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-f.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warn().Err(err).Msg("Order feed read error")
			return
		}
		f.processMessage(ctx, message)
	}
}

func (f *OrderFeed) processMessage(ctx context.Context, raw []byte) {
	var msg orderMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Debug().Err(err).Msg("Unparseable order message")
		return
	}
	if msg.MarketID == "" || msg.Wallet == "" {
		return
	}

	side := types.SideYes
	if msg.Side == string(types.SideNo) {
		side = types.SideNo
	}

	f.tracker.TrackOrder(ctx, smartmoney.Order{
		MarketID: msg.MarketID,
		Wallet:   msg.Wallet,
		Side:     side,
		Size:     msg.Size,
		SeenAt:   time.Now(),
	})
}
