package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Observation is one mempool transaction's fee rate as seen by the
// live feed.
type Observation struct {
	FeeRate float64
	Ts      time.Time
}

// Block is a newly mined block as seen by the live feed.
type Block struct {
	Height    int64
	Timestamp uint32
}

type Feed struct{ url string }

func NewFeed(u string) Feed { return Feed{u} }

// Stream connects to the feed and delivers observations and blocks
// until ctx is canceled, reconnecting with exponential backoff on
// failure. Parse errors are reported on errs without interrupting the
// stream; channel sends never block (full channels drop).
func (f Feed) Stream(ctx context.Context, obs chan<- Observation, blocks chan<- Block, errs chan<- error, ping time.Duration) error {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := f.streamOnce(ctx, obs, blocks, errs, ping); err != nil {
				log.Warn().Err(err).Dur("backoff", backoff).Msg("feed connection failed, reconnecting")
				select {
				case errs <- fmt.Errorf("feed reconnect: %w", err):
				default:
				}

				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return ctx.Err()
				}

				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}
			backoff = time.Second
		}
	}
}

func (f Feed) streamOnce(ctx context.Context, obs chan<- Observation, blocks chan<- Block, errs chan<- error, ping time.Duration) error {
	log.Info().Str("url", f.url).Msg("establishing feed connection")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	conn.SetReadLimit(512 * 1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	sub := map[string]any{"action": "want", "data": []string{"blocks", "mempool-txs"}}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	pingTicker := time.NewTicker(ping)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
		default:
			conn.SetReadDeadline(time.Now().Add(90 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Info().Msg("feed connection closed normally")
					return err
				}
				return fmt.Errorf("read message failed: %w", err)
			}

			var raw map[string]json.RawMessage
			if err := json.Unmarshal(msg, &raw); err != nil {
				log.Debug().Err(err).Str("message", string(msg)).Msg("failed to parse feed message")
				continue
			}

			if data, ok := raw["block"]; ok {
				if err := parseBlock(data, blocks); err != nil {
					select {
					case errs <- fmt.Errorf("parse block: %w", err):
					default:
					}
				}
			}
			if data, ok := raw["transactions"]; ok {
				if err := parseTransactions(data, obs); err != nil {
					select {
					case errs <- fmt.Errorf("parse transactions: %w", err):
					default:
					}
				}
			}
		}
	}
}

func parseBlock(data json.RawMessage, out chan<- Block) error {
	var b struct {
		Height    int64  `json:"height"`
		Timestamp uint32 `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	if b.Timestamp == 0 {
		return fmt.Errorf("block without timestamp")
	}

	select {
	case out <- Block{Height: b.Height, Timestamp: b.Timestamp}:
		log.Debug().Int64("height", b.Height).Msg("block received")
	default:
		log.Warn().Int64("height", b.Height).Msg("block channel full, dropping")
	}
	return nil
}

func parseTransactions(data json.RawMessage, out chan<- Observation) error {
	var txs []RecentTx
	if err := json.Unmarshal(data, &txs); err != nil {
		return err
	}

	now := time.Now()
	for _, tx := range txs {
		rate := tx.FeeRate()
		if rate <= 0 {
			continue
		}
		select {
		case out <- Observation{FeeRate: rate, Ts: now}:
		default:
			log.Warn().Msg("observation channel full, dropping")
		}
	}
	return nil
}
