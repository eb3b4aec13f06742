// Package chain obtains fee observations and block timestamps from an
// esplora-style HTTP API and its companion WebSocket feed. It is the
// only part of the repository that talks to the network; the estimator
// itself never does.
package chain

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	base string
	rest *resty.Client
}

func NewREST(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	return &Client{base, r}
}

// RecentTx is one recently seen mempool transaction.
type RecentTx struct {
	TxID  string  `json:"txid"`
	Fee   float64 `json:"fee"`   // total fee in sats
	VSize float64 `json:"vsize"` // virtual size in vbytes
}

// FeeRate returns the transaction's fee rate in sat/vB, or 0 when the
// size is unknown.
func (t RecentTx) FeeRate() float64 {
	if t.VSize <= 0 {
		return 0
	}
	return t.Fee / t.VSize
}

// RecentFeeRates fetches the fee rates of recently seen mempool
// transactions. Transactions with unusable size information are
// skipped.
func (c *Client) RecentFeeRates() ([]float64, error) {
	path := "/mempool/recent"

	var txs []RecentTx
	resp, err := c.rest.R().
		SetResult(&txs).
		Get(c.base + path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode(), resp.String())
	}

	rates := make([]float64, 0, len(txs))
	for _, tx := range txs {
		if r := tx.FeeRate(); r > 0 {
			rates = append(rates, r)
		}
	}
	return rates, nil
}

// BlockSummary is the subset of the block header the daemon needs.
type BlockSummary struct {
	ID        string `json:"id"`
	Height    int64  `json:"height"`
	Timestamp uint32 `json:"timestamp"`
}

// RecentBlocks fetches the most recent blocks, newest first.
func (c *Client) RecentBlocks() ([]BlockSummary, error) {
	path := "/blocks"

	var blocks []BlockSummary
	resp, err := c.rest.R().
		SetResult(&blocks).
		Get(c.base + path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("API error: status %d", resp.StatusCode())
	}
	return blocks, nil
}

// TipTimestamp returns the timestamp of the chain tip.
func (c *Client) TipTimestamp() (uint32, error) {
	blocks, err := c.RecentBlocks()
	if err != nil {
		return 0, err
	}
	if len(blocks) == 0 {
		return 0, fmt.Errorf("API returned no blocks")
	}
	return blocks[0].Timestamp, nil
}
