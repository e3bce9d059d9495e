// Package entropy provides the deterministic random streams that drive city
// generation, and a source of fresh master seeds for runs started without one.
// Fresh seeds come from random.org when an API key is configured and fall
// back to crypto/rand otherwise.
package entropy

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	randomOrgEndpoint = "https://api.random.org/json-rpc/4/invoke"
	seedBatch         = 16
)

// Client draws master seeds from random.org, buffering one batch per request.
type Client struct {
	apiKey   string
	endpoint string
	http     *http.Client

	mu   sync.Mutex
	pool []uint32
}

// NewClient creates a random.org client. Returns nil if apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: randomOrgEndpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether the client can reach random.org.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Seed returns the next buffered seed, fetching a batch when the buffer is
// empty. Any failure falls back to crypto/rand.
func (c *Client) Seed(ctx context.Context) uint32 {
	if !c.Enabled() {
		return CryptoSeed()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pool) == 0 {
		batch, err := c.fetch(ctx, seedBatch)
		if err != nil {
			slog.Warn("random.org unavailable, using crypto/rand", "error", err)
			return CryptoSeed()
		}
		c.pool = batch
		slog.Debug("random.org seeds fetched", "count", len(batch))
	}

	seed := c.pool[0]
	c.pool = c.pool[1:]
	return seed
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int       `json:"id"`
}

type rpcParams struct {
	APIKey string `json:"apiKey"`
	N      int    `json:"n"`
	Min    int    `json:"min"`
	Max    int    `json:"max"`
}

type rpcResponse struct {
	Result *struct {
		Random struct {
			Data []uint32 `json:"data"`
		} `json:"random"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// fetch requests n seeds. random.org integers are at most signed 32-bit, so
// each seed is assembled from two 16-bit halves.
func (c *Client) fetch(ctx context.Context, n int) ([]uint32, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "generateIntegers",
		Params:  rpcParams{APIKey: c.apiKey, N: 2 * n, Min: 0, Max: 0xFFFF},
		ID:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("api error %d: %s", out.Error.Code, out.Error.Message)
	}
	if out.Result == nil || len(out.Result.Random.Data) < 2 {
		return nil, fmt.Errorf("empty result")
	}

	data := out.Result.Random.Data
	seeds := make([]uint32, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		seeds = append(seeds, (data[i]&0xFFFF)<<16|data[i+1]&0xFFFF)
	}
	return seeds, nil
}

// CryptoSeed returns a master seed from crypto/rand.
func CryptoSeed() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return uint32(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint32(buf[:])
}

// SeedFromSource returns a master seed from c when it is enabled, or from
// crypto/rand. A nil c is allowed.
func SeedFromSource(ctx context.Context, c *Client) uint32 {
	return c.Seed(ctx)
}
