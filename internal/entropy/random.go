// Package entropy supplies layout seeds. When a random.org API key is
// configured the seed comes from true randomness; otherwise crypto/rand.
package entropy

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Client fetches random integers from random.org.
type Client struct {
	apiKey string
	client *http.Client
}

// NewClient creates a random.org client. Returns nil if apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey: apiKey,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Seed returns a layout seed. A nil client, or any API failure, falls back
// to crypto/rand so the caller always gets a usable seed.
func (c *Client) Seed() int64 {
	if c == nil {
		return CryptoSeed()
	}
	if s, ok := c.fetchSeed(); ok {
		return s
	}
	return CryptoSeed()
}

func (c *Client) fetchSeed() (int64, bool) {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateIntegers",
		"params": map[string]any{
			"apiKey": c.apiKey,
			"n":      2,
			"min":    0,
			"max":    1 << 30,
		},
		"id": 1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		slog.Debug("random.org marshal failed", "error", err)
		return 0, false
	}

	resp, err := c.client.Post("https://api.random.org/json-rpc/4/invoke", "application/json", bytes.NewReader(body))
	if err != nil {
		slog.Debug("random.org fetch failed", "error", err)
		return 0, false
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Debug("random.org read failed", "error", err)
		return 0, false
	}

	var result struct {
		Result struct {
			Random struct {
				Data []int64 `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		slog.Debug("random.org parse failed", "error", err)
		return 0, false
	}
	if result.Error != nil {
		slog.Debug("random.org API error", "error", result.Error.Message)
		return 0, false
	}
	if len(result.Result.Random.Data) < 2 {
		return 0, false
	}

	// Combine two 31-bit integers into one seed.
	seed := result.Result.Random.Data[0]<<31 | result.Result.Random.Data[1]
	slog.Debug("random.org seed fetched", "seed", seed)
	return seed, true
}

// CryptoSeed generates a non-negative seed from crypto/rand.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Degenerate but usable.
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}
