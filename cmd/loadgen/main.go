// loadgen drives the HTTP API with random traffic: a pool of simulated
// traders, each with its own session cookie, placing limit and market
// orders around a mid price and occasionally cancelling what still rests.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

type trader struct {
	client *http.Client
	rng    *rand.Rand
	open   []string // order ids believed to be resting
}

type placeResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Fills   int    `json:"fills"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8001", "server base URL")
	traders := flag.Int("traders", 4, "number of simulated traders")
	interval := flag.Duration("interval", 250*time.Millisecond, "delay between orders per trader")
	duration := flag.Duration("duration", 30*time.Second, "total run time")
	midCents := flag.Int64("mid-cents", 10_000_000, "mid price in cents for limit randomization")
	tickCents := flag.Int64("tick-cents", 1_000, "price tick in cents")
	levels := flag.Int64("levels", 20, "price levels around the mid")
	marketRatio := flag.Int("market-ratio", 5, "1 in N orders is a market order")
	cancelRatio := flag.Int("cancel-ratio", 4, "1 in N iterations cancels a resting order")
	seed := flag.Int64("seed", time.Now().UnixNano(), "seed for the random streams")
	flag.Parse()

	done := time.After(*duration)
	results := make(chan int, *traders)

	for i := 0; i < *traders; i++ {
		jar, err := cookiejar.New(nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cookiejar: %v\n", err)
			os.Exit(1)
		}
		t := &trader{
			client: &http.Client{Jar: jar, Timeout: 5 * time.Second},
			rng:    rand.New(rand.NewSource(*seed + int64(i))),
		}
		go t.run(*baseURL, *interval, done, results, runParams{
			midCents:    *midCents,
			tickCents:   *tickCents,
			levels:      *levels,
			marketRatio: *marketRatio,
			cancelRatio: *cancelRatio,
		})
	}

	total := 0
	for i := 0; i < *traders; i++ {
		total += <-results
	}
	fmt.Printf("placed %d orders across %d traders in %s\n", total, *traders, *duration)
}

type runParams struct {
	midCents    int64
	tickCents   int64
	levels      int64
	marketRatio int
	cancelRatio int
}

func (t *trader) run(baseURL string, interval time.Duration, done <-chan time.Time, results chan<- int, p runParams) {
	// First touch creates the session and sets the cookie.
	if resp, err := t.client.Get(baseURL + "/api/user"); err == nil {
		resp.Body.Close()
	}

	placed := 0
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			results <- placed
			return
		case <-ticker.C:
			if p.cancelRatio > 0 && len(t.open) > 0 && t.rng.Intn(p.cancelRatio) == 0 {
				t.cancelRandom(baseURL)
				continue
			}
			if t.placeRandom(baseURL, p) {
				placed++
			}
		}
	}
}

func (t *trader) placeRandom(baseURL string, p runParams) bool {
	side := "buy"
	if t.rng.Intn(2) == 1 {
		side = "sell"
	}

	body := map[string]any{
		"order_type": "limit",
		"side":       side,
		"quantity":   decimal.New(int64(t.rng.Intn(100)+1), -3), // 0.001..0.100
	}
	if p.marketRatio > 0 && t.rng.Intn(p.marketRatio) == 0 {
		body["order_type"] = "market"
	} else {
		offset := t.rng.Int63n(p.levels+1) * p.tickCents
		price := p.midCents - offset
		if side == "sell" {
			price = p.midCents + offset
		}
		if price < p.tickCents {
			price = p.tickCents
		}
		body["price"] = decimal.New(price, -2)
	}

	buf, _ := json.Marshal(body)
	resp, err := t.client.Post(baseURL+"/api/orders", "application/json", bytes.NewReader(buf))
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	var ack placeResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return false
	}
	if ack.Status == "pending" || ack.Status == "partial" {
		t.open = append(t.open, ack.OrderID)
	}
	return resp.StatusCode == http.StatusOK
}

func (t *trader) cancelRandom(baseURL string) {
	i := t.rng.Intn(len(t.open))
	id := t.open[i]
	t.open = append(t.open[:i], t.open[i+1:]...)

	req, err := http.NewRequest(http.MethodDelete, baseURL+"/api/orders/"+id, nil)
	if err != nil {
		return
	}
	if resp, err := t.client.Do(req); err == nil {
		resp.Body.Close()
	}
}
