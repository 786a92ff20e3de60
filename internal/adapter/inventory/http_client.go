package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"

	"github.com/rl1809/rocketshoes-cart/internal/core/domain"
	"github.com/rl1809/rocketshoes-cart/internal/port"
)

// ErrUnavailable is returned while the circuit to the inventory API is open.
var ErrUnavailable = errors.New("inventory unavailable")

const maxBodySize = 1 << 20

// HTTPClient talks to the json-server style inventory API:
// GET {base}/stock/{id} and GET {base}/products/{id}.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	sfg     singleflight.Group // collapses identical in-flight lookups
	log     logrus.FieldLogger
}

func NewHTTPClient(baseURL string, timeout time.Duration, log logrus.FieldLogger) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: log,
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "inventory",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// an unknown product is an answer, not an outage; a caller that
		// gave up says nothing about the inventory either
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, port.ErrProductNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})

	return c
}

func (c *HTTPClient) GetStock(ctx context.Context, productID int64) (domain.Stock, error) {
	var stock domain.Stock
	if err := c.fetch(ctx, "/stock/"+strconv.FormatInt(productID, 10), &stock); err != nil {
		return domain.Stock{}, fmt.Errorf("get stock %d: %w", productID, err)
	}
	return stock, nil
}

func (c *HTTPClient) GetProduct(ctx context.Context, productID int64) (domain.Product, error) {
	var product domain.Product
	if err := c.fetch(ctx, "/products/"+strconv.FormatInt(productID, 10), &product); err != nil {
		return domain.Product{}, fmt.Errorf("get product %d: %w", productID, err)
	}
	return product, nil
}

// fetch shares one request between concurrent callers of the same path. The
// shared request is detached from any single caller's cancellation and is
// bounded by the client timeout instead; each caller still stops waiting when
// its own context ends.
func (c *HTTPClient) fetch(ctx context.Context, path string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ch := c.sfg.DoChan(path, func() (interface{}, error) {
		return c.breaker.Execute(func() ([]byte, error) {
			return c.get(context.WithoutCancel(ctx), path)
		})
	})

	var (
		v   interface{}
		err error
	)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		v, err = res.Val, res.Err
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(v.([]byte), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, port.ErrProductNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("request %s: unexpected status %d", path, resp.StatusCode)
	}

	return body, nil
}
