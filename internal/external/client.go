package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/cardtrade/internal/domain"
	"github.com/mtlprog/cardtrade/internal/price"
)

// ErrInvalidResponse indicates a price lookup response that failed validation.
var ErrInvalidResponse = errors.New("invalid price lookup response")

// errNotFound marks a 404 from the lookup service; the product is unknown, not the service down.
var errNotFound = errors.New("product not found")

// LookupClient fetches card prices from the hosted Price Lookup Service.
type LookupClient struct {
	baseURL    string
	httpClient *http.Client
	delay      time.Duration
	maxRetries int
}

// NewLookupClient creates a new Price Lookup Service client.
func NewLookupClient(baseURL string, delay time.Duration, maxRetries int) *LookupClient {
	return &LookupClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		delay:      delay,
		maxRetries: maxRetries,
	}
}

// lookupResponse is the raw wire shape. price arrives as a string but numbers are tolerated.
type lookupResponse struct {
	Price           json.RawMessage `json:"price"`
	Unavailable     bool            `json:"unavailable"`
	ActualCondition string          `json:"actualCondition"`
	UsedFallback    bool            `json:"usedFallback"`
}

// LookupPrice implements price.LookupService.
func (c *LookupClient) LookupPrice(ctx context.Context, req price.LookupRequest) (domain.PriceLookupResult, error) {
	q := url.Values{}
	q.Set("productId", req.ProductID)
	q.Set("condition", string(req.Condition))
	q.Set("firstEdition", strconv.FormatBool(req.Finish.FirstEdition))
	q.Set("holo", strconv.FormatBool(req.Finish.Holo))
	q.Set("reverseHolo", strconv.FormatBool(req.Finish.ReverseHolo))
	q.Set("game", string(req.Game))

	body, err := c.fetchWithRetry(ctx, c.baseURL+"/price?"+q.Encode())
	if errors.Is(err, errNotFound) {
		return domain.Unpriced(), nil
	}
	if err != nil {
		return domain.PriceLookupResult{}, err
	}

	var raw lookupResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.PriceLookupResult{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return raw.toResult(req.Condition)
}

func (r lookupResponse) toResult(requested domain.Condition) (domain.PriceLookupResult, error) {
	if r.Unavailable {
		return domain.Unpriced(), nil
	}

	p, err := parseWirePrice(r.Price)
	if err != nil {
		return domain.PriceLookupResult{}, err
	}
	if !p.IsPositive() {
		return domain.Unpriced(), nil
	}

	actual := requested
	if r.ActualCondition != "" {
		actual, err = domain.ParseCondition(r.ActualCondition)
		if err != nil {
			return domain.PriceLookupResult{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	}

	return domain.PriceLookupResult{
		Price:           p,
		ActualCondition: actual,
		UsedFallback:    r.UsedFallback || actual != requested,
	}, nil
}

func parseWirePrice(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return decimal.Zero, nil
	}
	p, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: price %q: %v", ErrInvalidResponse, s, err)
	}
	if p.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative price %s", ErrInvalidResponse, p)
	}
	return p, nil
}

func transient(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (c *LookupClient) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			baseDelay := c.delay
			if baseDelay == 0 {
				baseDelay = time.Second
			}
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating price lookup request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("price lookup request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading price lookup response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, errNotFound
		}

		if transient(resp.StatusCode) {
			lastErr = fmt.Errorf("price lookup HTTP %d (attempt %d/%d)", resp.StatusCode, attempt+1, c.maxRetries+1)
			continue
		}

		return nil, fmt.Errorf("price lookup HTTP %d: %s", resp.StatusCode, string(body))
	}

	return nil, lastErr
}
