package whoiscache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultEndpoint      = "https://api.apilayer.com/whois/query"
	defaultRemoteTimeout = 10 * time.Second

	rateRemainingHeader = "X-RateLimit-Remaining"
	maxBodySize         = 1 << 20
)

// RemoteStatus classifies a single upstream attempt.
type RemoteStatus int

const (
	RemoteSuccess RemoteStatus = iota
	RemoteNotFound
	RemoteRateLimited
	RemoteTransientError
	RemoteServerError
	// RemoteRejected covers 4xx answers other than 404 and 429.
	RemoteRejected
	// RemoteMalformed is a 2xx answer whose body is not JSON.
	RemoteMalformed
)

func (s RemoteStatus) String() string {
	switch s {
	case RemoteSuccess:
		return "success"
	case RemoteNotFound:
		return "not_found"
	case RemoteRateLimited:
		return "rate_limited"
	case RemoteTransientError:
		return "transient"
	case RemoteServerError:
		return "server_error"
	case RemoteRejected:
		return "rejected"
	case RemoteMalformed:
		return "malformed"
	}
	return "unknown"
}

// RemoteOutcome is the result of one upstream attempt.
type RemoteOutcome struct {
	Status        RemoteStatus
	Payload       any
	RateRemaining *int
	Code          int
	Err           error
}

func (o RemoteOutcome) retryable() bool {
	return o.Status == RemoteTransientError || o.Status == RemoteServerError
}

// APILayerClient queries the apilayer WHOIS API.
type APILayerClient struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	client   *http.Client
}

func NewAPILayerClient(endpoint, apiKey string, timeout time.Duration) *APILayerClient {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &APILayerClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		timeout:  timeout,
		client:   &http.Client{},
	}
}

// Query issues one GET for domain. Every attempt is bounded by the client
// timeout even when ctx carries no deadline.
func (c *APILayerClient) Query(ctx context.Context, domain string) RemoteOutcome {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return RemoteOutcome{Status: RemoteRejected, Err: fmt.Errorf("invalid endpoint: %w", err)}
	}
	q := u.Query()
	q.Set("domain", domain)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return RemoteOutcome{Status: RemoteRejected, Err: err}
	}
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return RemoteOutcome{Status: RemoteTransientError, Err: err}
	}
	defer resp.Body.Close()

	out := RemoteOutcome{Code: resp.StatusCode, RateRemaining: parseRateRemaining(resp.Header)}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		out.Status = RemoteTransientError
		out.Err = fmt.Errorf("read body: %w", err)
		return out
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		out.Status = RemoteRateLimited
	case resp.StatusCode == http.StatusNotFound:
		out.Status = RemoteNotFound
	case resp.StatusCode >= 500:
		out.Status = RemoteServerError
		out.Err = fmt.Errorf("upstream returned HTTP %d", resp.StatusCode)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.Unmarshal(body, &out.Payload); err != nil {
			out.Status = RemoteMalformed
			out.Err = fmt.Errorf("decode body: %w", err)
			return out
		}
		out.Status = RemoteSuccess
	default:
		out.Status = RemoteRejected
		out.Err = fmt.Errorf("upstream rejected request: %d", resp.StatusCode)
	}
	return out
}

func parseRateRemaining(h http.Header) *int {
	v := h.Get(rateRemainingHeader)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}
