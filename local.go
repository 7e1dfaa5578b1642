package whoiscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
)

const defaultLocalTimeout = 10 * time.Second

// LocalOutcome is the result of a local WHOIS lookup. A nil Err means Payload
// is a decoded payload in the same shape the remote resolver returns.
type LocalOutcome struct {
	Payload any
	Err     error
}

// WhoisClient talks WHOIS directly to the registry servers.
type WhoisClient struct {
	query func(domain string) (string, error)
}

func NewWhoisClient(timeout time.Duration) *WhoisClient {
	if timeout <= 0 {
		timeout = defaultLocalTimeout
	}
	client := whois.NewClient().SetTimeout(timeout)
	return &WhoisClient{query: func(domain string) (string, error) {
		return client.Whois(domain)
	}}
}

func (c *WhoisClient) Query(ctx context.Context, domain string) LocalOutcome {
	type result struct {
		raw string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		raw, err := c.query(domain)
		ch <- result{raw: raw, err: err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return LocalOutcome{Err: ctx.Err()}
	case res = <-ch:
	}
	if res.err != nil {
		return LocalOutcome{Err: res.err}
	}

	info, err := whoisparser.Parse(res.raw)
	if errors.Is(err, whoisparser.ErrNotFoundDomain) {
		return LocalOutcome{Payload: map[string]any{"registered": false}}
	}
	if err != nil {
		return LocalOutcome{Err: fmt.Errorf("parse whois response: %w", err)}
	}
	if info.Domain == nil {
		return LocalOutcome{Err: errors.New("whois response has no domain section")}
	}

	attrs := map[string]any{
		"creation_date":   info.Domain.CreatedDate,
		"status":          info.Domain.Status,
		"name_servers":    info.Domain.NameServers,
		"expiration_date": info.Domain.ExpirationDate,
	}
	if info.Registrar != nil {
		attrs["registrar"] = info.Registrar.Name
	}
	return LocalOutcome{Payload: map[string]any{"result": attrs}}
}
