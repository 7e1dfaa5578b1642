package whoiscache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

const exampleWhois = `   Domain Name: EXAMPLE.COM
   Registry Domain ID: 2336799_DOMAIN_COM-VRSN
   Registrar WHOIS Server: whois.iana.org
   Updated Date: 2024-08-14T07:01:34Z
   Creation Date: 1995-08-14T04:00:00Z
   Registry Expiry Date: 2025-08-13T04:00:00Z
   Registrar: RESERVED-Internet Assigned Numbers Authority
   Registrar IANA ID: 376
   Domain Status: clientDeleteProhibited https://icann.org/epp#clientDeleteProhibited
   Domain Status: clientTransferProhibited https://icann.org/epp#clientTransferProhibited
   Name Server: A.IANA-SERVERS.NET
   Name Server: B.IANA-SERVERS.NET
   DNSSEC: signedDelegation
>>> Last update of whois database: 2025-01-01T00:00:00Z <<<
`

func fixedWhois(raw string, err error) *WhoisClient {
	return &WhoisClient{query: func(string) (string, error) { return raw, err }}
}

func TestWhoisClientSuccess(t *testing.T) {
	out := fixedWhois(exampleWhois, nil).Query(context.TODO(), "example.com")
	if out.Err != nil {
		t.Fatalf("Expected no errors, but got: %v", out.Err)
	}

	rec := normalize("example.com", out.Payload, Local, nil)
	if rec.Outcome != Success || rec.Source != Local {
		t.Fatalf("Expected local success, got %v from %v", rec.Outcome, rec.Source)
	}
	if !strings.Contains(rec.NameServers, "a.iana-servers.net") {
		t.Fatalf("Expected lower-cased name servers, got %q", rec.NameServers)
	}
	if rec.Registrar == "" || rec.CreationDate == "" || rec.ExpirationDate == "" {
		t.Fatalf("Expected registrar and dates, got %+v", rec)
	}
	if rec.Status == noInformation {
		t.Fatalf("Expected statuses to be parsed")
	}
}

func TestWhoisClientNotFound(t *testing.T) {
	out := fixedWhois("No match for \"UNREGISTERED-EXAMPLE.COM\".\r\n>>> Last update of whois database: 2025-01-01T00:00:00Z <<<\r\n", nil).
		Query(context.TODO(), "unregistered-example.com")
	if out.Err != nil {
		t.Fatalf("Expected no errors, but got: %v", out.Err)
	}
	if rec := normalize("unregistered-example.com", out.Payload, Local, nil); rec.Outcome != NotRegistered {
		t.Fatalf("Expected not registered, got %v", rec.Outcome)
	}
}

func TestWhoisClientFailure(t *testing.T) {
	out := fixedWhois("", errors.New("dial tcp: i/o timeout")).Query(context.TODO(), "example.com")
	if out.Err == nil {
		t.Fatalf("Expected an error, but got none")
	}
}

func TestWhoisClientCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	c := &WhoisClient{query: func(string) (string, error) {
		<-release
		return exampleWhois, nil
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	out := c.Query(ctx, "example.com")
	if !errors.Is(out.Err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline exceeded, got %v", out.Err)
	}
}
