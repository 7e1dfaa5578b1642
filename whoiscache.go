// Package whoiscache is a CoreDNS plugin that answers TXT queries with domain
// registration data, looked up through a WHOIS API with a local WHOIS fallback
// and cached for a fixed TTL.
package whoiscache

import (
	"context"
	"strconv"
	"strings"

	"github.com/coredns/coredns/plugin"
	clog "github.com/coredns/coredns/plugin/pkg/log"
	"github.com/coredns/coredns/request"
	"github.com/miekg/dns"
)

const pluginName = "whoiscache"

var log = clog.NewWithPlugin(pluginName)

// answerTTL is the TTL put on TXT answers; it does not affect the lookup cache.
const answerTTL = 300

type WhoisCache struct {
	Next   plugin.Handler
	Zones  []string
	lookup *Lookup
}

func (wc WhoisCache) ServeDNS(ctx context.Context, w dns.ResponseWriter, r *dns.Msg) (int, error) {
	state := request.Request{W: w, Req: r}
	qname := state.Name()

	zone := plugin.Zones(wc.Zones).Matches(qname)
	if zone == "" || state.QType() != dns.TypeTXT {
		return plugin.NextOrFailure(wc.Name(), wc.Next, ctx, w, r)
	}
	domain := domainFromQName(qname, zone)
	if domain == "" {
		return plugin.NextOrFailure(wc.Name(), wc.Next, ctx, w, r)
	}

	log.Infof("Received WHOIS query for domain: %s", domain)
	rec := wc.lookup.Lookup(ctx, domain)

	resp := buildResponse(r, rcodeFor(rec.Outcome), rec)
	w.WriteMsg(resp)
	return dns.RcodeSuccess, nil
}

func (wc WhoisCache) Name() string { return pluginName }

// domainFromQName strips the zone from qname. In the root zone the query name is the domain.
func domainFromQName(qname, zone string) string {
	qname = strings.ToLower(qname)
	if zone != "." {
		qname = strings.TrimSuffix(qname, strings.ToLower(zone))
	}
	return strings.TrimSuffix(qname, ".")
}

func rcodeFor(o Outcome) int {
	switch o {
	case Success:
		return dns.RcodeSuccess
	case NotRegistered:
		return dns.RcodeNameError
	}
	return dns.RcodeServerFailure
}

func buildResponse(r *dns.Msg, rcodeStatus int, rec LookupRecord) *dns.Msg {
	resp := new(dns.Msg)
	resp.SetReply(r)
	resp.Authoritative = true
	resp.Rcode = rcodeStatus
	for _, kv := range recordPairs(rec) {
		resp.Answer = append(resp.Answer, &dns.TXT{
			Hdr: dns.RR_Header{
				Name:   r.Question[0].Name,
				Rrtype: dns.TypeTXT,
				Class:  dns.ClassINET,
				Ttl:    answerTTL,
			},
			Txt: splitTXT(kv[0] + "=" + kv[1]),
		})
	}
	return resp
}

// recordPairs lists the record as key/value pairs, leaving out absent values.
func recordPairs(rec LookupRecord) [][2]string {
	pairs := [][2]string{{"domain", rec.Domain}}
	add := func(k, v string) {
		if v != "" {
			pairs = append(pairs, [2]string{k, v})
		}
	}
	add("creation_date", rec.CreationDate)
	add("registrar", rec.Registrar)
	add("status", rec.Status)
	add("name_servers", rec.NameServers)
	add("expiration_date", rec.ExpirationDate)
	add("result", rec.Outcome.String())
	add("lookup_type", rec.Source.String())
	add("message", rec.Message)
	if rec.RateRemaining != nil {
		add("rate_remaining", strconv.Itoa(*rec.RateRemaining))
	}
	return pairs
}

// splitTXT breaks s into character-strings of at most 255 bytes.
func splitTXT(s string) []string {
	const maxLen = 255
	var out []string
	for len(s) > maxLen {
		out = append(out, s[:maxLen])
		s = s[maxLen:]
	}
	return append(out, s)
}
