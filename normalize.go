package whoiscache

import "strings"

const (
	statusSep     = ", "
	nameServerSep = "\n"
)

// normalize converts a decoded payload from either resolver into a LookupRecord.
// Both resolvers hand over the same shape: an object whose "result" member
// holds the registration attributes. normalize never panics on missing or
// oddly typed members; it only gives up when raw is not an object at all.
func normalize(domain string, raw any, source Source, rateRemaining *int) LookupRecord {
	top, ok := raw.(map[string]any)
	if !ok {
		rec := errorRecord(domain, source, "malformed payload: expected an object, got %T", raw)
		rec.RateRemaining = rateRemaining
		return rec
	}

	if s, ok := top["result"].(string); ok && s == "error" {
		msg := fieldOf(top["message"]).first()
		if msg == "" {
			msg = "Unknown error"
		}
		rec := errorRecord(domain, source, "%s", msg)
		rec.RateRemaining = rateRemaining
		return rec
	}

	res, _ := top["result"].(map[string]any)
	if len(res) == 0 || isFalse(top["registered"]) || isFalse(res["registered"]) {
		return LookupRecord{
			Domain:        domain,
			Status:        noInformation,
			NameServers:   noInformation,
			Outcome:       NotRegistered,
			Source:        source,
			Message:       "Domain is not registered",
			RateRemaining: rateRemaining,
		}
	}

	rec := LookupRecord{
		Domain:         domain,
		CreationDate:   fieldOf(res["creation_date"]).first(),
		Registrar:      fieldOf(res["registrar"]).first(),
		ExpirationDate: fieldOf(res["expiration_date"]).first(),
		Outcome:        Success,
		Source:         source,
		RateRemaining:  rateRemaining,
	}

	var found bool
	if rec.Status, found = fieldOf(res["status"]).join(statusSep, strings.TrimSpace); !found {
		rec.Status = noInformation
	}
	if rec.NameServers, found = fieldOf(res["name_servers"]).join(nameServerSep, normalizeNameServer); !found {
		rec.NameServers = noInformation
	}
	return rec
}

func normalizeNameServer(ns string) string {
	return strings.ToLower(strings.TrimSpace(ns))
}

func isFalse(v any) bool {
	b, ok := v.(bool)
	return ok && !b
}

// normalizeDomain produces the cache key used on both read and write.
func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
