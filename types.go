package whoiscache

import (
	"fmt"
	"time"
)

// noInformation is written in place of a status or name server list the source did not provide.
const noInformation = "No information"

// Outcome is the terminal result of a lookup.
type Outcome int

const (
	Success Outcome = iota
	NotRegistered
	Error
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case NotRegistered:
		return "not_registered"
	case Error:
		return "error"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Outcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "success":
		*o = Success
	case "not_registered":
		*o = NotRegistered
	case "error":
		*o = Error
	default:
		return fmt.Errorf("unknown outcome %q", b)
	}
	return nil
}

// Source names the resolver a record came from.
type Source int

const (
	Remote Source = iota
	Local
)

func (s Source) String() string {
	if s == Local {
		return "local"
	}
	return "whois_api"
}

func (s Source) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Source) UnmarshalText(b []byte) error {
	switch string(b) {
	case "whois_api":
		*s = Remote
	case "local":
		*s = Local
	default:
		return fmt.Errorf("unknown source %q", b)
	}
	return nil
}

// LookupRecord is the canonical answer for one domain, whichever resolver produced it.
type LookupRecord struct {
	Domain         string  `json:"domain"`
	CreationDate   string  `json:"creation_date,omitempty"`
	Registrar      string  `json:"registrar,omitempty"`
	Status         string  `json:"status"`
	NameServers    string  `json:"name_servers"`
	ExpirationDate string  `json:"expiration_date,omitempty"`
	Outcome        Outcome `json:"result"`
	Source         Source  `json:"lookup_type"`
	Message        string  `json:"message,omitempty"`
	RateRemaining  *int    `json:"rate_remaining,omitempty"`
}

// Cacheable reports whether the record may be written to the cache store.
// Not-registered answers are cached as negative results.
func (r LookupRecord) Cacheable() bool {
	return r.Outcome == Success || r.Outcome == NotRegistered
}

// CacheEntry is a cached record and the moment it stops being served.
type CacheEntry struct {
	Record    LookupRecord `json:"record"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// IsLive reports whether the entry may still be served at now.
func (e CacheEntry) IsLive(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

func errorRecord(domain string, source Source, format string, args ...any) LookupRecord {
	return LookupRecord{
		Domain:      domain,
		Status:      noInformation,
		NameServers: noInformation,
		Outcome:     Error,
		Source:      source,
		Message:     fmt.Sprintf(format, args...),
	}
}
