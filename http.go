package whoiscache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	maxRequestSize  = 64 << 10
	shutdownTimeout = 5 * time.Second
)

// httpServer exposes the lookup over HTTP next to the DNS server.
type httpServer struct {
	addr   string
	lookup *Lookup
	srv    *http.Server
	ln     net.Listener
}

func newHTTPServer(addr string, l *Lookup) *httpServer {
	return &httpServer{addr: addr, lookup: l}
}

func (h *httpServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /whois", h.serveLookup)
	mux.HandleFunc("POST /whois/batch", h.serveBatch)
	return mux
}

func (h *httpServer) OnStartup() error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return err
	}
	h.ln = ln
	h.srv = &http.Server{Handler: h.handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := h.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("HTTP server on %s stopped: %v", h.addr, err)
		}
	}()
	log.Infof("HTTP API listening on %s", ln.Addr())
	return nil
}

func (h *httpServer) OnShutdown() error {
	if h.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.srv.Shutdown(ctx)
}

// serveLookup accepts either a bare JSON string or {"domain": "..."}.
func (h *httpServer) serveLookup(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestSize)).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var domain string
	if err := json.Unmarshal(raw, &domain); err != nil {
		var body struct {
			Domain string `json:"domain"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		domain = body.Domain
	}
	if normalizeDomain(domain) == "" {
		writeError(w, http.StatusBadRequest, "domain is required")
		return
	}

	writeJSON(w, http.StatusOK, h.lookup.Lookup(r.Context(), domain))
}

func (h *httpServer) serveBatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Domains []string `json:"domains"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestSize)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.Domains) == 0 {
		writeError(w, http.StatusBadRequest, "domains is required")
		return
	}

	res, err := h.lookup.LookupBatch(r.Context(), body.Domains)
	if errors.Is(err, ErrRateLimited) {
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warningf("Failed to write HTTP response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"detail": msg})
}
