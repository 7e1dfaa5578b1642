package whoiscache

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/coredns/caddy"
	"github.com/coredns/coredns/core/dnsserver"
	"github.com/coredns/coredns/plugin"
)

// ErrNoAPIKey is returned at setup when neither the apikey property nor APILAYER_KEY is set.
var ErrNoAPIKey = errors.New("APILAYER_KEY env var is not set and no apikey configured")

func init() { plugin.Register(pluginName, setup) }

type config struct {
	zones        []string
	apiKey       string
	endpoint     string
	ttl          time.Duration
	attempts     int
	timeout      time.Duration
	localTimeout time.Duration
	redisAddr    string
	httpAddr     string
}

func setup(c *caddy.Controller) error {
	cfg, err := parse(c)
	if err != nil {
		return plugin.Error(pluginName, err)
	}

	var cache CacheRepository = NewMemoryStore()
	if cfg.redisAddr != "" {
		redisClient, err := connectRedis(context.Background(), cfg.redisAddr)
		if err != nil {
			return plugin.Error(pluginName, err)
		}
		store := NewRedisStore(redisClient)
		c.OnShutdown(store.Close)
		cache = store
	}

	lookup := NewLookup(
		cache,
		NewAPILayerClient(cfg.endpoint, cfg.apiKey, cfg.timeout),
		NewWhoisClient(cfg.localTimeout),
		cfg.ttl,
		cfg.attempts,
	)

	if cfg.httpAddr != "" {
		h := newHTTPServer(cfg.httpAddr, lookup)
		c.OnStartup(h.OnStartup)
		c.OnShutdown(h.OnShutdown)
	}

	dnsserver.GetConfig(c).AddPlugin(func(next plugin.Handler) plugin.Handler {
		return WhoisCache{Next: next, Zones: cfg.zones, lookup: lookup}
	})

	return nil
}

func parse(c *caddy.Controller) (config, error) {
	cfg := config{
		apiKey:       os.Getenv("APILAYER_KEY"),
		endpoint:     defaultEndpoint,
		ttl:          defaultTTL,
		attempts:     defaultAttempts,
		timeout:      defaultRemoteTimeout,
		localTimeout: defaultLocalTimeout,
	}

	i := 0
	for c.Next() {
		if i > 0 {
			return cfg, plugin.ErrOnce
		}
		i++

		cfg.zones = plugin.OriginsFromArgsOrServerBlock(c.RemainingArgs(), c.ServerBlockKeys)

		for c.NextBlock() {
			prop := c.Val()
			args := c.RemainingArgs()
			if len(args) != 1 {
				return cfg, c.ArgErr()
			}
			switch prop {
			case "apikey":
				cfg.apiKey = args[0]
			case "endpoint":
				cfg.endpoint = args[0]
			case "redis":
				cfg.redisAddr = args[0]
			case "http":
				cfg.httpAddr = args[0]
			case "ttl", "timeout", "local_timeout":
				d, err := time.ParseDuration(args[0])
				if err != nil {
					return cfg, c.Errf("invalid %s %q: %v", prop, args[0], err)
				}
				if d <= 0 {
					return cfg, c.Errf("%s must be positive", prop)
				}
				switch prop {
				case "ttl":
					cfg.ttl = d
				case "timeout":
					cfg.timeout = d
				default:
					cfg.localTimeout = d
				}
			case "attempts":
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return cfg, c.Errf("attempts must be a positive integer, got %q", args[0])
				}
				cfg.attempts = n
			default:
				return cfg, c.Errf("unknown property '%s'", prop)
			}
		}
	}

	if cfg.apiKey == "" {
		return cfg, ErrNoAPIKey
	}
	return cfg, nil
}
