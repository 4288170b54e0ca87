package upstream

import (
	"time"

	"go.uber.org/zap"
)

// Client is the upstream client pool: one method per logical query, each returning a normalized
// shape whichever endpoint variant answered. Methods return ok=false when no data came back.
type Client struct {
	caller  *Caller
	ep      Endpoints
	aliases *Aliases
	logger  *zap.Logger
}

// NewClient wires the pool onto a shared Caller.
func NewClient(caller *Caller, ep Endpoints, aliases *Aliases, logger *zap.Logger) *Client {
	if aliases == nil {
		aliases = NewAliases()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{caller: caller, ep: ep, aliases: aliases, logger: logger}
}

// Aliases exposes the ticker spelling registry.
func (c *Client) Aliases() *Aliases { return c.aliases }

func (c *Client) dataOpts(key string, ttl time.Duration, limited bool) Options {
	return Options{
		CacheKey:    key,
		CacheTTL:    ttl,
		RateLimited: limited,
		MaxRetries:  c.ep.MaxRetries,
		Timeout:     c.ep.DataTimeout,
	}
}

// envelopeOpts is dataOpts for the {code,msg,data} APIs; error envelopes are never cached.
func (c *Client) envelopeOpts(key string, ttl time.Duration, limited bool) Options {
	opts := c.dataOpts(key, ttl, limited)
	opts.Accept = envelopeOK
	return opts
}

func (c *Client) oracleOpts(key string, limited bool) Options {
	return Options{
		CacheKey:    key,
		CacheTTL:    c.ep.TTL.Prices,
		RateLimited: limited,
		MaxRetries:  c.ep.MaxRetries,
		Timeout:     c.ep.OracleTimeout,
	}
}

func bearer(reqs []Request, key string) []Request {
	if key == "" {
		return reqs
	}
	for i := range reqs {
		reqs[i] = reqs[i].WithHeader("Authorization", "Bearer "+key)
	}
	return reqs
}
