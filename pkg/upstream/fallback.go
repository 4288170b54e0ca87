package upstream

import (
	"context"

	"go.uber.org/zap"
)

// WithEndpointFallback tries candidates in order until one answers. A 404 moves on to the next
// candidate. An unavailable host is skipped for the rest of the list so a mirror can answer.
// Rate limiting stops the walk; hammering other paths on the same provider would not help.
func (c *Caller) WithEndpointFallback(ctx context.Context, provider string, candidates []Request, opts Options) Result {
	last := Result{Kind: KindUnavailable}
	dead := map[string]struct{}{}
	for i, cand := range candidates {
		host := cand.host()
		if _, skip := dead[host]; skip {
			continue
		}
		res := c.Call(ctx, provider, cand, opts)
		switch res.Kind {
		case KindNone, KindRateLimited:
			return res
		case KindUnavailable:
			dead[host] = struct{}{}
		}
		if ctx.Err() != nil {
			return res
		}
		last = res
		if i < len(candidates)-1 {
			c.logger.Debug("upstream endpoint fallback",
				zap.String("provider", provider),
				zap.String("url", cand.URL),
				zap.Stringer("kind", res.Kind))
		}
	}
	return last
}

// candidates expands every base URL with every path, keeping base order outermost.
func candidates(bases []string, paths ...string) []Request {
	out := make([]Request, 0, len(bases)*len(paths))
	for _, b := range bases {
		for _, p := range paths {
			out = append(out, Get(b+p))
		}
	}
	return out
}
