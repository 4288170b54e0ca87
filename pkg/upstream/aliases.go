package upstream

import (
	"github.com/fractal-terminal/terminalx/pkg/asset"
	"github.com/puzpuzpuz/xsync/v4"
)

// Aliases remembers the raw spelling upstreams use for each canonical ticker, so queries that
// need the raw form (pool lookups) can be issued from normalized input.
type Aliases struct {
	raw *xsync.Map[string, string]
}

// NewAliases seeds the registry with known raw spellings, e.g. "sFB___000".
func NewAliases(seed ...string) *Aliases {
	a := &Aliases{raw: xsync.NewMap[string, string]()}
	for _, s := range seed {
		a.Remember(s)
	}
	return a
}

// Remember records raw and returns its canonical ticker. An already-known mapping is kept.
func (a *Aliases) Remember(raw string) string {
	ticker := asset.NormalizeTicker(raw)
	if ticker == "" {
		return ""
	}
	if ticker != raw {
		a.raw.LoadOrStore(ticker, raw)
	}
	return ticker
}

// Raw returns the upstream spelling for ticker, or ticker itself when none is known.
func (a *Aliases) Raw(ticker string) string {
	if raw, ok := a.raw.Load(asset.NormalizeTicker(ticker)); ok {
		return raw
	}
	return ticker
}
