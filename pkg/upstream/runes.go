package upstream

import (
	"context"
	"fmt"
	"net/url"
)

// RuneCount returns how many distinct runes address holds.
func (c *Client) RuneCount(ctx context.Context, address string) (int64, bool) {
	addr := url.PathEscape(address)
	res := c.caller.WithEndpointFallback(ctx, ProviderIndexer,
		bearer(candidates(c.ep.Indexer,
			fmt.Sprintf(runesPath, addr),
			fmt.Sprintf(runesAltPath, addr),
		), c.ep.IndexerAPIKey),
		c.envelopeOpts("indexer:runes:"+address, c.ep.TTL.Counts, true),
	)
	data, ok := decodeEnvelope[countData](res)
	if !ok || data.Total < 0 {
		return 0, false
	}
	return data.Total, true
}
