package upstream

import (
	"context"
	"fmt"
	"net/url"
)

type countData struct {
	Total int64 `json:"total"`
}

// InscriptionCount returns how many inscriptions (ordinals) address holds.
func (c *Client) InscriptionCount(ctx context.Context, address string) (int64, bool) {
	addr := url.PathEscape(address)
	res := c.caller.WithEndpointFallback(ctx, ProviderIndexer,
		bearer(candidates(c.ep.Indexer,
			fmt.Sprintf(inscriptionPath, addr),
			fmt.Sprintf(inscriptionAltPath, addr),
		), c.ep.IndexerAPIKey),
		c.envelopeOpts("indexer:inscriptions:"+address, c.ep.TTL.Counts, true),
	)
	data, ok := decodeEnvelope[countData](res)
	if !ok || data.Total < 0 {
		return 0, false
	}
	return data.Total, true
}
