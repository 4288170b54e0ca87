package audit

import (
	"fmt"
	"strings"
)

var bech32Prefixes = []string{"bc1", "tb1", "bcrt1"}

// NormalizeAddress validates a chain address and returns its canonical form. Bech32 addresses
// are case-insensitive and are lowercased; base58 addresses are case-sensitive and kept as-is.
func NormalizeAddress(raw string) (string, error) {
	addr := strings.TrimSpace(raw)
	if addr == "" {
		return "", fmt.Errorf("%w: address is required", ErrInvalidAddress)
	}
	if len(addr) < 14 || len(addr) > 100 {
		return "", fmt.Errorf("%w: unexpected length %d", ErrInvalidAddress, len(addr))
	}
	for _, r := range addr {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return "", fmt.Errorf("%w: unexpected character %q", ErrInvalidAddress, r)
		}
	}
	lower := strings.ToLower(addr)
	for _, p := range bech32Prefixes {
		if strings.HasPrefix(lower, p) {
			return lower, nil
		}
	}
	return addr, nil
}
