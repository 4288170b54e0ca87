package upstream

// ErrorKind classifies why an upstream call produced no data. It is a value, not an error:
// nothing in this package returns a Go error to callers.
type ErrorKind int

const (
	// KindNone means the call succeeded.
	KindNone ErrorKind = iota
	// KindNotFound is a 404; the endpoint may have moved and an alternate path can be tried.
	KindNotFound
	// KindUnavailable covers timeouts, network errors, non-2xx answers and malformed bodies.
	KindUnavailable
	// KindRateLimited means 429 answers outlasted the retry budget.
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}
