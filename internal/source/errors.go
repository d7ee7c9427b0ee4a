package source

import "fmt"

// FetchKind classifies a fetch failure.
type FetchKind string

const (
	KindNetworkUnavailable   FetchKind = "network_unavailable"
	KindSiteStructureChanged FetchKind = "site_structure_changed"
	KindRateLimited          FetchKind = "rate_limited"
	KindNotFound             FetchKind = "not_found"
)

// FetchError represents a failed fetch against a marketplace.
type FetchError struct {
	Kind FetchKind
	Site string
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s fetch failed (%s): %v", e.Site, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s fetch failed (%s)", e.Site, e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// statusKind maps an HTTP status code to a failure kind.
// Listing gone: 404/410. Blocked or throttled: 403/429. Server side
// and anything else unexpected: network unavailable.
func statusKind(code int) FetchKind {
	switch code {
	case 404, 410:
		return KindNotFound
	case 403, 429:
		return KindRateLimited
	default:
		return KindNetworkUnavailable
	}
}
