package rate

import "time"

// Window represents a provider rate-limit bucket. Netatmo enforces budgets
// per 10 seconds and per hour for each user token.
type Window int

const (
	TenSeconds Window = iota
	Hour
)

func (w Window) String() string {
	switch w {
	case TenSeconds:
		return "10s"
	case Hour:
		return "hour"
	default:
		return "unknown"
	}
}

func (w Window) Duration() time.Duration {
	switch w {
	case TenSeconds:
		return 10 * time.Second
	case Hour:
		return time.Hour
	default:
		return time.Minute
	}
}

// Declaration defines a provider's rate limits.
type Declaration struct {
	provider string
	limits   map[Window]int
	cacheTTL time.Duration
}

// Provider creates a new declaration for a provider.
func Provider(name string) Declaration {
	return Declaration{provider: name}
}

func (d Declaration) ProviderName() string {
	return d.provider
}

func (d Declaration) MaxRequestsPer(window Window, limit int) Declaration {
	limits := make(map[Window]int, len(d.limits)+1)
	for w, l := range d.limits {
		limits[w] = l
	}
	limits[window] = limit
	d.limits = limits
	return d
}

// CacheFor enables serving cached responses while calls are blocked.
func (d Declaration) CacheFor(ttl time.Duration) Declaration {
	d.cacheTTL = ttl
	return d
}

func (d Declaration) Limits() map[Window]int {
	return d.limits
}

func (d Declaration) CacheTTL() time.Duration {
	return d.cacheTTL
}

func (d Declaration) HasLimits() bool {
	return len(d.limits) > 0
}

// Netatmo returns the documented per-user budgets for the Netatmo API.
func Netatmo() Declaration {
	return Provider("netatmo").
		MaxRequestsPer(TenSeconds, 50).
		MaxRequestsPer(Hour, 500).
		CacheFor(30 * time.Second)
}
