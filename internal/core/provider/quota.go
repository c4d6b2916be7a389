package provider

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/narrata-av/narrata/internal/core/store"
)

// defaultQuotaLimits are the free-tier character budgets per month for
// services that have one; a service absent from this map is treated as
// unlimited.
var defaultQuotaLimits = map[string]int{
	"google_tts":       1_000_000,
	"google_translate": 500_000,
	"deepl_free":       500_000,
}

// QuotaTracker records monthly character usage per service through the
// ProjectStore, so usage survives across runs without its own sidecar
// file. month() is a hook to keep it testable without real wall-clock
// reads leaking into unit tests.
type QuotaTracker struct {
	st    *store.Store
	month func() string
}

// NewQuotaTracker constructs a tracker persisted through st.
func NewQuotaTracker(st *store.Store) *QuotaTracker {
	return &QuotaTracker{
		st:    st,
		month: func() string { return time.Now().Format("2006-01") },
	}
}

// AddUsage records chars used by service this month.
func (q *QuotaTracker) AddUsage(service string, chars int) {
	if q == nil || q.st == nil {
		return
	}
	_ = q.st.AddQuotaUsage(service, q.month(), chars)
}

// Usage returns the current month's recorded character usage for service.
func (q *QuotaTracker) Usage(service string) int {
	if q == nil || q.st == nil {
		return 0
	}
	month, used, err := q.st.QuotaUsage(service)
	if err != nil || month != q.month() {
		return 0
	}
	return used
}

// Limit returns the known free-tier limit for service, or 0 if unknown.
func (q *QuotaTracker) Limit(service string) int {
	return defaultQuotaLimits[service]
}

// Remaining returns the characters left in service's free tier this
// month, or -1 if the service has no known limit.
func (q *QuotaTracker) Remaining(service string) int {
	limit := q.Limit(service)
	if limit == 0 {
		return -1
	}
	return limit - q.Usage(service)
}

// PercentUsed returns the fraction of service's free tier consumed this
// month, 0 if the service has no known limit.
func (q *QuotaTracker) PercentUsed(service string) float64 {
	limit := q.Limit(service)
	if limit == 0 {
		return 0
	}
	return float64(q.Usage(service)) / float64(limit) * 100
}

// CheckWarning returns a human-readable warning when usage is at or
// above 80% of the free tier, or "" when usage is within bounds or the
// service has no known limit.
func (q *QuotaTracker) CheckWarning(service string) string {
	limit := q.Limit(service)
	if limit == 0 {
		return ""
	}
	percent := q.PercentUsed(service)
	usage := q.Usage(service)
	switch {
	case percent >= 100:
		return fmt.Sprintf("quota exceeded for %s: used %d of %d chars (%.1f%%)", service, usage, limit, percent)
	case percent >= 95:
		return fmt.Sprintf("quota at 95%% for %s: used %d of %d chars", service, usage, limit)
	case percent >= 80:
		return fmt.Sprintf("quota at %.0f%% for %s (%d/%d chars)", percent, service, usage, limit)
	default:
		return ""
	}
}

// Report formats a stable, sorted usage report across every service
// with a known limit.
func (q *QuotaTracker) Report() string {
	services := make([]string, 0, len(defaultQuotaLimits))
	for s := range defaultQuotaLimits {
		services = append(services, s)
	}
	sort.Strings(services)

	lines := []string{"Quota usage:"}
	for _, service := range services {
		used, limit := q.Usage(service), q.Limit(service)
		lines = append(lines, fmt.Sprintf("  %s: %d/%d chars (%.1f%%)", service, used, limit, q.PercentUsed(service)))
	}
	return strings.Join(lines, "\n")
}
