package application

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// warningCache stores recently computed conflict warnings so identical list
// queries skip the detector while bookings remain unchanged. Any booking
// write purges it.
type warningCache struct {
	entries *expirable.LRU[string, []ConflictWarning]
}

func newWarningCache(ttl time.Duration, maxEntries int) *warningCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	return &warningCache{entries: expirable.NewLRU[string, []ConflictWarning](maxEntries, nil, ttl)}
}

func (c *warningCache) Get(key string) ([]ConflictWarning, bool) {
	if c == nil {
		return nil, false
	}
	warnings, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return slices.Clone(warnings), true
}

func (c *warningCache) Store(key string, warnings []ConflictWarning) {
	if c == nil {
		return
	}
	c.entries.Add(key, slices.Clone(warnings))
}

func (c *warningCache) Invalidate() {
	if c == nil {
		return
	}
	c.entries.Purge()
}

func (c *warningCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

func buildWarningCacheKey(params ListBookingsParams) string {
	var b strings.Builder
	b.WriteString(params.Principal.UserID)
	if params.Mine {
		b.WriteString("|mine")
	}
	b.WriteString("|")
	if params.Start != nil {
		b.WriteString(params.Start.UTC().Format(time.RFC3339Nano))
	}
	b.WriteString("|")
	if params.End != nil {
		b.WriteString(params.End.UTC().Format(time.RFC3339Nano))
	}
	b.WriteString("|")
	if params.RoomID != nil {
		fmt.Fprintf(&b, "%d", *params.RoomID)
	}
	b.WriteString("|")
	statuses := make([]string, len(params.Statuses))
	for i, s := range params.Statuses {
		statuses[i] = string(s)
	}
	slices.Sort(statuses)
	b.WriteString(strings.Join(statuses, ","))
	return b.String()
}
