package kpi

import (
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/manufab-platform/kpi-core/pkg/metrics"
)

// Cache is the read-through layer keyed by {tenant, kpi, filter_fingerprint,
// window}, deduplicating concurrent misses for the same key via
// singleflight so concurrent callers resolving the same request collapse
// into a single compute.
type Cache struct {
	mem   *gocache.Cache
	group singleflight.Group
}

// NewCache builds a cache with the given TTL (entries are also dropped
// when Invalidate is called, see there).
func NewCache(ttl time.Duration) *Cache {
	return &Cache{mem: gocache.New(ttl, 2*ttl)}
}

func fingerprint(filter Filter) string {
	return fmt.Sprintf("%s/%s/%s", filter.ShiftID, filter.ProductID, filter.WorkOrderID)
}

func cacheKey(kpiName, clientID string, window Window, filter Filter) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d", clientID, kpiName, fingerprint(filter), window.From.Unix(), window.To.Unix())
}

// Through serves kpiName for clientID/window/filter from cache, computing
// and storing it on a miss. Concurrent misses for the same key collapse
// into a single compute call.
func (c *Cache) Through(kpiName, clientID string, window Window, filter Filter, compute func() (Result, error)) (Result, error) {
	key := cacheKey(kpiName, clientID, window, filter)
	if v, found := c.mem.Get(key); found {
		metrics.ObserveKPICacheHit(kpiName)
		return v.(Result), nil
	}
	metrics.ObserveKPICacheMiss(kpiName)

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		start := time.Now()
		res, err := compute()
		metrics.ObserveKPIEval(kpiName, time.Since(start).Seconds())
		if err != nil {
			return Result{}, err
		}
		c.mem.SetDefault(key, res)
		return res, nil
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// Invalidate drops every cached KPI value for clientID. Nothing in this
// module calls it: committing ProductionEntryCreated, DowntimeClosed,
// QualityInspectionRecorded, HoldCreated/Resumed or WorkOrderStatusChanged
// events does not clear the cache, and a cached value stays in place until
// its TTL expires.
func (c *Cache) Invalidate(clientID string) {
	prefix := clientID + "|"
	for key := range c.mem.Items() {
		if strings.HasPrefix(key, prefix) {
			c.mem.Delete(key)
		}
	}
}
