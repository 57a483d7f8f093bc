package metrics

import (
	"fmt"
	"time"

	"github.com/mutgos/mutgos/pkg/types"
)

// SiteInventory is the small surface the collector needs from the
// Database Access façade. Kept as a local interface (rather than
// importing pkg/dbaccess directly) so metrics has no dependency on the
// component that depends on it.
type SiteInventory interface {
	SiteIds() []types.SiteId
	CountEntitiesByType(site types.SiteId) map[types.EntityType]int
	CacheRefCount(site types.SiteId) int
}

// Collector periodically samples gauge-shaped metrics from the façade;
// counters and histograms are updated inline by the components that
// observe them directly.
type Collector struct {
	inventory SiteInventory
	stopCh    chan struct{}
}

func NewCollector(inventory SiteInventory) *Collector {
	return &Collector{inventory: inventory, stopCh: make(chan struct{})}
}

func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	sites := c.inventory.SiteIds()
	SitesTotal.Set(float64(len(sites)))

	for _, site := range sites {
		siteLabel := fmt.Sprintf("%d", site)
		for t, count := range c.inventory.CountEntitiesByType(site) {
			EntitiesTotal.WithLabelValues(siteLabel, t.String()).Set(float64(count))
		}
		CacheRefsTotal.WithLabelValues(siteLabel).Set(float64(c.inventory.CacheRefCount(site)))
	}
}
