package metrics

import (
	"time"

	"github.com/ozone/repmgr/pkg/events"
)

// TopicSource is the subset of *events.Bus the collector needs: anything
// that can report per-topic stats by name.
type TopicSource interface {
	Stats(name string) (events.Stats, bool)
}

// Collector polls one or more event bus topics on an interval and mirrors
// their counters into the Prometheus gauges above.
type Collector struct {
	bus    TopicSource
	topics []string
	stopCh chan struct{}
}

// NewCollector creates a metrics collector for the named topics.
func NewCollector(bus TopicSource, topics ...string) *Collector {
	return &Collector{
		bus:    bus,
		topics: topics,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics every interval, immediately and then on
// a ticker, until Stop is called.
func (c *Collector) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
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

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	for _, name := range c.topics {
		stats, ok := c.bus.Stats(name)
		if !ok {
			continue
		}
		EventsQueued.WithLabelValues(name).Set(float64(stats.Queued))
		EventsScheduled.WithLabelValues(name).Set(float64(stats.Scheduled))
		EventsDone.WithLabelValues(name).Set(float64(stats.Done))
		EventsFailed.WithLabelValues(name).Set(float64(stats.Failed))
	}
}
