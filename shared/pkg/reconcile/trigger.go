package reconcile

import "time"

// Trigger delivers the ticks that start scheduled passes. Ticks that arrive
// while a pass is running are dropped, never queued.
type Trigger interface {
	C() <-chan time.Time
	Stop()
}

// TriggerFactory arms a trigger that fires every interval, first after one interval
type TriggerFactory func(interval time.Duration) Trigger

type tickerTrigger struct {
	ticker *time.Ticker
}

// NewTickerTrigger is the default TriggerFactory, backed by time.Ticker
func NewTickerTrigger(interval time.Duration) Trigger {
	return &tickerTrigger{ticker: time.NewTicker(interval)}
}

func (t *tickerTrigger) C() <-chan time.Time { return t.ticker.C }
func (t *tickerTrigger) Stop()               { t.ticker.Stop() }
