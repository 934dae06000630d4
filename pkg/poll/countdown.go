package poll

import "time"

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFunc func(time.Duration) Ticker

type timeTicker struct {
	ticker *time.Ticker
}

func NewTimeTicker(interval time.Duration) Ticker {
	return &timeTicker{ticker: time.NewTicker(interval)}
}

func (t *timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *timeTicker) Stop() {
	t.ticker.Stop()
}

// countdown is the timer handle of a single poll. The coordinator only
// ever reads the ticker of the handle it currently holds, so a stopped
// handle cannot affect any poll.
type countdown struct {
	pollId PollId
	ticker Ticker
}

func (c *countdown) stop() {
	c.ticker.Stop()
}
