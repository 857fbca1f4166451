package game

import "time"

type tickerGen struct{}

func (tickerGen) Create(d time.Duration) <-chan time.Time {
	return time.NewTicker(d).C
}

// NewTickerGen returns the production ticker source.
func NewTickerGen() PeriodicTickerChannelCreator {
	return tickerGen{}
}
