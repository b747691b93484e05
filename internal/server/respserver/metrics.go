package respserver

import "time"

// Metrics receives server events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ObserveCommand(command string, ok bool, d time.Duration)
	ConnOpened()
	ConnClosed()
	ProtocolError()
	RateLimited()
}

type nopMetrics struct{}

func (nopMetrics) ObserveCommand(string, bool, time.Duration) {}
func (nopMetrics) ConnOpened()                                {}
func (nopMetrics) ConnClosed()                                {}
func (nopMetrics) ProtocolError()                             {}
func (nopMetrics) RateLimited()                               {}
