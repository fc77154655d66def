package answer

import "time"

// Monitor observes answered questions.
type Monitor interface {
	Answered(strategy string, sources int, degraded bool, elapsed time.Duration)
	Failed(err error)
}

type noopMonitor struct{}

func (noopMonitor) Answered(_ string, _ int, _ bool, _ time.Duration) {}
func (noopMonitor) Failed(_ error)                                   {}
