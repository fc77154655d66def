package ingestion

import "time"

// Monitor observes ingestion outcomes.
type Monitor interface {
	Ingested(document string, fragments, failedBatches int, elapsed time.Duration)
	Failed(document string, err error)
	Deleted(document string, fragments int)
}

type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (noopMonitor) Ingested(_ string, _, _ int, _ time.Duration) {}
func (noopMonitor) Failed(_ string, _ error)                     {}
func (noopMonitor) Deleted(_ string, _ int)                      {}

// Fanout returns a Monitor that forwards every event to each of monitors.
// Nil monitors are skipped.
func Fanout(monitors ...Monitor) Monitor {
	out := make(fanout, 0, len(monitors))
	for _, m := range monitors {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

type fanout []Monitor

func (f fanout) Ingested(document string, fragments, failedBatches int, elapsed time.Duration) {
	for _, m := range f {
		m.Ingested(document, fragments, failedBatches, elapsed)
	}
}

func (f fanout) Failed(document string, err error) {
	for _, m := range f {
		m.Failed(document, err)
	}
}

func (f fanout) Deleted(document string, fragments int) {
	for _, m := range f {
		m.Deleted(document, fragments)
	}
}
