package store

import "time"

// PassStats describes one notification pass.
type PassStats struct {
	Start time.Time
	End   time.Time

	// Entries is the number of recorded paths recomputed.
	Entries int

	// Changed is the number of recorded paths whose value changed.
	Changed int

	// Dropped is the number of recorded paths removed because they no longer resolve.
	Dropped int

	// Notified is the number of callbacks invoked.
	Notified int
}

// WriteStats describes one write through a terminal handle.
type WriteStats struct {
	Path string

	// NoOp is true when the written value was the same as the current one.
	NoOp bool

	// Deferred is true when notification waits for an explicit Sync.
	Deferred bool
}

// Observer receives store activity. Implementations live in pkg/observe.
// Observers are called synchronously and must not write to the store.
type Observer interface {
	ObservePass(PassStats)
	ObserveWrite(WriteStats)
}

// Observers fans activity out to several observers.
type Observers []Observer

// ObservePass implements Observer.
func (os Observers) ObservePass(s PassStats) {
	for _, o := range os {
		o.ObservePass(s)
	}
}

// ObserveWrite implements Observer.
func (os Observers) ObserveWrite(s WriteStats) {
	for _, o := range os {
		o.ObserveWrite(s)
	}
}

type nopObserver struct{}

func (nopObserver) ObservePass(PassStats)   {}
func (nopObserver) ObserveWrite(WriteStats) {}
