package labctl

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DeviceSpec names one device to add to a Fleet.
type DeviceSpec struct {
	DeviceID string
	Adapter  Adapter
	Options  *Options
}

// Fleet composes one Scheduler per physical device and coordinates
// concurrent startup/shutdown across all of them. §1 requires a fleet of
// heterogeneous instruments to be driven concurrently; Fleet is pure
// composition over Scheduler and introduces no new per-device semantics.
type Fleet struct {
	mu         sync.RWMutex
	schedulers map[string]*Scheduler
}

func NewFleet() *Fleet {
	return &Fleet{schedulers: make(map[string]*Scheduler)}
}

// Add creates a scheduler for one device and adds it to the fleet.
func (f *Fleet) Add(deviceID string, adapter Adapter, opts *Options) (*Scheduler, error) {
	s, err := Create(deviceID, adapter, opts)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.schedulers[deviceID] = s
	f.mu.Unlock()
	return s, nil
}

// NewFleetFromSpecs builds a fleet from several device specs at once,
// creating every scheduler concurrently via errgroup.Group so one slow
// initial-connect attempt doesn't serialize the rest. A failure to
// construct any single scheduler (e.g. a nil adapter) fails the whole call
// and tears down whatever schedulers did start.
func NewFleetFromSpecs(ctx context.Context, specs []DeviceSpec) (*Fleet, error) {
	f := NewFleet()
	g, _ := errgroup.WithContext(ctx)

	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			_, err := f.Add(spec.DeviceID, spec.Adapter, spec.Options)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		f.Shutdown(context.Background())
		return nil, err
	}
	return f, nil
}

func (f *Fleet) Get(deviceID string) (*Scheduler, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.schedulers[deviceID]
	return s, ok
}

func (f *Fleet) DeviceIDs() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ids := make([]string, 0, len(f.schedulers))
	for id := range f.schedulers {
		ids = append(ids, id)
	}
	return ids
}

// Stats returns every scheduler's stats keyed by device ID.
func (f *Fleet) Stats() map[string]Stats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]Stats, len(f.schedulers))
	for id, s := range f.schedulers {
		out[id] = s.Stats()
	}
	return out
}

// Shutdown destroys every scheduler in the fleet concurrently, waiting for
// all of them to finish before returning.
func (f *Fleet) Shutdown(ctx context.Context) error {
	f.mu.RLock()
	schedulers := make([]*Scheduler, 0, len(f.schedulers))
	for _, s := range f.schedulers {
		schedulers = append(schedulers, s)
	}
	f.mu.RUnlock()

	g, _ := errgroup.WithContext(ctx)
	for _, s := range schedulers {
		s := s
		g.Go(func() error {
			s.Destroy()
			return nil
		})
	}
	return g.Wait()
}
