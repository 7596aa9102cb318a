package coordinator

import (
	"context"
	"sync"

	"github.com/kbukum/phrame/provider"
)

// StateKey is the store key of the runtime state.
const StateKey = "phrame:state"

// ImageState controls what the frame display shows.
type ImageState struct {
	Index   int  `json:"index"`
	Summary bool `json:"summary"`
	Cycle   bool `json:"cycle"`
}

// RuntimeState holds the switches operators flip at runtime.
type RuntimeState struct {
	// Processing is set while a cycle runs.
	Processing bool       `json:"processing"`
	Cron       bool       `json:"cron"`
	Image      ImageState `json:"image"`
}

// DefaultRuntimeState returns the state used before anything was saved.
func DefaultRuntimeState() RuntimeState {
	return RuntimeState{
		Cron:  true,
		Image: ImageState{Summary: true, Cycle: true},
	}
}

// ImagePatch is the image part of a StatePatch.
type ImagePatch struct {
	Index   *int  `json:"index,omitempty"`
	Summary *bool `json:"summary,omitempty"`
	Cycle   *bool `json:"cycle,omitempty"`
}

// StatePatch updates the fields that are set and keeps the rest.
type StatePatch struct {
	Processing *bool       `json:"processing,omitempty"`
	Cron       *bool       `json:"cron,omitempty"`
	Image      *ImagePatch `json:"image,omitempty"`
}

func (p StatePatch) apply(s *RuntimeState) {
	if p.Processing != nil {
		s.Processing = *p.Processing
	}
	if p.Cron != nil {
		s.Cron = *p.Cron
	}
	if p.Image == nil {
		return
	}
	if p.Image.Index != nil {
		s.Image.Index = *p.Image.Index
	}
	if p.Image.Summary != nil {
		s.Image.Summary = *p.Image.Summary
	}
	if p.Image.Cycle != nil {
		s.Image.Cycle = *p.Image.Cycle
	}
}

// StateStore reads and patches the RuntimeState kept in a provider.Store.
// Patches are serialized within the process.
type StateStore struct {
	mu    sync.Mutex
	store provider.Store[RuntimeState]
}

// NewStateStore creates a StateStore over store, in memory when nil.
func NewStateStore(store provider.Store[RuntimeState]) *StateStore {
	if store == nil {
		store = provider.NewMemoryStore[RuntimeState]()
	}
	return &StateStore{store: store}
}

// Get returns the current state, or the default when none was saved.
func (s *StateStore) Get(ctx context.Context) (RuntimeState, error) {
	st, err := s.store.Load(ctx, StateKey)
	if err != nil {
		return RuntimeState{}, err
	}
	if st == nil {
		return DefaultRuntimeState(), nil
	}
	return *st, nil
}

// Patch merges p into the current state and saves it.
func (s *StateStore) Patch(ctx context.Context, p StatePatch) (RuntimeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.Get(ctx)
	if err != nil {
		return RuntimeState{}, err
	}
	p.apply(&st)
	if err := s.store.Save(ctx, StateKey, &st, 0); err != nil {
		return RuntimeState{}, err
	}
	return st, nil
}

// SetProcessing sets the processing flag.
func (s *StateStore) SetProcessing(ctx context.Context, v bool) error {
	_, err := s.Patch(ctx, StatePatch{Processing: &v})
	return err
}

// Recover clears a processing flag left behind by a previous process.
func (s *StateStore) Recover(ctx context.Context) error {
	return s.SetProcessing(ctx, false)
}
