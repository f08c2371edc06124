package ledger

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Store owns the current ledger. Readers get an immutable snapshot; a reload
// swaps the pointer, so in-flight readers keep a consistent view.
type Store struct {
	src     Source
	log     zerolog.Logger
	current atomic.Pointer[Ledger]
	group   singleflight.Group
}

// NewStore creates a store that loads from src. Nothing is loaded until the
// first Reload.
func NewStore(src Source, log zerolog.Logger) *Store {
	return &Store{
		src: src,
		log: log.With().Str("component", "ledger_store").Str("source", src.Name()).Logger(),
	}
}

// Current returns the active ledger.
func (s *Store) Current() (*Ledger, error) {
	l := s.current.Load()
	if l == nil {
		return nil, ErrNoLedger
	}
	return l, nil
}

// Reload loads the source again and swaps it in. Concurrent calls share one
// load. On failure the previous ledger stays active and the error is returned.
func (s *Store) Reload(ctx context.Context) (*Ledger, error) {
	v, err, shared := s.group.Do("reload", func() (interface{}, error) {
		l, err := Load(ctx, s.src)
		if err != nil {
			return nil, err
		}
		s.current.Store(l)
		return l, nil
	})
	if err != nil {
		ev := s.log.Warn().Err(err)
		if prev := s.current.Load(); prev != nil {
			ev = ev.Int("kept_transactions", prev.Len())
		}
		ev.Msg("Ledger reload failed")
		return nil, err
	}

	l := v.(*Ledger)
	s.log.Info().
		Int("transactions", l.Len()).
		Bool("shared", shared).
		Msg("Ledger reloaded")

	return l, nil
}
