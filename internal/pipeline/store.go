// Package pipeline implements the transformation pipeline of spec.md §4.9:
// named buckets of owned simfile lists, a DAG of stages resolved and
// linearised with last-read ownership transfer, and the driver that runs
// the resolved stage order once per beatmap set.
package pipeline

import "github.com/osu2sm/osu2sm/internal/chart"

// Store is the single piece of shared mutable state a pipeline run owns:
// named lists of simfiles ("buckets"). It is reset between beatmap sets.
type Store struct {
	lists map[string][]*chart.Simfile
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{lists: make(map[string][]*chart.Simfile)}
}

// Reset discards every bucket, ready for the next beatmap set.
func (s *Store) Reset() {
	s.lists = make(map[string][]*chart.Simfile)
}

// Peek returns the bucket's contents without taking ownership. The caller
// must not mutate the returned slice or its elements in place; Clone a
// simfile before mutating it. The Null bucket ("") always reads as empty.
func (s *Store) Peek(name string) []*chart.Simfile {
	if name == "" {
		return nil
	}
	return s.lists[name]
}

// Take removes and returns a bucket's contents, transferring ownership to
// the caller. The Null bucket discards silently.
func (s *Store) Take(name string) []*chart.Simfile {
	if name == "" {
		return nil
	}
	list := s.lists[name]
	delete(s.lists, name)
	return list
}

// Put stores list as the named bucket's new contents, replacing whatever
// was there. Writes to the Null bucket are discarded.
func (s *Store) Put(name string, list []*chart.Simfile) {
	if name == "" {
		return
	}
	s.lists[name] = list
}

// Append adds to a bucket's existing contents rather than replacing them,
// used by Pipe's optional merge semantics.
func (s *Store) Append(name string, list []*chart.Simfile) {
	if name == "" {
		return
	}
	s.lists[name] = append(s.lists[name], list...)
}

// CloneSimfile deep-enough-copies a simfile so a non-last reader can
// mutate its own copy without disturbing a bucket another stage still
// owns a reference to.
func CloneSimfile(sf *chart.Simfile) *chart.Simfile {
	clone := *sf
	clone.BPMs = append([]chart.ControlPoint(nil), sf.BPMs...)
	clone.Stops = append([]chart.Stop(nil), sf.Stops...)
	clone.Notes = append([]chart.Note(nil), sf.Notes...)
	return &clone
}

// CloneList clones every simfile in a list.
func CloneList(list []*chart.Simfile) []*chart.Simfile {
	out := make([]*chart.Simfile, len(list))
	for i, sf := range list {
		out[i] = CloneSimfile(sf)
	}
	return out
}

// Read fetches a resolved port's bucket, taking ownership if take is true
// and cloning otherwise, so a stage never mutates data another reader
// still needs.
func (s *Store) Read(name string, take bool) []*chart.Simfile {
	if take {
		return s.Take(name)
	}
	return CloneList(s.Peek(name))
}
