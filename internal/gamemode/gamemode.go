// Package gamemode holds the bijection between a gamemode tag and its
// StepMania id string / key count, per spec.md §6.
package gamemode

import "fmt"

// Info is one entry of the gamemode table: the StepMania id string this
// gamemode serializes as, and its key count.
type Info struct {
	Tag      string
	ID       string
	KeyCount int
}

var table = []Info{
	{Tag: "dance-single", ID: "dance-single", KeyCount: 4},
	{Tag: "dance-double", ID: "dance-double", KeyCount: 8},
	{Tag: "dance-solo", ID: "dance-solo", KeyCount: 6},
	{Tag: "dance-threepanel", ID: "dance-threepanel", KeyCount: 3},
	{Tag: "pump-single", ID: "pump-single", KeyCount: 5},
	{Tag: "pump-double", ID: "pump-double", KeyCount: 10},
	{Tag: "pump-halfdouble", ID: "pump-halfdouble", KeyCount: 6},
	{Tag: "kb7-single", ID: "kb7-single", KeyCount: 7},
	{Tag: "pnm-five", ID: "pnm-five", KeyCount: 5},
	{Tag: "pnm-nine", ID: "pnm-nine", KeyCount: 9},
	{Tag: "bm-double5", ID: "bm-double5", KeyCount: 12},
	{Tag: "bm-double7", ID: "bm-double7", KeyCount: 16},
}

var byTag = func() map[string]Info {
	m := make(map[string]Info, len(table))
	for _, info := range table {
		m[info.Tag] = info
	}
	return m
}()

var byKeyCount = func() map[int]Info {
	m := make(map[int]Info, len(table))
	for _, info := range table {
		if _, ok := m[info.KeyCount]; !ok {
			m[info.KeyCount] = info
		}
	}
	return m
}()

// Lookup returns the Info for a gamemode tag.
func Lookup(tag string) (Info, error) {
	info, ok := byTag[tag]
	if !ok {
		return Info{}, fmt.Errorf("gamemode: unknown tag %q", tag)
	}
	return info, nil
}

// ForKeyCount returns the default gamemode for a bare key count, used when
// the converter or a remap target is specified only as a number of keys
// (e.g. mania-4 input mapped to dance-single output).
func ForKeyCount(keyCount int) (Info, error) {
	info, ok := byKeyCount[keyCount]
	if !ok {
		return Info{}, fmt.Errorf("gamemode: no known gamemode has %d keys", keyCount)
	}
	return info, nil
}

// All returns every table entry.
func All() []Info {
	return append([]Info(nil), table...)
}
