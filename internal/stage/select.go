package stage

import (
	"math"
	"sort"

	"github.com/osu2sm/osu2sm/internal/chart"
	"github.com/osu2sm/osu2sm/internal/pipeline"
)

// SelectStrategy is the preference strategy Select uses to truncate a
// group of same-(music,gamemode) simfiles down to MaxPerGroup, per
// spec.md §4.8.
type SelectStrategy int

const (
	Spread SelectStrategy = iota
	ClosestMatch
	Easier
	Harder
)

// Select groups simfiles by (music, gamemode), truncates each group to at
// most MaxPerGroup difficulties, deduplicates charts whose difficulty_num
// falls within DedupDist of each other (keeping the one at DedupBias's
// position within the cluster), then assigns a Labels[i] per surviving
// chart in ascending difficulty order.
//
// Simplification (see DESIGN.md): ClosestMatch here is "nearest target
// without replacement", not the optional dataset-stretching variant the
// prose allows; label-collision resolution is positional (sorted index
// into Labels) rather than a true cost-minimising search.
type Select struct {
	In, Out *pipeline.Port

	MaxPerGroup int
	Strategy    SelectStrategy
	Targets     []float64 // ClosestMatch target difficulty_num values
	DedupDist   float64
	DedupBias   float64 // 0=keep easiest of cluster, 1=keep hardest
	Labels      []string
}

func NewSelect(maxPerGroup int, strategy SelectStrategy) *Select {
	return &Select{
		In: pipeline.AutoPort("in"), Out: pipeline.AutoPort("out"),
		MaxPerGroup: maxPerGroup, Strategy: strategy, DedupBias: 0.5,
	}
}

func (s *Select) Name() string              { return "select" }
func (s *Select) Inputs() []*pipeline.Port  { return []*pipeline.Port{s.In} }
func (s *Select) Outputs() []*pipeline.Port { return []*pipeline.Port{s.Out} }
func (s *Select) Prepare() error            { return nil }

func (s *Select) Apply(store *pipeline.Store) error {
	inName, take, err := s.In.Resolved()
	if err != nil {
		return err
	}
	outName, _, err := s.Out.Resolved()
	if err != nil {
		return err
	}

	list := store.Read(inName, take)
	result := selectAndLabel(list, s.MaxPerGroup, s.Strategy, s.Targets, s.DedupDist, s.DedupBias, s.Labels)
	store.Put(outName, result)
	return nil
}

type groupKey struct {
	music, gamemode string
}

func groupByMusicAndMode(list []*chart.Simfile) map[groupKey][]*chart.Simfile {
	groups := map[groupKey][]*chart.Simfile{}
	for _, sf := range list {
		k := groupKey{sf.MusicPath, sf.Gamemode}
		groups[k] = append(groups[k], sf)
	}
	return groups
}

// selectAndLabel is shared by Select and SimfileFix.
func selectAndLabel(list []*chart.Simfile, maxPerGroup int, strategy SelectStrategy, targets []float64, dedupDist, dedupBias float64, labels []string) []*chart.Simfile {
	var result []*chart.Simfile
	groups := groupByMusicAndMode(list)
	seen := map[groupKey]bool{}
	for _, first := range list {
		k := groupKey{first.MusicPath, first.Gamemode}
		if seen[k] {
			continue
		}
		seen[k] = true
		group := groups[k]
		sort.SliceStable(group, func(i, j int) bool { return group[i].DifficultyNum < group[j].DifficultyNum })

		picked := pickByStrategy(group, maxPerGroup, strategy, targets)
		deduped := dedup(picked, dedupDist, dedupBias)

		for i, sf := range deduped {
			if len(labels) > 0 {
				idx := i
				if idx >= len(labels) {
					idx = len(labels) - 1
				}
				sf.DifficultyLabel = labels[idx]
			}
			result = append(result, sf)
		}
	}
	return result
}

func pickByStrategy(group []*chart.Simfile, maxPerGroup int, strategy SelectStrategy, targets []float64) []*chart.Simfile {
	if maxPerGroup <= 0 || len(group) <= maxPerGroup {
		return group
	}
	switch strategy {
	case Easier:
		return group[:maxPerGroup]
	case Harder:
		return group[len(group)-maxPerGroup:]
	case ClosestMatch:
		return pickClosest(group, targets, maxPerGroup)
	default: // Spread
		return pickSpread(group, maxPerGroup)
	}
}

// pickSpread evicts charts one at a time from group (already sorted
// ascending by difficulty) until n remain, each time removing the chart
// that matches an evenly-spaced value dataset worst. The dataset is
// computed once from group's min/max difficulty: for n >= 2 its first and
// last points sit on the min and max, so the two endpoints are kept; for
// n == 1 its single point is the midpoint, so the chart closest to the
// middle is kept.
func pickSpread(group []*chart.Simfile, n int) []*chart.Simfile {
	if n <= 0 || len(group) <= n {
		return group
	}

	min := group[0].DifficultyNum
	max := group[len(group)-1].DifficultyNum
	rng := max - min

	var dataset []float64
	if n == 1 {
		dataset = []float64{min + rng/2}
	} else {
		dataset = make([]float64, n)
		for i := range dataset {
			dataset[i] = min + rng*float64(i)/float64(n-1)
		}
	}
	return evictToDataset(group, dataset, n)
}

// evictToDataset repeatedly removes the chart whose difficulty_num has
// the largest nearest-dataset-point gap, until only n remain.
func evictToDataset(group []*chart.Simfile, dataset []float64, n int) []*chart.Simfile {
	kept := append([]*chart.Simfile(nil), group...)
	for len(kept) > n {
		worst, worstGap := 0, -1.0
		for i, sf := range kept {
			gap := nearestGap(sf.DifficultyNum, dataset)
			if gap > worstGap {
				worstGap, worst = gap, i
			}
		}
		kept = append(kept[:worst], kept[worst+1:]...)
	}
	return kept
}

// nearestGap returns the smaller of d's distance to the dataset point
// immediately below it and immediately above it.
func nearestGap(d float64, dataset []float64) float64 {
	idx := sort.Search(len(dataset), func(i int) bool { return dataset[i] >= d })
	prevGap := math.Inf(1)
	if idx > 0 {
		prevGap = d - dataset[idx-1]
	}
	nextGap := math.Inf(1)
	if idx < len(dataset) {
		nextGap = dataset[idx] - d
	}
	return math.Min(prevGap, nextGap)
}

func pickClosest(group []*chart.Simfile, targets []float64, n int) []*chart.Simfile {
	used := make(map[int]bool)
	var out []*chart.Simfile
	for i := 0; i < n && i < len(targets); i++ {
		best, bestDist := -1, math.Inf(1)
		for j, sf := range group {
			if used[j] {
				continue
			}
			d := math.Abs(sf.DifficultyNum - targets[i])
			if d < bestDist {
				bestDist, best = d, j
			}
		}
		if best >= 0 {
			used[best] = true
			out = append(out, group[best])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DifficultyNum < out[j].DifficultyNum })
	return out
}

// dedup clusters adjacent (already difficulty-sorted) charts within dist
// of each other and keeps one representative per cluster, at position
// round(bias*(size-1)) within it.
func dedup(sorted []*chart.Simfile, dist, bias float64) []*chart.Simfile {
	if dist <= 0 || len(sorted) == 0 {
		return sorted
	}
	var result []*chart.Simfile
	i := 0
	for i < len(sorted) {
		j := i + 1
		for j < len(sorted) && sorted[j].DifficultyNum-sorted[j-1].DifficultyNum <= dist {
			j++
		}
		size := j - i
		pick := i + int(math.Round(bias*float64(size-1)))
		result = append(result, sorted[pick])
		i = j
	}
	return result
}
