package timeline

import (
	"errors"
	"math"
	"math/rand"
)

// ErrNoMaterial is returned when Fit is given an empty item list. The video
// pipeline treats it as fatal; the audio pipeline treats it as "no track of
// this kind".
var ErrNoMaterial = errors.New("no material to fit")

// Item is a probed media file participating in duration fitting.
type Item struct {
	Path     string
	Duration float64
}

// Plan is the loop/trim decision for a target duration. Items may repeat
// across loop iterations; TrimLastBy is how much to cut from the tail of the
// final item so the plan sums to exactly the target.
type Plan struct {
	Items      []Item
	TrimLastBy float64
}

// TotalDuration returns the summed duration of all plan items before the
// trailing trim is applied.
func (p Plan) TotalDuration() float64 {
	var total float64
	for _, it := range p.Items {
		total += it.Duration
	}
	return total
}

// Fit selects and, when necessary, replicates items so their durations cover
// target seconds, then computes the trailing trim. When shuffle is set the
// input order is permuted uniformly using rng before replication, so every
// loop iteration repeats the same shuffled sequence.
func Fit(items []Item, target float64, shuffle bool, rng *rand.Rand) (Plan, error) {
	if len(items) == 0 {
		return Plan{}, ErrNoMaterial
	}

	ordered := make([]Item, len(items))
	copy(ordered, items)
	if shuffle {
		rng.Shuffle(len(ordered), func(i, j int) {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		})
	}

	var total float64
	for _, it := range ordered {
		total += it.Duration
	}
	if total <= 0 {
		return Plan{}, ErrNoMaterial
	}

	loops := 1
	if total < target {
		loops = int(math.Floor(target/total)) + 1
	}

	var (
		selected    []Item
		accumulated float64
	)
walk:
	for i := 0; i < loops; i++ {
		for _, it := range ordered {
			if accumulated >= target {
				break walk
			}
			selected = append(selected, it)
			accumulated += it.Duration
		}
	}

	trim := accumulated - target
	if trim < 0 {
		trim = 0
	}

	return Plan{Items: selected, TrimLastBy: trim}, nil
}
