package blockcache

import (
	"fmt"
	"strings"
)

// PreloadPolicy controls how many blocks are prefetched around the visible
// range.
type PreloadPolicy int

const (
	// Conservative prefetches one block ahead and none behind.
	Conservative PreloadPolicy = iota
	// Balanced prefetches two blocks ahead and one behind.
	Balanced
	// Aggressive prefetches five blocks ahead and two behind.
	Aggressive
)

// Counts returns the number of blocks prefetched ahead of and behind the
// center block.
func (p PreloadPolicy) Counts() (ahead, behind int) {
	switch p {
	case Conservative:
		return 1, 0
	case Aggressive:
		return 5, 2
	default:
		return 2, 1
	}
}

func (p PreloadPolicy) String() string {
	switch p {
	case Conservative:
		return "conservative"
	case Balanced:
		return "balanced"
	case Aggressive:
		return "aggressive"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// ParsePolicy converts a policy name (case-insensitive) to a PreloadPolicy.
func ParsePolicy(s string) (PreloadPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "conservative":
		return Conservative, nil
	case "balanced", "":
		return Balanced, nil
	case "aggressive":
		return Aggressive, nil
	default:
		return Balanced, fmt.Errorf("unknown preload policy %q", s)
	}
}

// Status is the advisory loading state of a Model.
type Status int

const (
	// Idle means every visible block is resident and nothing is in flight.
	Idle Status = iota
	// LoadingVisible means at least one visible block is still loading.
	LoadingVisible
	// LoadingPreload means the visible range is resident but prefetch loads
	// are still in flight.
	LoadingPreload
	// LoadingAll means a LoadAll pass is running.
	LoadingAll
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingVisible:
		return "loading_visible"
	case LoadingPreload:
		return "loading_preload"
	case LoadingAll:
		return "loading_all"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// scaledCounts applies velocity-based scaling to the policy counts. Fast
// scrolling halves both counts, keeping at least one block ahead.
func scaledCounts(p PreloadPolicy, fast bool) (ahead, behind int) {
	ahead, behind = p.Counts()
	if !fast {
		return ahead, behind
	}
	return max(1, ahead/2), max(0, behind/2)
}

// prefetchRange returns the inclusive block range prefetched around center.
func prefetchRange(center, ahead, behind, totalBlocks int) (first, last int) {
	if totalBlocks <= 0 {
		return 0, -1
	}
	first = max(0, center-behind)
	last = min(totalBlocks-1, center+ahead)
	return first, last
}
