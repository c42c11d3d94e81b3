package storage

import "github.com/cartridgeio/cartridge/pkg/cartridgeerr"

// Plan describes the outcome of running the growth policy: how many
// times total capacity must double and the resulting new total, before
// the caller extends the backing file and the allocator's free range.
type Plan struct {
	NewTotalBlocks int64
	Doublings      int
}

// PlanGrowth decides how many times to double totalBlocks so that at
// least needed additional blocks become available, never exceeding
// maxBlocks. It does not itself touch the file or allocator; the façade
// applies the plan. maxBlocks <= 0 means unbounded.
//
// The decision to grow is made by the caller (when an allocation would
// otherwise fail, or free ratio already sits below the threshold); this
// function only computes how far doubling must go once growth has been
// decided.
func PlanGrowth(totalBlocks, freeBlocks, needed, maxBlocks int64) (Plan, error) {
	total := totalBlocks
	doublings := 0

	for {
		// after growth, newly added blocks become free; check whether
		// total free (current free + newly added) can satisfy needed.
		addedSoFar := total - totalBlocks
		if freeBlocks+addedSoFar >= needed {
			break
		}
		if maxBlocks > 0 && total >= maxBlocks {
			return Plan{}, cartridgeerr.OutOfSpaceErr()
		}
		next := total * 2
		if maxBlocks > 0 && next > maxBlocks {
			next = maxBlocks
		}
		if next <= total {
			return Plan{}, cartridgeerr.OutOfSpaceErr()
		}
		total = next
		doublings++
	}

	return Plan{NewTotalBlocks: total, Doublings: doublings}, nil
}

// ShouldGrow reports whether the free-block ratio has dropped below the
// configured growth threshold, per spec: free_blocks < total_blocks *
// threshold_percent / 100.
func ShouldGrow(totalBlocks, freeBlocks int64, thresholdPercent uint32) bool {
	return freeBlocks*100 < totalBlocks*int64(thresholdPercent)
}
