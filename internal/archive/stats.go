package archive

import (
	"time"

	"github.com/samber/lo"
)

// Statistics is the read-only snapshot produced by one WriteArchive call.
// It is assembled after the gather barrier, never updated incrementally.
type Statistics struct {
	ThreadCount       int
	CompletedTasks    int
	FailedTasks       int
	TotalTime         time.Duration
	UncompressedBytes uint64
	CompressedBytes   uint64
	// CompressionRatio is CompressedBytes over UncompressedBytes; zero when
	// nothing was compressed.
	CompressionRatio float64
	// ParallelEfficiencyPct is modeled from the task-size distribution, not
	// measured from thread occupancy. Quote it as an estimate.
	ParallelEfficiencyPct float64
}

// TotalTimeMs reports the wall-clock time in milliseconds for reporting
// surfaces that want a plain number.
func (s Statistics) TotalTimeMs() int64 {
	return s.TotalTime.Milliseconds()
}

// parallelEfficiency models how evenly tasks of the given byte sizes would
// spread over threads, as a fraction of ideal. With fewer tasks than threads
// the surplus threads idle, so the score is taskCount/threads. Otherwise a
// greedy pass assigns each task to the least-loaded bin; the score combines
// the resulting balance with task granularity, damped by 0.85 for
// coordination overhead.
func parallelEfficiency(taskSizes []int, threads int) float64 {
	if threads <= 0 || len(taskSizes) == 0 {
		return 0
	}
	if len(taskSizes) < threads {
		return float64(len(taskSizes)) / float64(threads)
	}

	bins := make([]uint64, threads)
	for _, size := range taskSizes {
		least := 0
		for i := 1; i < len(bins); i++ {
			if bins[i] < bins[least] {
				least = i
			}
		}
		bins[least] += uint64(size)
	}

	maxLoad := lo.Max(bins)
	if maxLoad == 0 {
		return 1
	}

	average := float64(lo.Sum(bins)) / float64(threads)
	balance := average / float64(maxLoad)
	granularity := min(1, float64(len(taskSizes))/float64(2*threads))

	return 0.85 * balance * granularity
}
