package scheduler

import (
	"context"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Schedule is a 5-field cron expression or descriptor
	// ("0 19 * * 1-5", "@daily") evaluated in the scheduler's location
	Schedule() string

	Run(ctx context.Context) error
}

// JobResult is the outcome of one job execution (all attempts)
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// maxHistory is the number of results kept per job
const maxHistory = 100

// history is the bounded execution log of one job
type history struct {
	results []JobResult
}

func (h *history) record(r JobResult) {
	h.results = append(h.results, r)
	if len(h.results) > maxHistory {
		h.results = append([]JobResult(nil), h.results[len(h.results)-maxHistory:]...)
	}
}

// latest returns a copy of the last n results, oldest first
func (h *history) latest(n int) []JobResult {
	if n > len(h.results) {
		n = len(h.results)
	}
	return append([]JobResult{}, h.results[len(h.results)-n:]...)
}

// stats summarizes the kept results
func (h *history) stats(name, schedule string) JobStats {
	st := JobStats{JobName: name, Schedule: schedule, TotalRuns: len(h.results)}
	for _, r := range h.results {
		if r.Success {
			st.SuccessCount++
		} else {
			st.FailureCount++
		}
	}
	if st.TotalRuns > 0 {
		st.SuccessRate = float64(st.SuccessCount) / float64(st.TotalRuns)
	}

	// 최근 실행부터 역순 탐색
	for i := len(h.results) - 1; i >= 0; i-- {
		r := h.results[i]
		if st.LastRun == nil {
			st.LastRun = &r.StartTime
		}
		if r.Success && st.LastSuccess == nil {
			st.LastSuccess = &r.StartTime
		}
		if !r.Success && st.LastFailure == nil {
			st.LastFailure = &r.StartTime
		}
	}
	return st
}

// JobStats represents statistics for a job
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
}
