package sync

import "fmt"

// Result summarizes a completed sync run.
type Result struct {
	ActivitiesSynced int `json:"activitiesSynced"`
	DaysSynced       int `json:"daysSynced"`
}

// Details renders the result for the sync audit log.
func (r *Result) Details() string {
	return fmt.Sprintf("activities=%d days=%d", r.ActivitiesSynced, r.DaysSynced)
}
