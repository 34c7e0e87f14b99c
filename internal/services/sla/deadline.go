// Package sla implements SLA breach detection, escalation, lifecycle
// management, and compliance metrics over tenant-partitioned policy and
// breach rows.
package sla

import (
	"math"
	"time"

	"github.com/iamrudi/AgentDash-sub003/internal/models"
)

// maxDeadlineDays bounds the business-hours walk. A policy whose
// calendar never yields a business minute would otherwise walk forever;
// ten years of days is far past any meaningful SLA.
const maxDeadlineDays = 3660

// CalculateDeadline converts a start time plus a fractional-hour
// duration into a deadline under the policy's calendar rules. Minute
// granularity throughout; sub-minute precision is not carried.
//
// Without businessHoursOnly the deadline is plain wall-clock addition.
// With it, the walk consumes only minutes inside the policy's business
// window: every iteration either spends the whole remainder inside the
// current day or strictly advances to the next day's business start,
// so the loop terminates.
func CalculateDeadline(start time.Time, hours float64, policy *models.SlaPolicy) time.Time {
	total := int(math.Round(hours * 60))
	if total <= 0 {
		return start
	}
	if policy == nil || !policy.BusinessHoursOnly {
		return start.Add(time.Duration(total) * time.Minute)
	}

	remaining := total

	current := start.Truncate(time.Minute)
	startMinute := policy.BusinessHoursStart * 60
	endMinute := policy.BusinessHoursEnd * 60

	for day := 0; day < maxDeadlineDays; day++ {
		if !policy.IsBusinessDay(current) {
			current = nextDayAt(current, policy.BusinessHoursStart)
			continue
		}

		minuteOfDay := current.Hour()*60 + current.Minute()
		if minuteOfDay < startMinute {
			current = dayAt(current, policy.BusinessHoursStart)
			minuteOfDay = startMinute
		} else if minuteOfDay >= endMinute {
			current = nextDayAt(current, policy.BusinessHoursStart)
			continue
		}

		minutesLeftToday := endMinute - minuteOfDay
		if minutesLeftToday <= 0 {
			// Degenerate window (start >= end) yields no minutes today.
			current = nextDayAt(current, policy.BusinessHoursStart)
			continue
		}
		if remaining <= minutesLeftToday {
			return current.Add(time.Duration(remaining) * time.Minute)
		}
		remaining -= minutesLeftToday
		current = nextDayAt(current, policy.BusinessHoursStart)
	}

	// Bound exhausted before the calendar yielded enough business
	// minutes; degrade to wall-clock over the full duration so the
	// deadline still exists and never lands before time already walked.
	return start.Add(time.Duration(total) * time.Minute)
}

// dayAt returns t's date at the given hour, minute zero.
func dayAt(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}

// nextDayAt returns the day after t at the given hour, minute zero.
func nextDayAt(t time.Time, hour int) time.Time {
	next := t.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), hour, 0, 0, 0, t.Location())
}

// ResponseDeadline computes the first-response deadline for a task
// under the policy.
func ResponseDeadline(taskCreated time.Time, policy *models.SlaPolicy) time.Time {
	return CalculateDeadline(taskCreated, policy.ResponseTimeHours, policy)
}

// ResolutionDeadline computes the full-resolution deadline for a task
// under the policy.
func ResolutionDeadline(taskCreated time.Time, policy *models.SlaPolicy) time.Time {
	return CalculateDeadline(taskCreated, policy.ResolutionTimeHours, policy)
}
