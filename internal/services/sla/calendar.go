package sla

import (
	"time"

	"github.com/rickar/cal/v2"

	"github.com/iamrudi/AgentDash-sub003/internal/models"
)

// PolicyCalendar builds a business calendar from the policy's working
// window. Used to gate escalation side effects to working time; the
// deadline walker does its own minute arithmetic.
func PolicyCalendar(policy *models.SlaPolicy) *cal.BusinessCalendar {
	c := cal.NewBusinessCalendar()
	c.SetWorkHours(
		time.Duration(policy.BusinessHoursStart)*time.Hour,
		time.Duration(policy.BusinessHoursEnd)*time.Hour,
	)

	days := make(map[time.Weekday]bool, len(policy.BusinessDays))
	for _, d := range policy.BusinessDays {
		days[time.Weekday(d)] = true
	}
	if len(policy.BusinessDays) == 0 {
		// No restriction configured: every day is a business day.
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			days[wd] = true
		}
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		c.SetWorkday(wd, days[wd])
	}
	return c
}

// InBusinessHours reports whether t falls inside the policy's working
// window. Policies without the business-hours restriction are always in
// hours.
func InBusinessHours(policy *models.SlaPolicy, t time.Time) bool {
	if policy == nil || !policy.BusinessHoursOnly {
		return true
	}
	return PolicyCalendar(policy).IsWorkTime(t)
}
