package models

import "time"

// ScheduledJob represents an in-memory background job definition. Jobs
// are declared in code (or overridden from a YAML file) and executed by
// the scheduler service; run bookkeeping lives on the struct itself.
type ScheduledJob struct {
	Name           string         `yaml:"name"`
	Slug           string         `yaml:"slug"`
	Handler        string         `yaml:"handler"`
	Schedule       string         `yaml:"schedule"`
	RunOnStartup   bool           `yaml:"run_on_startup"`
	TimeoutSeconds int            `yaml:"timeout_seconds"`
	Config         map[string]any `yaml:"config"`
	LastRunAt      *time.Time     `yaml:"-"`
	NextRunAt      *time.Time     `yaml:"-"`
	LastStatus     string         `yaml:"-"`
	ErrorMessage   *string        `yaml:"-"`
	LastDurationMS int64          `yaml:"-"`
}

// Clone returns a deep copy of the job so schedule mutations stay isolated.
func (j *ScheduledJob) Clone() *ScheduledJob {
	if j == nil {
		return nil
	}
	copy := *j
	if j.Config != nil {
		cfg := make(map[string]any, len(j.Config))
		for k, v := range j.Config {
			cfg[k] = v
		}
		copy.Config = cfg
	}
	if j.LastRunAt != nil {
		lr := *j.LastRunAt
		copy.LastRunAt = &lr
	}
	if j.NextRunAt != nil {
		nr := *j.NextRunAt
		copy.NextRunAt = &nr
	}
	if j.ErrorMessage != nil {
		err := *j.ErrorMessage
		copy.ErrorMessage = &err
	}
	return &copy
}
