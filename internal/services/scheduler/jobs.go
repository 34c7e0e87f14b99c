package scheduler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iamrudi/AgentDash-sub003/internal/models"
)

// defaultJobs returns the built-in job set used when no jobs file is
// configured.
func defaultJobs() []*models.ScheduledJob {
	return []*models.ScheduledJob{
		{
			Name:           "SLA Breach Scan",
			Slug:           "sla-scan",
			Handler:        HandlerSlaScan,
			Schedule:       "*/5 * * * *",
			RunOnStartup:   true,
			TimeoutSeconds: 240,
		},
		{
			Name:           "SLA Auto-Resolve",
			Slug:           "sla-auto-resolve",
			Handler:        HandlerSlaAutoResolve,
			Schedule:       "*/15 * * * *",
			TimeoutSeconds: 120,
		},
	}
}

type jobsFile struct {
	Jobs []*models.ScheduledJob `yaml:"jobs"`
}

// LoadJobsFromFile reads job definitions from a YAML file. Jobs missing
// a slug, handler, or schedule are rejected so a typo cannot silently
// drop a job.
func LoadJobsFromFile(path string) ([]*models.ScheduledJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs file: %w", err)
	}

	var file jobsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse jobs file: %w", err)
	}

	for i, job := range file.Jobs {
		if job == nil {
			return nil, fmt.Errorf("jobs[%d]: empty definition", i)
		}
		if job.Slug == "" || job.Handler == "" || job.Schedule == "" {
			return nil, fmt.Errorf("jobs[%d] (%s): slug, handler, and schedule are required", i, job.Name)
		}
	}
	return file.Jobs, nil
}
