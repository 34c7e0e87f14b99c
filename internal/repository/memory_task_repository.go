package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iamrudi/AgentDash-sub003/internal/models"
)

// MemoryTaskRepository is an in-memory TaskRepository.
type MemoryTaskRepository struct {
	mu          sync.RWMutex
	tasks       map[string]*models.Task
	assignments map[string][]*models.TaskAssignment // keyed by task id
}

// NewMemoryTaskRepository creates an empty in-memory task repository.
func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{
		tasks:       make(map[string]*models.Task),
		assignments: make(map[string][]*models.TaskAssignment),
	}
}

// PutTask stores or replaces a task. Test seeding helper; task CRUD is
// otherwise out of engine scope.
func (r *MemoryTaskRepository) PutTask(task *models.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	stored := *task
	r.tasks[task.ID] = &stored
}

// SetTaskStatus updates a task's status. Test seeding helper.
func (r *MemoryTaskRepository) SetTaskStatus(taskID, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tasks[taskID]; ok {
		t.Status = status
		t.UpdatedAt = time.Now().UTC()
	}
}

// GetTask returns a copy of the task or nil.
func (r *MemoryTaskRepository) GetTask(ctx context.Context, id string) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

// OpenTasks returns outstanding tasks, optionally narrowed to a
// project, oldest first.
func (r *MemoryTaskRepository) OpenTasks(ctx context.Context, agencyID string, projectID *string) ([]*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tasks []*models.Task
	for _, t := range r.tasks {
		if t.AgencyID != agencyID || !t.IsOpen() {
			continue
		}
		if projectID != nil && (t.ProjectID == nil || *t.ProjectID != *projectID) {
			continue
		}
		copied := *t
		tasks = append(tasks, &copied)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// HasAssignment reports whether any staff is assigned to the task.
func (r *MemoryTaskRepository) HasAssignment(ctx context.Context, taskID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.assignments[taskID]) > 0, nil
}

// AssignedProfiles returns the assigned profile ids in assignment
// order.
func (r *MemoryTaskRepository) AssignedProfiles(ctx context.Context, taskID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var profiles []string
	for _, a := range r.assignments[taskID] {
		profiles = append(profiles, a.ProfileID)
	}
	return profiles, nil
}

// CreateAssignment links a profile to a task.
func (r *MemoryTaskRepository) CreateAssignment(ctx context.Context, assignment *models.TaskAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	stored := *assignment
	r.assignments[assignment.TaskID] = append(r.assignments[assignment.TaskID], &stored)
	return nil
}

// MemoryProfileRepository is an in-memory ProfileRepository.
type MemoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]*models.Profile
}

// NewMemoryProfileRepository creates an empty in-memory profile
// repository.
func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{profiles: make(map[string]*models.Profile)}
}

// PutProfile stores or replaces a profile. Test seeding helper.
func (r *MemoryProfileRepository) PutProfile(profile *models.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	stored := *profile
	r.profiles[profile.ID] = &stored
}

// GetProfile returns a copy of the profile or nil.
func (r *MemoryProfileRepository) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

// AgenciesWithProfiles lists tenant ids with at least one profile.
func (r *MemoryProfileRepository) AgenciesWithProfiles(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var agencies []string
	for _, p := range r.profiles {
		if !seen[p.AgencyID] {
			seen[p.AgencyID] = true
			agencies = append(agencies, p.AgencyID)
		}
	}
	sort.Strings(agencies)
	return agencies, nil
}
