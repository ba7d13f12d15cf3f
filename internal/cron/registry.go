package cron

import (
	"context"
	"fmt"
)

// Job is one unit of scheduled work. Names must be unique within a registry.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps jobs in execution order and indexes them by name.
type Registry struct {
	ordered []Job
	byName  map[string]Job
}

// NewRegistry registers jobs in order. Nil entries are skipped.
func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{byName: map[string]Job{}}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends job to the cycle.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	if r.byName == nil {
		r.byName = map[string]Job{}
	}
	name := job.Name()
	if name == "" {
		return fmt.Errorf("cron job name is required")
	}
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("cron job %q already registered", name)
	}
	r.byName[name] = job
	r.ordered = append(r.ordered, job)
	return nil
}

// Lookup finds a job by name.
func (r *Registry) Lookup(name string) (Job, bool) {
	job, ok := r.byName[name]
	return job, ok
}

// Names lists job names in cycle order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ordered))
	for _, job := range r.ordered {
		names = append(names, job.Name())
	}
	return names
}

// Jobs returns a copy of the cycle in order.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.ordered...)
}
