package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryStoresJobs(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry.Register(jobA)
	registry.Register(jobB)
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}
	// ensure caller cannot mutate internal slice
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryDropsDuplicateNames(t *testing.T) {
	first := &stubJob{name: "holiday-coverage"}
	registry := NewRegistry(first, nil, &stubJob{name: "holiday-coverage"})
	if ok := registry.Register(&stubJob{name: "holiday-coverage"}); ok {
		t.Fatalf("duplicate job name accepted")
	}
	if !registry.Register(&stubJob{name: "outbox-retention"}) {
		t.Fatalf("expected new job to be accepted")
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0] != first {
		t.Fatalf("unexpected jobs %v", jobs)
	}
}
