// Package store provides funding.Repository implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/facility-funding/funding"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	schedules    map[funding.RateScheduleID]funding.StoredRateSchedule
	applications map[funding.ApplicationID]funding.Application
	runs         map[funding.ApplicationID][]funding.RunRecord
	runIDs       map[string]bool
}

var _ funding.Repository = (*Memory)(nil)

func NewMemory() *Memory {
	m := &Memory{}
	m.resetLocked()
	return m
}

func (m *Memory) resetLocked() {
	m.schedules = make(map[funding.RateScheduleID]funding.StoredRateSchedule)
	m.applications = make(map[funding.ApplicationID]funding.Application)
	m.runs = make(map[funding.ApplicationID][]funding.RunRecord)
	m.runIDs = make(map[string]bool)
}

// =============================================================================
// RATE SCHEDULES
// =============================================================================

func (m *Memory) SaveRateSchedule(_ context.Context, rs funding.StoredRateSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[rs.ID] = rs
	return nil
}

func (m *Memory) GetRateSchedule(_ context.Context, id funding.RateScheduleID) (*funding.StoredRateSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rs, ok := m.schedules[id]
	if !ok {
		return nil, funding.ErrNotFound
	}
	return &rs, nil
}

func (m *Memory) ListRateSchedules(_ context.Context) ([]funding.StoredRateSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]funding.StoredRateSchedule, 0, len(m.schedules))
	for _, rs := range m.schedules {
		out = append(out, rs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// APPLICATIONS
// =============================================================================

func (m *Memory) SaveApplication(_ context.Context, app funding.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applications[app.ID] = app
	return nil
}

func (m *Memory) GetApplication(_ context.Context, id funding.ApplicationID) (*funding.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	app, ok := m.applications[id]
	if !ok {
		return nil, funding.ErrNotFound
	}
	return &app, nil
}

func (m *Memory) ListApplications(_ context.Context) ([]funding.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]funding.Application, 0, len(m.applications))
	for _, app := range m.applications {
		out = append(out, app)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// RUNS - Append-only
// =============================================================================

func (m *Memory) SaveRun(_ context.Context, run funding.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := run.RunID.String()
	if m.runIDs[id] {
		return funding.ErrDuplicateRun
	}
	m.runIDs[id] = true
	m.runs[run.ApplicationID] = append(m.runs[run.ApplicationID], run)
	return nil
}

func (m *Memory) ListRuns(_ context.Context, applicationID funding.ApplicationID) ([]funding.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]funding.RunRecord, len(m.runs[applicationID]))
	copy(result, m.runs[applicationID])
	return result, nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	return nil
}
