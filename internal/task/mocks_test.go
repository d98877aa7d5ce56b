package task

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/store"
)

// mockTaskStore is a configurable in-memory TaskStore for runner tests.
// Unset function fields fall back to recording behavior.
type mockTaskStore struct {
	mu       sync.Mutex
	saved    map[uuid.UUID]*StoredTask
	statuses map[uuid.UUID][]TaskStatus

	saveTaskFn           func(ctx context.Context, t Task) error
	updateTaskStatusFn   func(ctx context.Context, id uuid.UUID, status TaskStatus, errorMsg string) error
	getPendingTasksFn    func(ctx context.Context) ([]*StoredTask, error)
	getProcessingTasksFn func(ctx context.Context, olderThan time.Duration) ([]*StoredTask, error)
}

func newMockTaskStore() *mockTaskStore {
	return &mockTaskStore{
		saved:    make(map[uuid.UUID]*StoredTask),
		statuses: make(map[uuid.UUID][]TaskStatus),
	}
}

func (m *mockTaskStore) SaveTask(ctx context.Context, t Task) error {
	if m.saveTaskFn != nil {
		return m.saveTaskFn(ctx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[t.ID()] = &StoredTask{
		ID:      t.ID(),
		Type:    t.Type(),
		Payload: t.Payload(),
		Status:  t.Status(),
	}
	return nil
}

func (m *mockTaskStore) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status TaskStatus, errorMsg string) error {
	if m.updateTaskStatusFn != nil {
		return m.updateTaskStatusFn(ctx, id, status, errorMsg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[id] = append(m.statuses[id], status)
	if st, ok := m.saved[id]; ok {
		st.Status = status
		st.Error = errorMsg
	}
	return nil
}

func (m *mockTaskStore) GetPendingTasks(ctx context.Context) ([]*StoredTask, error) {
	if m.getPendingTasksFn != nil {
		return m.getPendingTasksFn(ctx)
	}
	return nil, nil
}

func (m *mockTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]*StoredTask, error) {
	if m.getProcessingTasksFn != nil {
		return m.getProcessingTasksFn(ctx, olderThan)
	}
	return nil, nil
}

func (m *mockTaskStore) WithTx(tx *sql.Tx) TaskStore {
	return m
}

// statusHistory returns the recorded status transitions for one task.
func (m *mockTaskStore) statusHistory(id uuid.UUID) []TaskStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TaskStatus, len(m.statuses[id]))
	copy(out, m.statuses[id])
	return out
}

// mockUsageStore implements store.UsageStore with function fields.
type mockUsageStore struct {
	createRecordFn  func(ctx context.Context, rec *domain.UsageRecord) error
	sumForPeriodFn  func(ctx context.Context, userID uuid.UUID, from, to time.Time) (*domain.UsageSummary, error)
	listRecordsFn   func(ctx context.Context, userID uuid.UUID, from, to time.Time, limit int) ([]*domain.UsageRecord, error)
	upsertSummaryFn func(ctx context.Context, summary *domain.UsageSummary) error
	requestCountsFn func(ctx context.Context, from, to time.Time) (map[uuid.UUID]int64, error)
}

var _ store.UsageStore = (*mockUsageStore)(nil)

func (m *mockUsageStore) CreateRecord(ctx context.Context, rec *domain.UsageRecord) error {
	if m.createRecordFn != nil {
		return m.createRecordFn(ctx, rec)
	}
	return nil
}

func (m *mockUsageStore) SumForPeriod(ctx context.Context, userID uuid.UUID, from, to time.Time) (*domain.UsageSummary, error) {
	if m.sumForPeriodFn != nil {
		return m.sumForPeriodFn(ctx, userID, from, to)
	}
	return &domain.UsageSummary{UserID: userID, PeriodStart: from, PeriodEnd: to}, nil
}

func (m *mockUsageStore) ListRecords(ctx context.Context, userID uuid.UUID, from, to time.Time, limit int) ([]*domain.UsageRecord, error) {
	if m.listRecordsFn != nil {
		return m.listRecordsFn(ctx, userID, from, to, limit)
	}
	return nil, nil
}

func (m *mockUsageStore) UpsertSummary(ctx context.Context, summary *domain.UsageSummary) error {
	if m.upsertSummaryFn != nil {
		return m.upsertSummaryFn(ctx, summary)
	}
	return nil
}

func (m *mockUsageStore) RequestCounts(ctx context.Context, from, to time.Time) (map[uuid.UUID]int64, error) {
	if m.requestCountsFn != nil {
		return m.requestCountsFn(ctx, from, to)
	}
	return nil, nil
}

func (m *mockUsageStore) WithTx(tx *sql.Tx) store.UsageStore {
	return m
}

// mockAuditor records every call to Record.
type mockAuditor struct {
	mu       sync.Mutex
	records  []auditCall
	recordFn func(ctx context.Context, actor, action, detail string) error
}

type auditCall struct {
	actor, action, detail string
}

func (m *mockAuditor) Record(ctx context.Context, actor, action, detail string) error {
	if m.recordFn != nil {
		return m.recordFn(ctx, actor, action, detail)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, auditCall{actor: actor, action: action, detail: detail})
	return nil
}

func (m *mockAuditor) calls() []auditCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]auditCall, len(m.records))
	copy(out, m.records)
	return out
}

// testTask is a minimal executable task for runner tests.
type testTask struct {
	id        uuid.UUID
	taskType  string
	executeFn func(ctx context.Context) error
}

func newTestTask(taskType string, executeFn func(ctx context.Context) error) *testTask {
	return &testTask{id: uuid.New(), taskType: taskType, executeFn: executeFn}
}

func (t *testTask) ID() uuid.UUID      { return t.id }
func (t *testTask) Type() string       { return t.taskType }
func (t *testTask) Payload() []byte    { return []byte(`{}`) }
func (t *testTask) Status() TaskStatus { return TaskStatusPending }

func (t *testTask) Execute(ctx context.Context) error {
	if t.executeFn != nil {
		return t.executeFn(ctx)
	}
	return nil
}
