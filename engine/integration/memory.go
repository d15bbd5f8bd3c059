package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fieldsync/fieldsync/engine/core"
	"github.com/fieldsync/fieldsync/pkg/logger"
)

// MemoryPropertyManagement is an in-memory PropertyManagement adapter for
// tests and local runs without platform credentials.
type MemoryPropertyManagement struct {
	mu         sync.RWMutex
	portfolios []Portfolio
	buildings  []Building
	workOrders map[string]WorkOrder
	customers  []Customer
}

func NewMemoryPropertyManagement() *MemoryPropertyManagement {
	return &MemoryPropertyManagement{workOrders: make(map[string]WorkOrder)}
}

func (m *MemoryPropertyManagement) Seed(portfolios []Portfolio, buildings []Building, customers []Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.portfolios = portfolios
	m.buildings = buildings
	m.customers = customers
}

func (m *MemoryPropertyManagement) GetPortfolios(_ context.Context) ([]Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Portfolio(nil), m.portfolios...), nil
}

func (m *MemoryPropertyManagement) GetBuildings(_ context.Context, portfolioID string) ([]Building, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Building
	for _, b := range m.buildings {
		if portfolioID == "" || b.PortfolioID == portfolioID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *MemoryPropertyManagement) GetWorkOrders(_ context.Context, since time.Time) ([]WorkOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []WorkOrder
	for _, wo := range m.workOrders {
		if since.IsZero() || !wo.CreatedAt.Before(since) {
			out = append(out, wo)
		}
	}
	return out, nil
}

func (m *MemoryPropertyManagement) CreateWorkOrder(_ context.Context, wo WorkOrder) (WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if wo.ID == "" {
		wo.ID = core.MustNewID().String()
	}
	if wo.CreatedAt.IsZero() {
		wo.CreatedAt = time.Now()
	}
	m.workOrders[wo.ID] = wo
	return wo, nil
}

func (m *MemoryPropertyManagement) UpdateWorkOrder(_ context.Context, wo WorkOrder) (WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workOrders[wo.ID]; !ok {
		return WorkOrder{}, fmt.Errorf("work order %q not found", wo.ID)
	}
	m.workOrders[wo.ID] = wo
	return wo, nil
}

func (m *MemoryPropertyManagement) GetCustomers(_ context.Context) ([]Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Customer(nil), m.customers...), nil
}

// MemoryFieldService is an in-memory FieldService adapter.
type MemoryFieldService struct {
	mu          sync.RWMutex
	customers   []Customer
	jobs        map[string]Job
	technicians []Technician
}

func NewMemoryFieldService() *MemoryFieldService {
	return &MemoryFieldService{jobs: make(map[string]Job)}
}

func (m *MemoryFieldService) Seed(customers []Customer, technicians []Technician) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers = customers
	m.technicians = technicians
}

func (m *MemoryFieldService) GetCustomers(_ context.Context) ([]Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Customer(nil), m.customers...), nil
}

func (m *MemoryFieldService) GetJobs(_ context.Context, since time.Time) ([]Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Job
	for _, job := range m.jobs {
		if since.IsZero() || !job.ScheduledAt.Before(since) {
			out = append(out, job)
		}
	}
	return out, nil
}

func (m *MemoryFieldService) CreateJob(_ context.Context, job Job) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == "" {
		job.ID = core.MustNewID().String()
	}
	m.jobs[job.ID] = job
	return job, nil
}

func (m *MemoryFieldService) UpdateJob(_ context.Context, job Job) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return Job{}, fmt.Errorf("job %q not found", job.ID)
	}
	m.jobs[job.ID] = job
	return job, nil
}

func (m *MemoryFieldService) GetTechnicians(_ context.Context) ([]Technician, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Technician(nil), m.technicians...), nil
}

// LogNotificationSink writes notifications to the structured log. Default
// sink when no external channel is configured.
type LogNotificationSink struct{}

func (LogNotificationSink) Send(ctx context.Context, subject, body string) error {
	logger.FromContext(ctx).Info("notification", "subject", subject, "body", body)
	return nil
}
