// Package integration defines the capability contracts external platform
// adapters fulfill and binds them to the action registry. Wire-level
// transport (SOAP/REST, auth, pagination) lives in the adapters themselves,
// outside this repository.
package integration

import (
	"context"
	"time"
)

type Portfolio struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Building struct {
	ID          string `json:"id"`
	PortfolioID string `json:"portfolio_id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
}

type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

type WorkOrder struct {
	ID          string    `json:"id"`
	BuildingID  string    `json:"building_id"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

type Job struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	ScheduledAt time.Time `json:"scheduled_at,omitzero"`
}

type Technician struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PropertyManagement is the capability surface of the property management
// platform adapter.
type PropertyManagement interface {
	GetPortfolios(ctx context.Context) ([]Portfolio, error)
	GetBuildings(ctx context.Context, portfolioID string) ([]Building, error)
	GetWorkOrders(ctx context.Context, since time.Time) ([]WorkOrder, error)
	CreateWorkOrder(ctx context.Context, wo WorkOrder) (WorkOrder, error)
	UpdateWorkOrder(ctx context.Context, wo WorkOrder) (WorkOrder, error)
	GetCustomers(ctx context.Context) ([]Customer, error)
}

// FieldService is the capability surface of the field service platform
// adapter.
type FieldService interface {
	GetCustomers(ctx context.Context) ([]Customer, error)
	GetJobs(ctx context.Context, since time.Time) ([]Job, error)
	CreateJob(ctx context.Context, job Job) (Job, error)
	UpdateJob(ctx context.Context, job Job) (Job, error)
	GetTechnicians(ctx context.Context) ([]Technician, error)
}

// NotificationSink receives operator-facing notifications (duplicate
// alerts, failed transfers).
type NotificationSink interface {
	Send(ctx context.Context, subject, body string) error
}
