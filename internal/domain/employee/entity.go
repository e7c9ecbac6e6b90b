package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee is the read-only view of an employee that timekeeping needs.
type Employee struct {
	ID             string
	UserID         *string
	EmployeeCode   string
	FullName       string
	DepartmentID   string
	PayType        PayType
	BaseRate       decimal.Decimal
	ScheduleTimeIn *string // HH:MM, nil means the company default
	IsNightshift   bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type PayType string

const (
	PayTypeMonthly PayType = "monthly"
	PayTypeDaily   PayType = "daily"
	PayTypeHourly  PayType = "hourly"
)
