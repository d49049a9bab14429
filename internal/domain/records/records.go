// Package records declares the reportable business entities. Struct tags
// drive the field registry; the structs themselves are never instantiated
// by the engine, rows travel as maps.
package records

import (
	"time"

	"github.com/shopspring/decimal"
)

// Base contains fields shared by every record table.
type Base struct {
	ID             string    `db:"id" json:"id" report:"filter,sort" label:"ID"`
	OrganizationID string    `db:"organization_id" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at" report:"filter,group,sort"`
}

// Invoice is a bill issued to a customer.
type Invoice struct {
	Base
	Number       string          `db:"number" json:"number" report:"filter,sort"`
	CustomerName string          `db:"customer_name" json:"customer_name" report:"filter,group,sort" label:"Customer"`
	Status       string          `db:"status" json:"status" report:"filter,group,sort" enum:"draft|sent|paid|overdue|void"`
	Amount       decimal.Decimal `db:"amount" json:"amount" report:"filter,sort,agg"`
	TaxAmount    decimal.Decimal `db:"tax_amount" json:"tax_amount" report:"filter,sort,agg"`
	Currency     string          `db:"currency" json:"currency" report:"filter,group"`
	IssuedAt     time.Time       `db:"issued_at" json:"issued_at" report:"filter,group,sort"`
	DueAt        *time.Time      `db:"due_at" json:"due_at" report:"filter,group,sort" label:"Due Date"`
	Recurring    bool            `db:"is_recurring" json:"recurring" report:"filter,group"`
}

// WorkOrder is a unit of field or shop work.
type WorkOrder struct {
	Base
	Number         string          `db:"number" json:"number" report:"filter,sort"`
	Title          string          `db:"title" json:"title" report:"filter,sort"`
	Status         string          `db:"status" json:"status" report:"filter,group,sort" enum:"open|scheduled|in_progress|completed|cancelled"`
	Priority       string          `db:"priority" json:"priority" report:"filter,group,sort" enum:"low|normal|high|urgent"`
	Technician     string          `db:"technician_name" json:"technician" report:"filter,group,sort"`
	EstimatedHours float64         `db:"estimated_hours" json:"estimated_hours" report:"filter,sort,agg"`
	ActualHours    float64         `db:"actual_hours" json:"actual_hours" report:"filter,sort,agg"`
	LaborCost      decimal.Decimal `db:"labor_cost" json:"labor_cost" report:"filter,sort,agg"`
	ScheduledAt    *time.Time      `db:"scheduled_at" json:"scheduled_at" report:"filter,group,sort"`
	CompletedAt    *time.Time      `db:"completed_at" json:"completed_at" report:"filter,group,sort"`
}

// Customer is a billed party.
type Customer struct {
	Base
	Name          string          `db:"name" json:"name" report:"filter,sort"`
	Email         string          `db:"email" json:"email" report:"filter"`
	City          string          `db:"city" json:"city" report:"filter,group,sort"`
	Segment       string          `db:"segment" json:"segment" report:"filter,group,sort" enum:"retail|smb|enterprise"`
	LifetimeValue decimal.Decimal `db:"lifetime_value" json:"lifetime_value" report:"filter,sort,agg"`
	OpenInvoices  int             `db:"open_invoices" json:"open_invoices" report:"filter,sort,agg"`
	Active        bool            `db:"is_active" json:"active" report:"filter,group"`
}

// Payment is money received against an invoice.
type Payment struct {
	Base
	InvoiceNumber string          `db:"invoice_number" json:"invoice_number" report:"filter,sort"`
	Method        string          `db:"method" json:"method" report:"filter,group,sort" enum:"cash|card|bank_transfer|check"`
	Amount        decimal.Decimal `db:"amount" json:"amount" report:"filter,sort,agg"`
	ReceivedAt    time.Time       `db:"received_at" json:"received_at" report:"filter,group,sort"`
}
