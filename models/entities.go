package models

import (
	"database/sql"
	"time"
)

// CaseStatus represents the possible statuses of a support case
type CaseStatus string

const (
	CaseStatusActive   CaseStatus = "active"
	CaseStatusResolved CaseStatus = "resolved"
	CaseStatusClosed   CaseStatus = "closed"
)

// Priority represents case priority levels
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// EntryType represents the kind of timeline entry
type EntryType string

const (
	EntryTypeEmail     EntryType = "email"
	EntryTypeNote      EntryType = "note"
	EntryTypePhoneCall EntryType = "phone_call"
	EntryTypeChat      EntryType = "chat"
)

// Direction indicates who initiated a customer-facing entry
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Case represents a customer support case
type Case struct {
	CaseID      int64      `db:"case_id" json:"case_id"`
	CaseNumber  string     `db:"case_number" json:"case_number"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Status      CaseStatus `db:"status" json:"status"`
	Priority    Priority   `db:"priority" json:"priority"`
	OwnerID     int64      `db:"owner_id" json:"owner_id"`
	CustomerID  int64      `db:"customer_id" json:"customer_id"`
	CreatedOn   time.Time  `db:"created_on" json:"created_on"`
	ModifiedOn  time.Time  `db:"modified_on" json:"modified_on"` // last activity; invariant: >= CreatedOn
}

// TimelineEntry represents one communication or note on a case.
// Entries are append-only; never mutated after creation.
type TimelineEntry struct {
	EntryID                 int64          `db:"entry_id" json:"entry_id"`
	CaseID                  int64          `db:"case_id" json:"case_id"`
	EntryType               EntryType      `db:"entry_type" json:"entry_type"`
	Subject                 sql.NullString `db:"subject" json:"subject"`
	Content                 string         `db:"content" json:"content"`
	Direction               sql.NullString `db:"direction" json:"direction"` // only for customer-facing entry types
	IsCustomerCommunication bool           `db:"is_customer_communication" json:"is_customer_communication"`
	CreatedBy               int64          `db:"created_by" json:"created_by"`
	CreatedOn               time.Time      `db:"created_on" json:"created_on"`
}

// IsInbound reports whether the entry came from the customer.
func (e *TimelineEntry) IsInbound() bool {
	return e.Direction.Valid && Direction(e.Direction.String) == DirectionInbound
}

// Engineer represents a support engineer who owns cases and receives alerts
type Engineer struct {
	EngineerID   int64          `db:"engineer_id" json:"engineer_id"`
	FullName     string         `db:"full_name" json:"full_name"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	WebhookURL   sql.NullString `db:"webhook_url" json:"webhook_url,omitempty"` // personal alert channel, optional
	IsActive     bool           `db:"is_active" json:"is_active"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// Customer represents the customer a case belongs to
type Customer struct {
	CustomerID int64          `db:"customer_id" json:"customer_id"`
	Name       string         `db:"name" json:"name"`
	Email      sql.NullString `db:"email" json:"email"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}
