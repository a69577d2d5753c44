// Package schema: safe database initialization. Creates only missing tables, never drops or overwrites.

package schema

import (
	"database/sql"
	"log"
)

// InitializeDatabase ensures core tables exist. Checks INFORMATION_SCHEMA.TABLES
// and creates only missing tables, in dependency order:
// engineers → customers → cases → case_timeline → sentiment_results → alerts →
// case_monitoring_state. Never drops or recreates tables; never removes data.
func InitializeDatabase(db *sql.DB) {
	tables := []struct {
		name   string
		create func(*sql.DB)
	}{
		{"engineers", createEngineersTable},
		{"customers", createCustomersTable},
		{"cases", createCasesTable},
		{"case_timeline", createCaseTimelineTable},
		{"sentiment_results", createSentimentResultsTable},
		{"alerts", createAlertsTable},
		{"case_monitoring_state", createCaseMonitoringStateTable},
	}

	for _, t := range tables {
		exists, err := tableExists(db, t.name)
		if err != nil {
			log.Fatalf("[SCHEMA] Failed to check if table %s exists: %v", t.name, err)
		}
		if exists {
			log.Printf("[SCHEMA] %s table exists", t.name)
			continue
		}
		t.create(db)
		log.Printf("[SCHEMA] created %s table", t.name)
	}
}

func tableExists(db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*)
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`, name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func createEngineersTable(db *sql.DB) {
	q := `
CREATE TABLE IF NOT EXISTS engineers (
    engineer_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    full_name VARCHAR(255) NOT NULL COMMENT 'Engineer display name',
    email VARCHAR(255) UNIQUE NOT NULL COMMENT 'Login email',
    password_hash VARCHAR(255) NOT NULL COMMENT 'bcrypt hash',
    webhook_url VARCHAR(1024) NULL COMMENT 'Personal alert webhook (optional)',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
	if _, err := db.Exec(q); err != nil {
		log.Fatalf("[SCHEMA] Failed to create table engineers: %v", err)
	}
}

func createCustomersTable(db *sql.DB) {
	q := `
CREATE TABLE IF NOT EXISTS customers (
    customer_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    name VARCHAR(255) NOT NULL,
    email VARCHAR(255) NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
	if _, err := db.Exec(q); err != nil {
		log.Fatalf("[SCHEMA] Failed to create table customers: %v", err)
	}
}

func createCasesTable(db *sql.DB) {
	q := `
CREATE TABLE IF NOT EXISTS cases (
    case_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    case_number VARCHAR(50) UNIQUE NOT NULL COMMENT 'Public-facing case number',
    title VARCHAR(500) NOT NULL,
    description TEXT NOT NULL,
    status ENUM('active', 'resolved', 'closed') NOT NULL DEFAULT 'active',
    priority ENUM('low', 'medium', 'high') NOT NULL DEFAULT 'medium',
    owner_id BIGINT NOT NULL COMMENT 'Owning engineer; alert recipient',
    customer_id BIGINT NOT NULL,
    created_on TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    modified_on TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP COMMENT 'Last activity; >= created_on',
    FOREIGN KEY (owner_id) REFERENCES engineers(engineer_id) ON DELETE RESTRICT,
    FOREIGN KEY (customer_id) REFERENCES customers(customer_id) ON DELETE RESTRICT,
    INDEX idx_status (status),
    INDEX idx_owner (owner_id),
    INDEX idx_status_modified (status, modified_on)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
	if _, err := db.Exec(q); err != nil {
		log.Fatalf("[SCHEMA] Failed to create table cases: %v", err)
	}
}

func createCaseTimelineTable(db *sql.DB) {
	q := `
CREATE TABLE IF NOT EXISTS case_timeline (
    entry_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    case_id BIGINT NOT NULL,
    entry_type ENUM('email', 'note', 'phone_call', 'chat') NOT NULL,
    subject VARCHAR(500) NULL,
    content TEXT NOT NULL,
    direction ENUM('inbound', 'outbound') NULL COMMENT 'Only for customer-facing entries',
    is_customer_communication BOOLEAN NOT NULL DEFAULT FALSE,
    created_by BIGINT NOT NULL,
    created_on TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (case_id) REFERENCES cases(case_id) ON DELETE RESTRICT,
    INDEX idx_case_created (case_id, created_on)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
	if _, err := db.Exec(q); err != nil {
		log.Fatalf("[SCHEMA] Failed to create table case_timeline: %v", err)
	}
}

func createSentimentResultsTable(db *sql.DB) {
	q := `
CREATE TABLE IF NOT EXISTS sentiment_results (
    result_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    case_id BIGINT NOT NULL,
    timeline_entry_id BIGINT NULL COMMENT 'NULL = case-level aggregate',
    label ENUM('positive', 'neutral', 'negative', 'frustrated_escalated') NOT NULL,
    score DECIMAL(4,3) NOT NULL COMMENT 'Classifier score on [-1, 1]',
    model_version VARCHAR(100) NOT NULL,
    analyzed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (case_id) REFERENCES cases(case_id) ON DELETE RESTRICT,
    FOREIGN KEY (timeline_entry_id) REFERENCES case_timeline(entry_id) ON DELETE RESTRICT,
    UNIQUE KEY uq_entry (timeline_entry_id),
    INDEX idx_case (case_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
	if _, err := db.Exec(q); err != nil {
		log.Fatalf("[SCHEMA] Failed to create table sentiment_results: %v", err)
	}
}

func createAlertsTable(db *sql.DB) {
	// open_flag stays 1 while the alert is unacknowledged and is set to NULL on
	// acknowledgment. MySQL unique indexes ignore NULLs, so uq_case_type_open
	// allows any number of acknowledged alerts per (case, type) but at most one
	// open alert. The dedup invariant lives in the storage layer, not only in
	// application checks.
	q := `
CREATE TABLE IF NOT EXISTS alerts (
    alert_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    alert_ref CHAR(36) UNIQUE NOT NULL COMMENT 'Stable external reference',
    case_id BIGINT NOT NULL,
    alert_type ENUM('sentiment_decline', 'sla_approaching', 'sla_breach', 'escalation_detected') NOT NULL,
    message TEXT NOT NULL,
    recipient_id BIGINT NOT NULL COMMENT 'Case owner at emission time',
    sent_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    acknowledged BOOLEAN NOT NULL DEFAULT FALSE,
    acknowledged_at TIMESTAMP NULL,
    resolution_reason VARCHAR(500) NULL,
    open_flag TINYINT NULL DEFAULT 1,
    FOREIGN KEY (case_id) REFERENCES cases(case_id) ON DELETE RESTRICT,
    FOREIGN KEY (recipient_id) REFERENCES engineers(engineer_id) ON DELETE RESTRICT,
    UNIQUE KEY uq_case_type_open (case_id, alert_type, open_flag),
    INDEX idx_case_open (case_id, open_flag),
    INDEX idx_recipient (recipient_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
	if _, err := db.Exec(q); err != nil {
		log.Fatalf("[SCHEMA] Failed to create table alerts: %v", err)
	}
}

func createCaseMonitoringStateTable(db *sql.DB) {
	q := `
CREATE TABLE IF NOT EXISTS case_monitoring_state (
    case_id BIGINT PRIMARY KEY,
    last_risk ENUM('stable', 'improving', 'declining', 'critical') NOT NULL DEFAULT 'stable',
    last_compliance_state ENUM('on_track', 'approaching', 'breached') NOT NULL DEFAULT 'on_track',
    pending_decline BOOLEAN NOT NULL DEFAULT FALSE COMMENT 'Previous pass saw a decline-sized dip',
    last_scored_entry_id BIGINT NOT NULL DEFAULT 0 COMMENT 'Newest scored timeline entry at the last pass',
    last_scored_count INT NOT NULL DEFAULT 0,
    evaluated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (case_id) REFERENCES cases(case_id) ON DELETE RESTRICT
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
	if _, err := db.Exec(q); err != nil {
		log.Fatalf("[SCHEMA] Failed to create table case_monitoring_state: %v", err)
	}
}
