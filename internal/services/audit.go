package services

import (
	"encoding/json"
	"log"

	"github.com/GhostFramer/GhostFrame/internal/database"
)

// Audit actions recorded for tracked applications.
const (
	AuditActionTrack     = "track"
	AuditActionUntrack   = "untrack"
	AuditActionProtect   = "protect"
	AuditActionUnprotect = "unprotect"
	AuditActionFeature   = "feature"
	AuditActionRepair    = "repair"
	AuditActionRestart   = "restart"
	AuditActionImport    = "import"
	AuditActionDrift     = "drift"
)

// Audit outcomes.
const (
	AuditOutcomeSuccess = "success"
	AuditOutcomeFailure = "failure"
)

// AuditService records every mutating operation against tracked
// applications.
type AuditService struct {
	db *database.DB
}

// NewAuditService creates a new AuditService instance.
func NewAuditService(db *database.DB) *AuditService {
	return &AuditService{db: db}
}

// AuditLog represents an audit log entry to be recorded.
type AuditLog struct {
	Details map[string]interface{}
	AppID   string
	AppName string
	Action  string
	Outcome string
}

// Log records an audit entry. Failures are logged and swallowed; auditing
// never fails the operation it describes.
func (s *AuditService) Log(entry AuditLog) {
	var detailsJSON string
	if entry.Details != nil {
		if bytes, err := json.Marshal(entry.Details); err == nil {
			detailsJSON = string(bytes)
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO audit_logs (app_id, app_name, action, outcome, details)
		VALUES (?, ?, ?, ?, ?)
	`, entry.AppID, entry.AppName, entry.Action, entry.Outcome, detailsJSON)
	if err != nil {
		log.Printf("[Audit] failed to record %s entry: %v", entry.Action, err)
	}
}

// LogResult records action with a success or failure outcome derived from
// err; a non-nil err also lands in the details.
func (s *AuditService) LogResult(appID, appName, action string, err error, details map[string]interface{}) {
	outcome := AuditOutcomeSuccess
	if err != nil {
		outcome = AuditOutcomeFailure
		if details == nil {
			details = map[string]interface{}{}
		}
		details["error"] = err.Error()
	}
	s.Log(AuditLog{
		AppID:   appID,
		AppName: appName,
		Action:  action,
		Outcome: outcome,
		Details: details,
	})
}

// AuditLogEntry represents an audit log record from the database.
type AuditLogEntry struct {
	AppID     string `json:"app_id"`
	AppName   string `json:"app_name"`
	Action    string `json:"action"`
	Outcome   string `json:"outcome"`
	Details   string `json:"details"`
	CreatedAt string `json:"created_at"`
	ID        int64  `json:"id"`
}

// GetLogs retrieves audit logs with pagination, newest first. An empty appID
// returns entries for all applications.
func (s *AuditService) GetLogs(appID string, limit, offset int) ([]AuditLogEntry, error) {
	if limit == 0 {
		limit = 50
	}

	query := `
		SELECT id, app_id, app_name, action, outcome, details, created_at
		FROM audit_logs`
	args := []interface{}{}
	if appID != "" {
		query += ` WHERE app_id = ?`
		args = append(args, appID)
	}
	query += `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Initialize empty slice instead of nil to return [] instead of null in JSON
	logs := make([]AuditLogEntry, 0)
	for rows.Next() {
		var entry AuditLogEntry
		var appIDCol, appName, details *string

		if err := rows.Scan(
			&entry.ID,
			&appIDCol,
			&appName,
			&entry.Action,
			&entry.Outcome,
			&details,
			&entry.CreatedAt,
		); err != nil {
			continue
		}

		if appIDCol != nil {
			entry.AppID = *appIDCol
		}
		if appName != nil {
			entry.AppName = *appName
		}
		if details != nil {
			entry.Details = *details
		}

		logs = append(logs, entry)
	}

	return logs, rows.Err()
}
