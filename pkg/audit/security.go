// Package audit logs security-relevant events in a structured form for SIEM
// ingestion.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSuspiciousFieldName is logged when an uploaded field name looks like SQL injection.
	EventSuspiciousFieldName SecurityEventType = "suspicious_field_name"
	// EventTokenRejected is logged when a presented bearer token fails validation.
	EventTokenRejected SecurityEventType = "token_rejected"
)

// SecurityEvent is the JSON document emitted for every audited event.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	RunID     uuid.UUID         `json:"run_id,omitempty"`
	Owner     string            `json:"owner,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// FieldNameDetails describes a field name rejected during an import.
type FieldNameDetails struct {
	FieldName   string `json:"field_name"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint
	Source      string `json:"source"`
}

// SecurityAuditor logs security events under the "security_audit" logger name.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogSuspiciousFieldName records an uploaded attribute name that was refused
// because it matched an injection pattern. Logged at ERROR with critical severity.
func (a *SecurityAuditor) LogSuspiciousFieldName(runID uuid.UUID, owner string, details FieldNameDetails) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventSuspiciousFieldName,
		RunID:     runID,
		Owner:     owner,
		Details:   details,
		Severity:  "critical",
	}

	a.logger.Error("Suspicious field name rejected",
		zap.String("event_json", marshal(event)),
		zap.String("run_id", runID.String()),
		zap.String("owner", owner),
		zap.String("field_name", details.FieldName),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("severity", event.Severity),
	)
}

// LogTokenRejected records a bearer token that was presented but failed
// validation. Missing headers are not audited.
func (a *SecurityAuditor) LogTokenRejected(reason, path, clientIP string) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventTokenRejected,
		ClientIP:  clientIP,
		Details:   map[string]string{"reason": reason, "path": path},
		Severity:  "warning",
	}

	a.logger.Warn("Bearer token rejected",
		zap.String("event_json", marshal(event)),
		zap.String("reason", reason),
		zap.String("path", path),
		zap.String("client_ip", clientIP),
		zap.String("severity", event.Severity),
	)
}

func marshal(event SecurityEvent) string {
	// Known types; marshaling cannot fail.
	data, _ := json.Marshal(event)
	return string(data)
}
