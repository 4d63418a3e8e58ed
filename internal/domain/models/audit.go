package models

import (
	"time"

	"github.com/envseal/envseal/pkg/constants"
)

// AuditEvent records a token lifecycle event for the audit stream.
type AuditEvent struct {
	ID        string                   `json:"id"`
	Type      constants.AuditEventType `json:"type"`
	AppID     string                   `json:"app_id,omitempty"`
	KeyID     string                   `json:"key_id,omitempty"`
	Subject   string                   `json:"subject,omitempty"`
	Reason    string                   `json:"reason,omitempty"`
	Timestamp time.Time                `json:"timestamp"`
}
