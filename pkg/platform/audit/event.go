// Package audit captures structured audit events from domain logic.
// Events are transport-agnostic so sinks can fan out.
package audit

import "time"

// Action identifies what happened.
type Action string

const (
	ActionDIDRegistered        Action = "did_registered"
	ActionCustodyCreated       Action = "custody_created"
	ActionCredentialIssued     Action = "credential_issued"
	ActionCredentialRevoked    Action = "credential_revoked"
	ActionCredentialSuspended  Action = "credential_suspended"
	ActionCredentialActivated  Action = "credential_activated"
	ActionPresentationVerified Action = "presentation_verified"
	ActionPresentationFailed   Action = "presentation_failed"
)

// Event is emitted from domain logic to capture key actions.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Action    Action            `json:"action"`
	Subject   string            `json:"subject,omitempty"`  // DID or owner id the action concerns
	Resource  string            `json:"resource,omitempty"` // credential, session, or custody id
	Detail    map[string]string `json:"detail,omitempty"`
}
