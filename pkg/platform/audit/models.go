package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// route and retain them differently.
type EventCategory string

const (
	// CategoryGovernance covers changes to what serves production traffic.
	// These are kept for as long as the models they describe.
	CategoryGovernance EventCategory = "governance"

	// CategorySecurity covers refused or suspicious training input such as
	// poisoned batches. These feed alerting.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine pipeline activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	// Subject is the model version or experiment id the event is about.
	Subject  string `json:"subject"`
	Action   string `json:"action"`
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
	// RequestID correlates HTTP-triggered actions; RunID correlates one
	// training pipeline run.
	RequestID string `json:"request_id,omitempty"`
	RunID     string `json:"run_id,omitempty"`
	// ActorID is set when an operator triggered the action by hand.
	ActorID string `json:"actor_id,omitempty"`
}

type AuditEvent string

const (
	// Training events
	EventTrainingSucceeded AuditEvent = "training_succeeded"
	EventTrainingRefused   AuditEvent = "training_refused"
	EventBatchRejected     AuditEvent = "batch_rejected"
	EventAnomalyDetected   AuditEvent = "anomaly_detected"
	EventValidationFailed  AuditEvent = "validation_failed"
	EventCandidateHeld     AuditEvent = "candidate_held_for_review"

	// Rollout events
	EventModelDeployed      AuditEvent = "model_deployed"
	EventCanaryStaged       AuditEvent = "canary_staged"
	EventModelPromoted      AuditEvent = "model_promoted"
	EventModelRolledBack    AuditEvent = "model_rolled_back"
	EventExperimentExtended AuditEvent = "experiment_extended"
	EventBackupRestored     AuditEvent = "backup_restored"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventModelDeployed:   CategoryGovernance,
	EventModelPromoted:   CategoryGovernance,
	EventModelRolledBack: CategoryGovernance,
	EventBackupRestored:  CategoryGovernance,

	EventBatchRejected:   CategorySecurity,
	EventAnomalyDetected: CategorySecurity,

	EventTrainingSucceeded:  CategoryOperations,
	EventTrainingRefused:    CategoryOperations,
	EventValidationFailed:   CategoryOperations,
	EventCandidateHeld:      CategoryOperations,
	EventCanaryStaged:       CategoryOperations,
	EventExperimentExtended: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Emitter is the narrow interface services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
