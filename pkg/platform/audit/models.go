package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "github.com/fudign/kfa-sub000/pkg/domain"
)

// EventCategory classifies lifecycle events for downstream routing.
type EventCategory string

const (
	// CategoryCompliance covers decisions with regulatory weight: membership
	// decisions and certificate issuance or revocation.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine workflow activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted by every successful transition. Keep it transport-agnostic
// so the outbox can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// UserID is the subject of the record the event concerns.
	UserID id.UserID
	// ActorID is who performed the action; equals UserID for self-service.
	ActorID string
	// Subject is the id of the entity that changed.
	Subject   string
	Action    string
	Reason    string
	RequestID string
	IP        string
	Client    string
}

// Store persists events. The Postgres store writes to the outbox through the
// transaction in ctx so the event commits with the transition.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// OutboxEntry is an event waiting for relay.
type OutboxEntry struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type AuditEvent string

const (
	// Membership
	EventApplicationSubmitted     AuditEvent = "application_submitted"
	EventApplicationReviewStarted AuditEvent = "application_review_started"
	EventApplicationApproved      AuditEvent = "application_approved"
	EventApplicationRejected      AuditEvent = "application_rejected"
	EventApplicationDeleted       AuditEvent = "application_deleted"

	// CPE
	EventCPESubmitted AuditEvent = "cpe_activity_submitted"
	EventCPECredited  AuditEvent = "cpe_activity_credited"
	EventCPEApproved  AuditEvent = "cpe_activity_approved"
	EventCPERejected  AuditEvent = "cpe_activity_rejected"
	EventCPEUpdated   AuditEvent = "cpe_activity_updated"
	EventCPEDeleted   AuditEvent = "cpe_activity_deleted"

	// Certification
	EventCertificationApplied        AuditEvent = "certification_applied"
	EventCertificationApproved       AuditEvent = "certification_approved"
	EventCertificationRejected       AuditEvent = "certification_rejected"
	EventCertificationIssued         AuditEvent = "certification_issued"
	EventCertificationRevoked        AuditEvent = "certification_revoked"
	EventCertificationDeleted        AuditEvent = "certification_deleted"
	EventCertificationProgramCreated AuditEvent = "certification_program_created"
	EventCertificationProgramDeleted AuditEvent = "certification_program_deleted"

	// Events
	EventEventCreated                  AuditEvent = "event_created"
	EventEventDeleted                  AuditEvent = "event_deleted"
	EventRegistrationCreated           AuditEvent = "registration_created"
	EventRegistrationApproved          AuditEvent = "registration_approved"
	EventRegistrationRejected          AuditEvent = "registration_rejected"
	EventRegistrationAttended          AuditEvent = "registration_attended"
	EventRegistrationNoShow            AuditEvent = "registration_no_show"
	EventRegistrationCancelled         AuditEvent = "registration_cancelled"
	EventRegistrationCertificateIssued AuditEvent = "registration_certificate_issued"
	EventRegistrationDeleted           AuditEvent = "registration_deleted"

	// Programs
	EventProgramCreated              AuditEvent = "program_created"
	EventProgramDeleted              AuditEvent = "program_deleted"
	EventEnrollmentCreated           AuditEvent = "enrollment_created"
	EventEnrollmentApproved          AuditEvent = "enrollment_approved"
	EventEnrollmentRejected          AuditEvent = "enrollment_rejected"
	EventEnrollmentStarted           AuditEvent = "enrollment_started"
	EventEnrollmentProgressUpdated   AuditEvent = "enrollment_progress_updated"
	EventEnrollmentCompleted         AuditEvent = "enrollment_completed"
	EventEnrollmentFailed            AuditEvent = "enrollment_failed"
	EventEnrollmentCertificateIssued AuditEvent = "enrollment_certificate_issued"
	EventEnrollmentDropped           AuditEvent = "enrollment_dropped"
	EventEnrollmentCancelled         AuditEvent = "enrollment_cancelled"
	EventEnrollmentDeleted           AuditEvent = "enrollment_deleted"
)

// eventCategories maps each event to its category; anything absent is
// operations.
var eventCategories = map[AuditEvent]EventCategory{
	EventApplicationApproved:           CategoryCompliance,
	EventApplicationRejected:           CategoryCompliance,
	EventCertificationIssued:           CategoryCompliance,
	EventCertificationRevoked:          CategoryCompliance,
	EventRegistrationCertificateIssued: CategoryCompliance,
	EventEnrollmentCertificateIssued:   CategoryCompliance,
	EventEnrollmentCompleted:           CategoryCompliance,
	EventEnrollmentFailed:              CategoryCompliance,
}

// Category returns the EventCategory for this audit event.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

func (e AuditEvent) String() string {
	return string(e)
}

// Payload is the JSON document published for each event.
type Payload struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
	Subject   string `json:"subject"`
	Action    string `json:"action"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	IP        string `json:"ip,omitempty"`
	Client    string `json:"client,omitempty"`
}

// PayloadFor builds the published document for event.
func PayloadFor(eventID uuid.UUID, event Event) Payload {
	category := event.Category
	if category == "" {
		category = AuditEvent(event.Action).Category()
	}
	p := Payload{
		ID:        eventID.String(),
		Category:  string(category),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		ActorID:   event.ActorID,
		Subject:   event.Subject,
		Action:    event.Action,
		Reason:    event.Reason,
		RequestID: event.RequestID,
		IP:        event.IP,
		Client:    event.Client,
	}
	if !event.UserID.IsNil() {
		p.UserID = event.UserID.String()
	}
	return p
}
