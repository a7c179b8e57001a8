// Package access is the single authorization point for every lifecycle.
// Services call Guard.Authorize before touching state; state validity is
// checked separately after the guard allows.
package access

import (
	"github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
)

// Action is something an actor attempts on a resource.
type Action string

const (
	ActionRead           Action = "read"
	ActionList           Action = "list"
	ActionCreate         Action = "create"
	ActionUpdate         Action = "update"
	ActionDelete         Action = "delete"
	ActionCancel         Action = "cancel"
	ActionDrop           Action = "drop"
	ActionReview         Action = "review"
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionIssue          Action = "issue"
	ActionRevoke         Action = "revoke"
	ActionMarkAttendance Action = "mark_attendance"
	ActionStart          Action = "start"
	ActionProgress       Action = "progress"
	ActionComplete       Action = "complete"
	ActionFail           Action = "fail"
	ActionStats          Action = "stats"
	ActionListAll        Action = "list_all"
	ActionManage         Action = "manage"
)

// adminOnly lists actions no non-admin may perform on any resource.
var adminOnly = map[Action]bool{
	ActionReview:         true,
	ActionApprove:        true,
	ActionReject:         true,
	ActionIssue:          true,
	ActionRevoke:         true,
	ActionMarkAttendance: true,
	ActionStart:          true,
	ActionProgress:       true,
	ActionComplete:       true,
	ActionFail:           true,
	ActionStats:          true,
	ActionListAll:        true,
	ActionManage:         true,
}

// Kind names the resource type; used in denial messages.
type Kind string

const (
	KindApplication          Kind = "membership application"
	KindCPEActivity          Kind = "CPE activity"
	KindCertification        Kind = "certification"
	KindCertificationProgram Kind = "certification program"
	KindEvent                Kind = "event"
	KindRegistration         Kind = "event registration"
	KindProgram              Kind = "program"
	KindEnrollment           Kind = "program enrollment"
)

// Resource describes the target of an action.
//
// Owner is the subject of the record (nil for collections and parents).
// Public marks resources guests may read. OwnerMutable is true while the
// record's state still lets its owner edit or remove it.
type Resource struct {
	Kind         Kind
	Owner        domain.UserID
	Public       bool
	OwnerMutable bool
}

// Collection describes a list or create target with no owner.
func Collection(kind Kind) Resource {
	return Resource{Kind: kind}
}

// OwnedBy describes the records of kind that belong to owner, such as a
// caller's own list.
func OwnedBy(kind Kind, owner domain.UserID) Resource {
	return Resource{Kind: kind, Owner: owner}
}

// Guard evaluates the authorization rules. The zero value is ready to use.
type Guard struct{}

func NewGuard() *Guard {
	return &Guard{}
}

// Authorize returns nil when actor may perform action on res. Guests get
// CodeUnauthorized for anything beyond public reads; authenticated
// non-admins get CodeForbidden.
func (g *Guard) Authorize(actor domain.Actor, action Action, res Resource) error {
	if actor.IsAdmin() {
		return nil
	}
	if !actor.IsAuthenticated() {
		if (action == ActionRead || action == ActionList) && res.Public {
			return nil
		}
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if adminOnly[action] {
		return forbidden(action, res)
	}

	switch action {
	case ActionCreate:
		return nil
	case ActionRead, ActionList:
		if res.Public || actor.Owns(res.Owner) {
			return nil
		}
	case ActionUpdate, ActionDelete:
		if actor.Owns(res.Owner) {
			if res.OwnerMutable {
				return nil
			}
			return dErrors.New(dErrors.CodeForbidden,
				"this "+string(res.Kind)+" can no longer be changed by its owner")
		}
	case ActionCancel, ActionDrop:
		if actor.Owns(res.Owner) {
			return nil
		}
	}
	return forbidden(action, res)
}

func forbidden(action Action, res Resource) error {
	return dErrors.New(dErrors.CodeForbidden,
		"not allowed to "+string(action)+" this "+string(res.Kind))
}

// NotFound hides whether a private record exists: admins see 404, everyone
// else gets the same response as for someone else's record.
func NotFound(actor domain.Actor, kind Kind) error {
	if actor.IsAdmin() {
		return dErrors.New(dErrors.CodeNotFound, string(kind)+" not found")
	}
	if !actor.IsAuthenticated() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return dErrors.New(dErrors.CodeForbidden, "not allowed to read this "+string(kind))
}

// PublicNotFound is used for records that guests may look up, where
// concealment is pointless.
func PublicNotFound(kind Kind) error {
	return dErrors.New(dErrors.CodeNotFound, string(kind)+" not found")
}
