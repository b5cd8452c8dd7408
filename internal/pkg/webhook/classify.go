package webhook

import "github.com/ManuelReschke/MemberGate/app/models"

type Action int

const (
	ActionIgnore Action = iota
	ActionActivateMembership
	ActionCancelMembership
	ActionUpsertUser
	ActionRecordPayment
)

func (a Action) String() string {
	switch a {
	case ActionActivateMembership:
		return "activate_membership"
	case ActionCancelMembership:
		return "cancel_membership"
	case ActionUpsertUser:
		return "upsert_user"
	case ActionRecordPayment:
		return "record_payment"
	default:
		return "ignore"
	}
}

// TargetStatus is the membership status a membership action writes.
func (a Action) TargetStatus() string {
	switch a {
	case ActionActivateMembership:
		return models.MembershipStatusActive
	case ActionCancelMembership:
		return models.MembershipStatusCancelled
	default:
		return ""
	}
}

// Classify maps an event type to the action taken for it.
func Classify(eventType string) Action {
	switch eventType {
	case "membership.created", "membership.updated", "membership.renewed":
		return ActionActivateMembership
	case "membership.cancelled", "membership.expired":
		return ActionCancelMembership
	case "user.created", "user.updated":
		return ActionUpsertUser
	case "payment.succeeded", "payment.failed":
		return ActionRecordPayment
	default:
		return ActionIgnore
	}
}
