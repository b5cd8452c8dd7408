package webhook

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/ManuelReschke/MemberGate/app/models"
	"github.com/ManuelReschke/MemberGate/app/repository"
)

var (
	ErrLogEvent         = errors.New("failed to log event")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Verifier checks a webhook signature, see whop.Client.
type Verifier interface {
	VerifyWebhookSignature(payload []byte, signature string) (bool, error)
}

// ActionCounter records the action taken for each live delivery, see counter.WebhookActions.
type ActionCounter interface {
	Add(ctx context.Context, action string) error
}

// Service runs the ingestion pipeline: verify, log, classify, reconcile.
type Service struct {
	events     repository.WebhookEventRepository
	reconciler *Reconciler
	verifier   Verifier
	counter    ActionCounter
	log        *zap.Logger
}

func NewService(repos *repository.Repositories, verifier Verifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		events:     repos.Events,
		reconciler: NewReconciler(repos, log),
		verifier:   verifier,
		log:        log.Named("webhook"),
	}
}

// WithCounter makes Dispatch count actions. Replays are never counted.
func (s *Service) WithCounter(counter ActionCounter) *Service {
	s.counter = counter
	return s
}

func (s *Service) Reconciler() *Reconciler {
	return s.reconciler
}

// Ingest handles one raw delivery. The body is verified before it is parsed,
// and it is logged before any reconciliation. Reconciliation failures are
// logged and never surface as an error.
func (s *Service) Ingest(ctx context.Context, raw []byte, signature string) (*models.WebhookEvent, error) {
	ok, err := s.verifier.VerifyWebhookSignature(raw, signature)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidSignature
	}

	payload, err := ParsePayload(raw)
	if err != nil {
		return nil, err
	}

	event, err := s.LogEvent(ctx, payload)
	if err != nil {
		return nil, err
	}

	s.Dispatch(ctx, payload)
	return event, nil
}

// LogEvent appends the payload to the event log with the probed identifiers.
func (s *Service) LogEvent(ctx context.Context, payload *Payload) (*models.WebhookEvent, error) {
	event := &models.WebhookEvent{
		EventType:        payload.EventType(),
		WhopUserID:       optional(payload.Probe("user_id")),
		WhopMembershipID: optional(payload.Probe("membership_id")),
		CompanyID:        optional(payload.Probe("company_id")),
		PlanID:           optional(payload.Probe("plan_id")),
		Payload:          datatypes.JSON(payload.Raw()),
		Processed:        false,
	}
	if err := s.events.Create(ctx, event); err != nil {
		s.log.Error("failed to log webhook event", zap.String("event_type", event.EventType), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrLogEvent, err)
	}

	s.log.Info("webhook event logged", zap.String("event_id", event.ID), zap.String("event_type", event.EventType))
	return event, nil
}

// Dispatch classifies the payload and runs the matching reconciliation.
// Errors are logged per branch.
func (s *Service) Dispatch(ctx context.Context, payload *Payload) Action {
	action, err := s.dispatch(ctx, payload)
	if err != nil {
		s.log.Error("webhook reconciliation failed",
			zap.String("event_type", payload.EventType()),
			zap.Stringer("action", action),
			zap.Error(err),
		)
	}
	if s.counter != nil {
		if err := s.counter.Add(ctx, action.String()); err != nil {
			s.log.Warn("failed to count webhook action", zap.Stringer("action", action), zap.Error(err))
		}
	}
	return action
}

func (s *Service) dispatch(ctx context.Context, payload *Payload) (Action, error) {
	eventType := payload.EventType()
	action := Classify(eventType)

	switch action {
	case ActionActivateMembership, ActionCancelMembership:
		return action, s.reconciler.ReconcileMembership(ctx, payload.Subject(), action.TargetStatus())
	case ActionUpsertUser:
		return action, s.reconciler.ReconcileUser(ctx, payload.Subject())
	case ActionRecordPayment:
		subject := payload.Subject()
		s.log.Info("payment event received",
			zap.String("event_type", eventType),
			zap.String("user_id", payload.Probe("user_id")),
			zap.String("membership_id", payload.Probe("membership_id")),
			zap.String("amount", subject.String("amount")),
			zap.String("currency", subject.String("currency")),
		)
		return action, nil
	default:
		s.log.Info("unhandled webhook event type", zap.String("event_type", eventType))
		return action, nil
	}
}

// ReplayResult summarizes a Replay run.
type ReplayResult struct {
	Total    int
	Replayed int
	Failed   int
	Skipped  int
	Actions  map[string]int
}

// Replay re-dispatches logged payloads oldest first. It writes no new log rows.
func (s *Service) Replay(ctx context.Context, filter repository.ReplayFilter) (*ReplayResult, error) {
	events, err := s.events.ListForReplay(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events for replay: %w", err)
	}

	result := &ReplayResult{Total: len(events), Actions: map[string]int{}}
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		payload, err := ParsePayload(event.Payload)
		if err != nil {
			s.log.Warn("skipping unparsable logged event", zap.String("event_id", event.ID))
			result.Skipped++
			continue
		}

		action, err := s.dispatch(ctx, payload)
		result.Actions[action.String()]++
		if err != nil {
			s.log.Error("replay failed", zap.String("event_id", event.ID), zap.Error(err))
			result.Failed++
			continue
		}
		result.Replayed++
	}
	return result, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
