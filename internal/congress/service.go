package congress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"oncohub.org/internal/access"
)

// Event is the part of a congress record the workspace needs.
type Event struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    Stage      `json:"status"`
	StartsOn  *time.Time `json:"starts_on,omitempty"`
	EndsOn    *time.Time `json:"ends_on,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Store persists congress events and assignments.
type Store interface {
	// Event returns access.ErrNotFound for an unknown id.
	Event(ctx context.Context, id string) (Event, error)
	// Assignments lists assignments for a congress, optionally for one user.
	Assignments(ctx context.Context, congressID, userID string) ([]Assignment, error)
	CreateAssignment(ctx context.Context, actorID string, a Assignment) (Assignment, error)
	// SetStage moves from -> to and returns access.ErrConflict when the
	// stored stage is no longer from.
	SetStage(ctx context.Context, actorID, congressID string, from, to Stage) (Event, error)
}

// Authorizer is the slice of the access resolver the service calls.
type Authorizer interface {
	Require(ctx context.Context, userID string, space access.Space, scope access.Scope, min access.AccessLevel) (access.Decision, error)
}

type Service struct {
	store Store
	authz Authorizer
	now   func() time.Time
}

func NewService(store Store, authz Authorizer) (*Service, error) {
	if store == nil {
		return nil, errors.New("congress store is required")
	}
	if authz == nil {
		return nil, errors.New("authorizer is required")
	}
	return &Service{store: store, authz: authz, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Workspace is a congress event with its section navigation.
type Workspace struct {
	Event    Event        `json:"event"`
	Sections []SectionNav `json:"sections"`
}

func (s *Service) Workspace(ctx context.Context, userID, congressID string) (Workspace, error) {
	ev, err := s.event(ctx, userID, congressID, access.AccessView)
	if err != nil {
		return Workspace{}, err
	}
	return Workspace{Event: ev, Sections: Sections(ev.Status)}, nil
}

// Assignments lists the congress assignments, filtered to those effective
// on day when day is non-zero.
func (s *Service) Assignments(ctx context.Context, userID, congressID string, day time.Time) ([]Assignment, error) {
	if _, err := s.event(ctx, userID, congressID, access.AccessView); err != nil {
		return nil, err
	}
	list, err := s.store.Assignments(ctx, congressID, "")
	if err != nil {
		return nil, err
	}
	if day.IsZero() {
		return list, nil
	}
	return EffectiveOn(list, day), nil
}

// Responsibility explains the caller's congress access using the resolved
// level and the assignments effective on day (today when zero).
func (s *Service) Responsibility(ctx context.Context, userID, congressID string, day time.Time) (Summary, error) {
	scope := access.CongressScope(congressID)
	d, err := s.authz.Require(ctx, userID, access.SpaceCongress, scope, access.AccessView)
	if err != nil {
		return Summary{}, err
	}
	if day.IsZero() {
		day = s.now()
	}
	mine, err := s.store.Assignments(ctx, congressID, userID)
	if err != nil {
		return Summary{}, err
	}
	summary := SummarizeDecision(d, RolesOf(EffectiveOn(mine, day)))
	summary.RoleLabel = d.Role.Label()
	return summary, nil
}

// AdvanceStage moves the congress to the next lifecycle stage. It requires
// edit access to the congress space for this congress.
func (s *Service) AdvanceStage(ctx context.Context, userID, congressID string, to Stage) (Event, error) {
	ev, err := s.event(ctx, userID, congressID, access.AccessEdit)
	if err != nil {
		return Event{}, err
	}
	if err := ValidateTransition(ev.Status, to); err != nil {
		return Event{}, err
	}
	return s.store.SetStage(ctx, userID, congressID, ev.Status, to)
}

// Assign records a project role. Managing the team needs manage access.
func (s *Service) Assign(ctx context.Context, userID string, a Assignment) (Assignment, error) {
	a.CongressID = strings.TrimSpace(a.CongressID)
	if err := a.Validate(); err != nil {
		return Assignment{}, err
	}
	if _, err := s.event(ctx, userID, a.CongressID, access.AccessManage); err != nil {
		return Assignment{}, err
	}
	return s.store.CreateAssignment(ctx, userID, a)
}

func (s *Service) event(ctx context.Context, userID, congressID string, min access.AccessLevel) (Event, error) {
	congressID = strings.TrimSpace(congressID)
	if congressID == "" {
		return Event{}, &access.ValidationError{Msg: "congressId is required"}
	}
	if _, err := s.authz.Require(ctx, userID, access.SpaceCongress, access.CongressScope(congressID), min); err != nil {
		return Event{}, err
	}
	ev, err := s.store.Event(ctx, congressID)
	if err != nil {
		return Event{}, fmt.Errorf("load congress %s: %w", congressID, err)
	}
	return ev, nil
}
