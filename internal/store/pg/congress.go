package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"oncohub.org/internal/access"
	"oncohub.org/internal/congress"
	"oncohub.org/internal/ids"
)

var _ congress.Store = (*Store)(nil)

func (s *Store) Event(ctx context.Context, id string) (congress.Event, error) {
	if s.db == nil {
		return congress.Event{}, errNoDB
	}
	var (
		ev           congress.Event
		status       sql.NullString
		starts, ends sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		select id, name, status, starts_on, ends_on, updated_at
		from congress_events
		where id = $1
	`, id).Scan(&ev.ID, &ev.Name, &status, &starts, &ends, &ev.UpdatedAt)
	if err != nil {
		return congress.Event{}, translate(err, "congress_events", migrationCongress)
	}
	ev.Status = congress.Stage(status.String)
	ev.StartsOn = timePtr(starts)
	ev.EndsOn = timePtr(ends)
	return ev, nil
}

func (s *Store) SetStage(ctx context.Context, actorID, congressID string, from, to congress.Stage) (congress.Event, error) {
	err := s.withActor(ctx, actorID, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			update congress_events
			set status = $3, updated_at = $4, updated_by = $5
			where id = $1 and coalesce(status, '') = $2
		`, congressID, string(from), string(to), s.now(), actorID)
		if err != nil {
			return translate(err, "congress_events", migrationCongress)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return stageMiss(ctx, tx, congressID, from)
		}
		return nil
	})
	if err != nil {
		return congress.Event{}, err
	}
	return s.Event(ctx, congressID)
}

// stageMiss explains an update that touched no row. Reads are not
// row-filtered, so a row still at from means the edit policy refused it.
func stageMiss(ctx context.Context, tx *sql.Tx, congressID string, from congress.Stage) error {
	var current sql.NullString
	err := tx.QueryRowContext(ctx, `select status from congress_events where id = $1`, congressID).Scan(&current)
	if err != nil {
		return translate(err, "congress_events", migrationCongress)
	}
	if congress.Stage(current.String) == from {
		return fmt.Errorf("%w: congress %s is not editable by this user", access.ErrForbidden, congressID)
	}
	return fmt.Errorf("%w: congress %s is no longer %s", access.ErrConflict, congressID, from)
}

func (s *Store) Assignments(ctx context.Context, congressID, userID string) ([]congress.Assignment, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, congress_id, project_role, all_workstreams, workstream_ids, effective_from, effective_to
		from congress_assignments
		where congress_id = $1 and ($2 = '' or user_id = $2)
		order by effective_from, id
	`, congressID, userID)
	if err != nil {
		return nil, translate(err, "congress_assignments", migrationCongress)
	}
	defer rows.Close()

	var result []congress.Assignment
	for rows.Next() {
		var (
			a      congress.Assignment
			role   string
			rawIDs []byte
			to     sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.CongressID, &role, &a.Scope.All, &rawIDs, &a.EffectiveFrom, &to); err != nil {
			return nil, err
		}
		a.ProjectRole = congress.ProjectRole(role)
		if len(rawIDs) > 0 {
			if err := json.Unmarshal(rawIDs, &a.Scope.WorkstreamIDs); err != nil {
				return nil, fmt.Errorf("decode workstream ids: %w", err)
			}
		}
		a.EffectiveTo = timePtr(to)
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateAssignment(ctx context.Context, actorID string, a congress.Assignment) (congress.Assignment, error) {
	a.ID = ids.New()
	workstreams := []byte("[]")
	if !a.Scope.All && len(a.Scope.WorkstreamIDs) > 0 {
		raw, err := json.Marshal(a.Scope.WorkstreamIDs)
		if err != nil {
			return congress.Assignment{}, fmt.Errorf("encode workstream ids: %w", err)
		}
		workstreams = raw
	}
	var to sql.NullTime
	if a.EffectiveTo != nil {
		to = sql.NullTime{Time: *a.EffectiveTo, Valid: true}
	}
	err := s.withActor(ctx, actorID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			insert into congress_assignments
				(id, user_id, congress_id, project_role, all_workstreams, workstream_ids, effective_from, effective_to, created_by)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, a.ID, a.UserID, a.CongressID, string(a.ProjectRole), a.Scope.All, workstreams, a.EffectiveFrom, to, actorID)
		return translate(err, "congress_assignments", migrationCongress)
	})
	if err != nil {
		if errors.Is(err, access.ErrNotFound) {
			return congress.Assignment{}, fmt.Errorf("%w: unknown user or congress", access.ErrNotFound)
		}
		return congress.Assignment{}, err
	}
	return a, nil
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
