package pg

import (
	"context"
	"database/sql"
	"errors"

	"oncohub.org/internal/access"
	"oncohub.org/internal/ids"
)

const noteRestored = "restored to default"

func (s *Store) Profile(ctx context.Context, userID string) (access.Profile, error) {
	if s.db == nil {
		return access.Profile{}, errNoDB
	}
	var (
		p    access.Profile
		role string
	)
	err := s.db.QueryRowContext(ctx, `
		select id, coalesce(email, ''), coalesce(display_name, ''), coalesce(role, ''), created_at, updated_at
		from profiles
		where id = $1
	`, userID).Scan(&p.ID, &p.Email, &p.DisplayName, &role, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return access.Profile{}, translate(err, "profiles", migrationProfiles)
	}
	p.Role = access.RoleOrDefault(role)
	return p, nil
}

func (s *Store) RoleDefaults(ctx context.Context, role access.PlatformRole) (map[access.Space]access.AccessLevel, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select space, access_level
		from role_default_overrides
		where role = $1
	`, string(role))
	if err != nil {
		return nil, translate(err, "role_default_overrides", migrationRoleDefaults)
	}
	defer rows.Close()

	out := make(map[access.Space]access.AccessLevel)
	for rows.Next() {
		var space, level string
		if err := rows.Scan(&space, &level); err != nil {
			return nil, err
		}
		out[access.Space(space)] = access.LevelOrInvisible(level)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UserOverrides(ctx context.Context, userID string) ([]access.PermissionOverride, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select space, scope_type, scope_id, access_level, coalesce(granted_by, ''), created_at, updated_at
		from permission_overrides
		where user_id = $1
		order by space, scope_type, scope_id
	`, userID)
	if err != nil {
		return nil, translate(err, "permission_overrides", migrationOverrides)
	}
	defer rows.Close()

	var result []access.PermissionOverride
	for rows.Next() {
		var (
			o                       access.PermissionOverride
			space, scopeType, scope string
			level                   string
		)
		if err := rows.Scan(&space, &scopeType, &scope, &level, &o.GrantedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.UserID = userID
		o.Space = access.Space(space)
		o.Scope = scopeFromRow(scopeType, scope)
		o.Level = access.LevelOrInvisible(level)
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) ListOverrides(ctx context.Context, userID string) ([]access.PermissionOverride, error) {
	return s.UserOverrides(ctx, userID)
}

func (s *Store) SetOverride(ctx context.Context, actorID string, o access.PermissionOverride) (access.AuditEntry, error) {
	var entry access.AuditEntry
	err := s.withActor(ctx, actorID, func(tx *sql.Tx) error {
		prev, err := currentOverride(ctx, tx, o.UserID, o.Space, o.Scope)
		if err != nil {
			return err
		}
		now := s.now()
		if _, err := tx.ExecContext(ctx, `
			insert into permission_overrides (user_id, space, scope_type, scope_id, access_level, granted_by, created_at, updated_at)
			values ($1, $2, $3, $4, $5, $6, $7, $7)
			on conflict (user_id, space, scope_type, scope_id) do update
			set access_level = excluded.access_level,
			    granted_by = excluded.granted_by,
			    updated_at = excluded.updated_at
		`, o.UserID, string(o.Space), string(o.Scope.Type), o.Scope.ID, o.Level.String(), actorID, now); err != nil {
			return translate(err, "permission_overrides", migrationOverrides)
		}
		level := o.Level
		entry, err = appendAudit(ctx, tx, access.AuditEntry{
			TargetUserID:  o.UserID,
			ChangedBy:     actorID,
			ChangeType:    access.ChangeSet,
			Space:         o.Space,
			Scope:         o.Scope,
			PreviousValue: prev,
			NewValue:      &level,
			OccurredAt:    now,
		})
		return err
	})
	if err != nil {
		return access.AuditEntry{}, err
	}
	return entry, nil
}

func (s *Store) RemoveOverride(ctx context.Context, actorID, userID string, space access.Space, scope access.Scope) (access.AuditEntry, error) {
	var entry access.AuditEntry
	err := s.withActor(ctx, actorID, func(tx *sql.Tx) error {
		prev, err := currentOverride(ctx, tx, userID, space, scope)
		if err != nil {
			return err
		}
		if prev != nil {
			if _, err := tx.ExecContext(ctx, `
				delete from permission_overrides
				where user_id = $1 and space = $2 and scope_type = $3 and scope_id = $4
			`, userID, string(space), string(scope.Type), scope.ID); err != nil {
				return translate(err, "permission_overrides", migrationOverrides)
			}
		}
		entry, err = appendAudit(ctx, tx, access.AuditEntry{
			TargetUserID:  userID,
			ChangedBy:     actorID,
			ChangeType:    access.ChangeRemove,
			Space:         space,
			Scope:         scope,
			PreviousValue: prev,
			Note:          noteRestored,
			OccurredAt:    s.now(),
		})
		return err
	})
	if err != nil {
		return access.AuditEntry{}, err
	}
	return entry, nil
}

// currentOverride locks and returns the stored level, nil when absent.
func currentOverride(ctx context.Context, tx *sql.Tx, userID string, space access.Space, scope access.Scope) (*access.AccessLevel, error) {
	var level string
	err := tx.QueryRowContext(ctx, `
		select access_level
		from permission_overrides
		where user_id = $1 and space = $2 and scope_type = $3 and scope_id = $4
		for update
	`, userID, string(space), string(scope.Type), scope.ID).Scan(&level)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "permission_overrides", migrationOverrides)
	}
	l := access.LevelOrInvisible(level)
	return &l, nil
}

func appendAudit(ctx context.Context, tx *sql.Tx, e access.AuditEntry) (access.AuditEntry, error) {
	e.ID = ids.NewAt(e.OccurredAt)
	if _, err := tx.ExecContext(ctx, `
		insert into permission_audit_log
			(id, target_user_id, changed_by, change_type, space, scope_type, scope_id, previous_value, new_value, note, occurred_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, nullif($10, ''), $11)
	`, e.ID, e.TargetUserID, e.ChangedBy, string(e.ChangeType), string(e.Space), string(e.Scope.Type), e.Scope.ID,
		nullLevel(e.PreviousValue), nullLevel(e.NewValue), e.Note, e.OccurredAt); err != nil {
		return access.AuditEntry{}, translate(err, "permission_audit_log", migrationOverrides)
	}
	return e, nil
}

// AuditLog reads as actorID; the table only shows rows to platform admins.
func (s *Store) AuditLog(ctx context.Context, actorID, targetUserID string, limit int) ([]access.AuditEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = access.DefaultAuditLimit
	}
	var result []access.AuditEntry
	err := s.withActor(ctx, actorID, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			select id, target_user_id, changed_by, change_type, space, scope_type, scope_id,
			       previous_value, new_value, coalesce(note, ''), occurred_at
			from permission_audit_log
			where target_user_id = $1
			order by occurred_at desc, id desc
			limit $2
		`, targetUserID, limit)
		if err != nil {
			return translate(err, "permission_audit_log", migrationOverrides)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				e                             access.AuditEntry
				changeType, space, sType, sID string
				prev, next                    sql.NullString
			)
			if err := rows.Scan(&e.ID, &e.TargetUserID, &e.ChangedBy, &changeType, &space, &sType, &sID,
				&prev, &next, &e.Note, &e.OccurredAt); err != nil {
				return err
			}
			e.ChangeType = access.ChangeType(changeType)
			e.Space = access.Space(space)
			e.Scope = scopeFromRow(sType, sID)
			e.PreviousValue = levelFromNull(prev)
			e.NewValue = levelFromNull(next)
			result = append(result, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) SetRoleDefault(ctx context.Context, actorID string, d access.RoleDefaultOverride) (access.RoleDefaultOverride, error) {
	d.UpdatedBy = actorID
	err := s.withActor(ctx, actorID, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			insert into role_default_overrides (role, space, access_level, updated_by, updated_at)
			values ($1, $2, $3, $4, $5)
			on conflict (role, space) do update
			set access_level = excluded.access_level,
			    updated_by = excluded.updated_by,
			    updated_at = excluded.updated_at
			returning updated_at
		`, string(d.Role), string(d.Space), d.Level.String(), actorID, s.now()).Scan(&d.UpdatedAt)
		return translate(err, "role_default_overrides", migrationRoleDefaults)
	})
	if err != nil {
		return access.RoleDefaultOverride{}, err
	}
	return d, nil
}

func (s *Store) RemoveRoleDefault(ctx context.Context, actorID string, role access.PlatformRole, space access.Space) (bool, error) {
	var removed bool
	err := s.withActor(ctx, actorID, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			delete from role_default_overrides where role = $1 and space = $2
		`, string(role), string(space))
		if err != nil {
			return translate(err, "role_default_overrides", migrationRoleDefaults)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		removed = n > 0
		return nil
	})
	return removed, err
}

func (s *Store) ListRoleDefaults(ctx context.Context) ([]access.RoleDefaultOverride, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select role, space, access_level, coalesce(updated_by, ''), updated_at
		from role_default_overrides
		order by role, space
	`)
	if err != nil {
		return nil, translate(err, "role_default_overrides", migrationRoleDefaults)
	}
	defer rows.Close()

	var result []access.RoleDefaultOverride
	for rows.Next() {
		var (
			d                  access.RoleDefaultOverride
			role, space, level string
		)
		if err := rows.Scan(&role, &space, &level, &d.UpdatedBy, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Role = access.PlatformRole(role)
		d.Space = access.Space(space)
		d.Level = access.LevelOrInvisible(level)
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
