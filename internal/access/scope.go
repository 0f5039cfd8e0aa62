package access

import (
	"fmt"
	"strings"
)

// ScopeType is the breadth of a permission grant.
type ScopeType string

const (
	ScopeGlobal     ScopeType = "global"
	ScopeCongress   ScopeType = "congress"
	ScopeInitiative ScopeType = "initiative"
)

func (t ScopeType) Valid() bool {
	switch t {
	case ScopeGlobal, ScopeCongress, ScopeInitiative:
		return true
	}
	return false
}

// Scope identifies a grant target. ID is empty for global scope and
// required otherwise.
type Scope struct {
	Type ScopeType `json:"scope_type"`
	ID   string    `json:"scope_id,omitempty"`
}

// Global is the zero-argument scope used by most checks.
var Global = Scope{Type: ScopeGlobal}

func CongressScope(id string) Scope   { return Scope{Type: ScopeCongress, ID: id} }
func InitiativeScope(id string) Scope { return Scope{Type: ScopeInitiative, ID: id} }

func (s Scope) IsGlobal() bool { return s.Type == ScopeGlobal }

func (s Scope) String() string {
	if s.IsGlobal() {
		return string(ScopeGlobal)
	}
	return string(s.Type) + ":" + s.ID
}

// ValidateScope enforces the scope invariant. An empty scope type is read
// as global. The scope is never coerced: a mismatched pair is an error.
func ValidateScope(scopeType ScopeType, scopeID string) error {
	if scopeType == "" {
		scopeType = ScopeGlobal
	}
	if !scopeType.Valid() {
		return invalid(fmt.Sprintf("invalid scope type %q", scopeType))
	}
	id := strings.TrimSpace(scopeID)
	if scopeType == ScopeGlobal {
		if id != "" {
			return invalid("scopeId must be empty when scopeType is global")
		}
		return nil
	}
	if id == "" {
		return invalid("scopeId is required for scoped permissions")
	}
	return nil
}

// NewScope validates and builds a Scope.
func NewScope(scopeType ScopeType, scopeID string) (Scope, error) {
	if err := ValidateScope(scopeType, scopeID); err != nil {
		return Scope{}, err
	}
	if scopeType == "" {
		scopeType = ScopeGlobal
	}
	return Scope{Type: scopeType, ID: strings.TrimSpace(scopeID)}, nil
}
