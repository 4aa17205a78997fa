// Package access decides who may call which endpoint and on which records.
//
// Decisions come from a declarative Policy: for each Endpoint, the roles allowed to call it
// (no hierarchy, super_admin is listed explicitly where it applies), whether it writes, and an
// optional record Scope per role. A missing rule, role or scoping attribute always denies.
package access

import (
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

// Endpoint names an operation guarded by the Policy.
type Endpoint string

// Rule is the guard of one Endpoint.
type Rule struct {
	Roles []user.Role
	// Write endpoints are refused to deactivated profiles.
	Write bool
	// Scopes restricts the records a role may touch; roles without an entry are unrestricted.
	Scopes map[user.Role]Scope
}

func (r Rule) allows(role user.Role) bool {
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

type Policy map[Endpoint]Rule

// Attributes are the facts about a record (or a list filter) that scopes look at.
type Attributes struct {
	OwnerIDs    []string // student ids the record belongs to
	HostelBlock string
	FacultyID   string
	CreatorID   string
}

// Record is anything a Scope can be checked against.
type Record interface {
	AccessAttributes() Attributes
}

// Authorizer evaluates a Policy. It is stateless and has no side effects.
type Authorizer struct {
	policy Policy
}

func NewAuthorizer(policy Policy) *Authorizer {
	return &Authorizer{policy: policy}
}

func forbidden(reason string) error {
	return errors.Wrap(core.ErrForbidden, reason)
}

// Authorize is the role guard: role membership, and an active profile for writes.
func (a *Authorizer) Authorize(ep Endpoint, prof user.Profile) error {
	rule, ok := a.policy[ep]
	if !ok {
		return forbidden("no rule for " + string(ep))
	}
	if !rule.allows(prof.Role) {
		return forbidden("role " + string(prof.Role) + " not allowed on " + string(ep))
	}
	if rule.Write && !prof.IsActive {
		return forbidden("inactive profile")
	}
	return nil
}

// AuthorizeRecord is the record-scoping predicate for single-record endpoints.
func (a *Authorizer) AuthorizeRecord(ep Endpoint, prof user.Profile, rec Record) error {
	if err := a.Authorize(ep, prof); err != nil {
		return err
	}
	scope := a.policy[ep].Scopes[prof.Role]
	if scope == nil {
		return nil
	}
	if !scope.Allows(rec.AccessAttributes(), prof) {
		return forbidden("record out of scope for " + string(ep))
	}
	return nil
}

// Narrow returns the Attributes a list filter must be pinned to for `prof` on `ep`.
// restricted is false when the role sees everything.
func (a *Authorizer) Narrow(ep Endpoint, prof user.Profile) (attrs Attributes, restricted bool, err error) {
	if err := a.Authorize(ep, prof); err != nil {
		return Attributes{}, false, err
	}
	scope := a.policy[ep].Scopes[prof.Role]
	if scope == nil {
		return Attributes{}, false, nil
	}
	attrs, ok := scope.Narrow(prof)
	if !ok {
		return Attributes{}, false, forbidden("requester has no scoping attribute for " + string(ep))
	}
	return attrs, true, nil
}

// Rule returns the rule of an Endpoint, mostly for introspection.
func (a *Authorizer) Rule(ep Endpoint) (Rule, bool) {
	rule, ok := a.policy[ep]
	return rule, ok
}
