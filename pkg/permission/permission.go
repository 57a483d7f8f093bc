package permission

import (
	"github.com/google/uuid"

	"github.com/mutgos/mutgos/pkg/entity"
	"github.com/mutgos/mutgos/pkg/metrics"
	"github.com/mutgos/mutgos/pkg/types"
)

// Resolver is the lookup the evaluator needs beyond what is already in
// hand: resolving an admin_ids/list_ids member to the Group/Capability
// it names, and walking Region ancestry for the locality check.
type Resolver interface {
	Resolve(id types.Id) (entity.Entity, bool)
}

// Context carries the caller identity a Decide call is evaluated
// against (spec §4.F).
type Context struct {
	Requester      types.Id
	Program        types.Id // zero value (invalid Id) means "native primitive"
	RunAsRequester bool
	Pid            uuid.UUID
}

// Violation is the structured denial reason a caller can propagate or
// log, rather than a bare bool.
type Violation struct {
	Context   Context
	Operation types.Flag
	Target    types.Id
	Reason    string
}

func (v *Violation) Error() string {
	return "permission denied: " + v.Reason
}

// subjects returns the identities whose permissions count toward this
// decision, per the running_as_requester dispatch in §4.F: running as
// the requester checks both requester and program (when one is
// running); running as the program alone checks only the program, or
// the requester when no program is running at all (the native-primitive
// case).
func subjects(ctx Context) []types.Id {
	hasProgram := ctx.Program.Valid()
	switch {
	case ctx.RunAsRequester && hasProgram:
		return []types.Id{ctx.Requester, ctx.Program}
	case ctx.RunAsRequester, !hasProgram:
		return []types.Id{ctx.Requester}
	default:
		return []types.Id{ctx.Program}
	}
}

// flagAllows reports whether flags grants op, honoring the basic flag's
// short-circuit (§3.4: "a basic flag short-circuits all flags when set
// in the relevant scope").
func flagAllows(flags types.FlagSet, op types.Flag) bool {
	return flags.Has(op) || flags.Has(types.FlagBasic)
}

// isGroupMember resolves candidate and, if it is a Group or Capability,
// reports whether subject is an active (non-disabled) member. Anything
// else resolves false — admin_ids/list_ids membership only recurses one
// level into group-shaped entries, never nested groups.
func isGroupMember(r Resolver, candidate, subject types.Id) bool {
	e, ok := r.Resolve(candidate)
	if !ok {
		return false
	}
	switch g := e.(type) {
	case *entity.Group:
		return g.IsActiveMember(subject)
	case *entity.Capability:
		return g.IsActiveMember(subject)
	default:
		return false
	}
}

// isAmong reports whether subject is in ids directly, or an active
// member of any Group/Capability listed in ids.
func isAmong(r Resolver, ids []types.Id, subject types.Id) bool {
	for _, id := range ids {
		if id == subject {
			return true
		}
		if isGroupMember(r, id, subject) {
			return true
		}
	}
	return false
}

// Decide implements the §4.F decision order for op against target,
// using sec as target's security descriptor and owner as target's
// owner. Separated from target so the same algorithm serves both
// ordinary entity security and a PropertyApplication's independent
// owner+ACL (see DecideApplication).
func Decide(ctx Context, op types.Flag, owner types.Id, sec types.Security, r Resolver) (bool, *Violation) {
	subs := subjects(ctx)

	// 1. owner equality.
	for _, s := range subs {
		if s == owner {
			metrics.SecurityDecisionsTotal.WithLabelValues(flagName(op), "allow_owner").Inc()
			return true, nil
		}
	}

	// 2. other_flags[op] (or basic).
	if flagAllows(sec.OtherFlags, op) {
		metrics.SecurityDecisionsTotal.WithLabelValues(flagName(op), "allow_other").Inc()
		return true, nil
	}

	// 3. admin_ids, resolving Group/Capability membership one level deep.
	for _, s := range subs {
		if isAmong(r, sec.AdminIds, s) {
			metrics.SecurityDecisionsTotal.WithLabelValues(flagName(op), "allow_admin").Inc()
			return true, nil
		}
	}

	// 4. list_flags[op] (or basic) and subject in list_ids.
	if flagAllows(sec.ListFlags, op) {
		for _, s := range subs {
			if isAmong(r, sec.ListIds, s) {
				metrics.SecurityDecisionsTotal.WithLabelValues(flagName(op), "allow_list").Inc()
				return true, nil
			}
		}
	}

	metrics.SecurityDecisionsTotal.WithLabelValues(flagName(op), "deny").Inc()
	return false, &Violation{Context: ctx, Operation: op, Reason: "no grant matched"}
}

// DecideTarget is Decide convenience form taking the target entity
// itself, filling in Violation.Target and using its own owner+security.
func DecideTarget(ctx Context, op types.Flag, target entity.Entity, r Resolver) (bool, *Violation) {
	allow, violation := Decide(ctx, op, target.Owner(), target.Security(), r)
	if violation != nil {
		violation.Target = target.Id()
	}
	return allow, violation
}

// DecideApplication evaluates op against an application's own owner+ACL
// rather than the entity's (§4.F "application-scoped security"),
// filling in Violation.Target from entityId since an application has no
// id of its own.
func DecideApplication(ctx Context, op types.Flag, entityId types.Id, appOwner types.Id, appSec types.Security, r Resolver) (bool, *Violation) {
	allow, violation := Decide(ctx, op, appOwner, appSec, r)
	if violation != nil {
		violation.Target = entityId
	}
	return allow, violation
}

func flagName(f types.Flag) string {
	switch f {
	case types.FlagRead:
		return "read"
	case types.FlagWrite:
		return "write"
	case types.FlagChown:
		return "chown"
	case types.FlagBasic:
		return "basic"
	case types.FlagExecute:
		return "execute"
	case types.FlagTransferFrom:
		return "transfer_from"
	case types.FlagTransferTo:
		return "transfer_to"
	default:
		return "unknown"
	}
}
