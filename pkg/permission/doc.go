// Package permission is the security evaluator (spec §4.F): a pure
// decision function over a Context, an Operation flag, and a target
// entity's owner/security descriptor, plus the locality and
// application-scoped checks layered on top. It never mutates state and
// never talks to storage directly — callers supply a Resolver for the
// handful of lookups (admin/list group membership, Region ancestry)
// that need one.
package permission
