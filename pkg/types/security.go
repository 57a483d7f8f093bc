package types

// Flag is a single named permission bit understood by the security
// evaluator (pkg/permission). The set is closed but extensible within
// this package so new operations can be added without touching callers
// that only test specific bits.
type Flag uint8

const (
	FlagRead Flag = iota
	FlagWrite
	FlagChown
	FlagBasic
	FlagExecute
	FlagTransferFrom
	FlagTransferTo

	flagCount
)

// FlagSet is a small bitset over Flag.
type FlagSet uint32

func (s FlagSet) Has(f Flag) bool {
	return s&(1<<uint(f)) != 0
}

func (s FlagSet) With(f Flag) FlagSet {
	return s | (1 << uint(f))
}

func (s FlagSet) Without(f Flag) FlagSet {
	return s &^ (1 << uint(f))
}

// Security is the descriptor attached to every entity, and independently
// to each property application within a PropertyEntity (§3.4).
type Security struct {
	OtherFlags FlagSet
	ListFlags  FlagSet
	AdminIds   []Id
	ListIds    []Id
}

// Clone returns a deep copy so setters never alias a caller's slices.
func (s Security) Clone() Security {
	out := Security{OtherFlags: s.OtherFlags, ListFlags: s.ListFlags}
	if len(s.AdminIds) > 0 {
		out.AdminIds = append([]Id(nil), s.AdminIds...)
	}
	if len(s.ListIds) > 0 {
		out.ListIds = append([]Id(nil), s.ListIds...)
	}
	return out
}

func containsId(ids []Id, target Id) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

// AdminContains reports whether id is listed directly in AdminIds. Group
// and Capability membership resolution is the evaluator's job (pkg
// permission), since it requires looking up the member entities.
func (s Security) AdminContains(id Id) bool {
	return containsId(s.AdminIds, id)
}

// ListContains reports whether id is listed directly in ListIds.
func (s Security) ListContains(id Id) bool {
	return containsId(s.ListIds, id)
}

// LockKind distinguishes the variants of a Lock expression (§3.5).
type LockKind uint8

const (
	LockNone LockKind = iota
	LockById
	LockByGroup
	LockByProperty
)

// Lock is a boolean expression evaluated against an entity at runtime.
// ById/ByGroup compare that entity's identity (or group membership)
// against Target; ByProperty reads PropertyPath off of the entity being
// evaluated and coerces the result to bool.
type Lock struct {
	Kind         LockKind
	Target       Id
	PropertyPath string
}

// IsSet reports whether this is anything other than LockNone.
func (l Lock) IsSet() bool {
	return l.Kind != LockNone
}
