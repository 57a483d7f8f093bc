package entity

import (
	"sync"

	"github.com/mutgos/mutgos/pkg/types"
)

// PropertyApplication is a named namespace within a PropertyDirectory.
// Each application carries its own owner+ACL (spec §3.3/§4.F
// "application-scoped security"), independent of the owning entity's
// header security.
type PropertyApplication struct {
	Owner    types.Id
	Security types.Security
	Values   map[string]any
}

func newApplication(owner types.Id) *PropertyApplication {
	return &PropertyApplication{Owner: owner, Values: make(map[string]any)}
}

func (a *PropertyApplication) clone() *PropertyApplication {
	out := &PropertyApplication{Owner: a.Owner, Security: a.Security.Clone(), Values: make(map[string]any, len(a.Values))}
	for k, v := range a.Values {
		out.Values[k] = v
	}
	return out
}

// PropertyDirectory is the minimal stand-in for the full property-tree
// data type, which spec.md treats as an external collaborator ("the
// property-directory data type" is explicitly out of scope). This
// implementation provides exactly the surface PropertyEntity needs:
// per-application storage with per-application owner+ACL, keyed values
// within an application. A richer tree (nested paths within an
// application) is left to the soft-code interpreter this core does not
// own.
type PropertyDirectory struct {
	mu           sync.RWMutex
	applications map[string]*PropertyApplication
}

func newPropertyDirectory() *PropertyDirectory {
	return &PropertyDirectory{applications: make(map[string]*PropertyApplication)}
}

// Application returns the named application, creating it (owned by
// owner) if absent.
func (d *PropertyDirectory) Application(name string, owner types.Id) *PropertyApplication {
	d.mu.Lock()
	defer d.mu.Unlock()
	app, ok := d.applications[name]
	if !ok {
		app = newApplication(owner)
		d.applications[name] = app
	}
	return app
}

// Get reads a single key from the named application. Returns (nil,
// false) if the application or key does not exist.
func (d *PropertyDirectory) Get(application, key string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	app, ok := d.applications[application]
	if !ok {
		return nil, false
	}
	v, ok := app.Values[key]
	return v, ok
}

// Set writes a key within the named application, creating the
// application (owned by owner) if it does not exist yet.
func (d *PropertyDirectory) Set(application, key string, owner types.Id, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	app, ok := d.applications[application]
	if !ok {
		app = newApplication(owner)
		d.applications[application] = app
	}
	app.Values[key] = value
}

// GetBool reads key and coerces it to bool, used by Lock's ByProperty
// evaluation (spec §3.5): missing, non-bool, or non-existent values
// coerce to false.
func (d *PropertyDirectory) GetBool(application, key string) bool {
	v, ok := d.Get(application, key)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (d *PropertyDirectory) clone() *PropertyDirectory {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := newPropertyDirectory()
	for name, app := range d.applications {
		out.applications[name] = app.clone()
	}
	return out
}

// Applications returns application names, for serialization.
func (d *PropertyDirectory) Applications() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.applications))
	for name := range d.applications {
		names = append(names, name)
	}
	return names
}

// RegistrationDirectory maps a per-site-unique registration name to the
// program id it resolves to (spec §3.3 ContainerPropertyEntity
// "registrations", §4.B "program-registration index").
type RegistrationDirectory struct {
	mu      sync.RWMutex
	byName  map[string]types.Id
}

func newRegistrationDirectory() *RegistrationDirectory {
	return &RegistrationDirectory{byName: make(map[string]types.Id)}
}

func (r *RegistrationDirectory) Set(name string, target types.Id) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = target
}

func (r *RegistrationDirectory) Get(name string) (types.Id, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	return id, ok
}

func (r *RegistrationDirectory) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byName, name)
}

func (r *RegistrationDirectory) clone() *RegistrationDirectory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := newRegistrationDirectory()
	for k, v := range r.byName {
		out.byName[k] = v
	}
	return out
}
