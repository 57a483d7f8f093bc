/*
Package types defines the value types shared across MUTGOS's core: site
and entity identifiers, the closed EntityType tag, the EntityField tags
used for dirty tracking and reference-delta propagation, the Security
descriptor, the Lock expression, and the error taxonomy returned across
the Database Access façade.

# Core Types

Identifiers:
  - SiteId, EntityId: the two halves of an Id; each site is an
    independent id space
  - Id: (SiteId, EntityId); the zero value is the explicit invalid id

Entity shape:
  - EntityType: the closed variant tag (Group, Capability, Region, Room,
    Player, Guest, Thing, Puppet, Vehicle, Command, Exit, Program)
  - EntityField: tags every mutable field; IsReference reports whether
    changing that field must emit a reference delta

Security:
  - Security: OtherFlags/ListFlags bitsets plus AdminIds/ListIds, carried
    both on entities and on individual property applications
  - Lock: None | ById | ByGroup | ByProperty, stored on Things and
    actions; no package in this module evaluates a Lock

Errors:
  - the sentinel Err* values form the closed taxonomy from the core
    spec's error-handling section; every façade method returns one of
    these (wrapped with context) or nil

# Thread safety

Values in this package carry no synchronization of their own. Entities
embedding a Security or a slice of Ids are responsible for copying
(Security.Clone) before handing a value across a lock boundary.
*/
package types
