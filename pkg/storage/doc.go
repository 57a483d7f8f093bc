/*
Package storage implements the Storage Backend contract against BoltDB:
per-site bucket trees holding entity blobs, the per-site id allocator
(monotonic next_id plus a recycled-id pool popped smallest-first), the
program-registration index, and site metadata.

# Bucket layout

	sites                              top-level bucket, keyed by SiteId
	  <site>/meta                      next_id, name, description
	  <site>/entities                  EntityId -> entity.MarshalEntity blob
	  <site>/recycled                  EntityId -> empty value (a set)
	  <site>/program_reg               registration name -> EntityId

Everything under a site lives in one nested bucket so deleting a site is
a single bucket delete. Entities are opaque blobs to this package; only
pkg/entity knows how to decode the "type" discriminator within them.

# Recycling discipline

delete_entity inserts into <site>/recycled immediately; new_entity pops
the smallest key from it before falling back to next_id. Popping
smallest-first (rather than LIFO) keeps ids trending monotonic even
under heavy churn. Each site has its own recycled bucket and next_id,
so allocation in one site never affects another site's ids.
*/
package storage
