// Package updatemgr is the Update Manager (spec §4.E): a background
// loop over pkg/dbaccess that periodically flushes dirty entities,
// drains the deletion queue with backoff on ErrEntityInUse, drives
// pending site deletes to completion, and tracks in-flight player and
// program-registration renames on pkg/dbaccess's behalf so a rename is
// visible to search before it is flushed.
package updatemgr
