// Package dbaccess is the process-wide Database Access façade: the
// only component that hands callers an *cache.EntityRef. It owns one
// cache.SiteCache per site over the single pkg/storage.Store backend,
// implements deferred breadth-first cascading delete over the
// contained_by/action_contained_by reverse index, fans out lifecycle
// events through pkg/events, and folds the Update Manager's in-flight
// rename tables into search results so a rename is visible before the
// backend re-indexes it.
package dbaccess
