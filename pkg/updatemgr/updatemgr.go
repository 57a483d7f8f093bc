package updatemgr

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mutgos/mutgos/pkg/dbaccess"
	"github.com/mutgos/mutgos/pkg/log"
	"github.com/mutgos/mutgos/pkg/metrics"
	"github.com/mutgos/mutgos/pkg/types"
)

// defaultFlushInterval is how often the Update Manager scans for dirty
// entities and retries the deletion queue when NewManager is called
// without an override (see pkg/config's updateManager.flushInterval
// knob, wired in by NewManagerWithInterval).
const defaultFlushInterval = 5 * time.Second

// renameEntry pairs a pending new name with the site it belongs to, so
// PendingPlayerIds/PendingRegIds can answer without a reverse lookup.
type renameEntry struct {
	site types.SiteId
	name string
}

// Manager is the Update Manager (spec §4.E). Construct with NewManager,
// which wires itself into facade as the RenameTracker and time-jump
// handler; call Start once the façade has completed Startup.
type Manager struct {
	facade *dbaccess.DbAccess
	logger zerolog.Logger

	mu          sync.Mutex
	deleteQueue map[types.Id]int
	sitesToDrop map[types.SiteId]bool

	renameMu      sync.RWMutex
	playerRenames map[types.Id]renameEntry
	regRenames    map[types.Id]renameEntry

	flushInterval time.Duration
	stopCh        chan struct{}
}

// NewManager constructs a Manager bound to facade and registers it as
// facade's rename tracker and time-jump handler, using
// defaultFlushInterval for the background loop.
func NewManager(facade *dbaccess.DbAccess) *Manager {
	return NewManagerWithInterval(facade, defaultFlushInterval)
}

// NewManagerWithInterval is NewManager with an explicit flush interval,
// sourced from pkg/config's updateManager.flushInterval knob.
func NewManagerWithInterval(facade *dbaccess.DbAccess, interval time.Duration) *Manager {
	m := &Manager{
		facade:        facade,
		logger:        log.WithComponent("updatemgr"),
		deleteQueue:   make(map[types.Id]int),
		sitesToDrop:   make(map[types.SiteId]bool),
		playerRenames: make(map[types.Id]renameEntry),
		regRenames:    make(map[types.Id]renameEntry),
		flushInterval: interval,
		stopCh:        make(chan struct{}),
	}
	facade.SetRenameTracker(m)
	facade.SetTimeJumpHandler(m.OsTimeHasJumped)
	return m
}

// Start begins the background flush/delete-drain/site-delete loop.
func (m *Manager) Start() {
	go m.run()
}

// Stop stops the loop.
func (m *Manager) Stop() {
	close(m.stopCh)
}

func (m *Manager) run() {
	ticker := time.NewTicker(m.flushInterval)
	defer ticker.Stop()

	m.logger.Info().Msg("update manager started")

	for {
		select {
		case <-ticker.C:
			m.tick()
		case <-m.stopCh:
			m.logger.Info().Msg("update manager stopped")
			return
		}
	}
}

// tick runs one flush/drain pass. Order matters: site deletes are
// driven last since a delete becomes ready only once nothing else in
// this pass still references the site's entities.
func (m *Manager) tick() {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.FlushDuration)

	m.flushDirty()
	m.drainDeleteQueue()
	m.drainSiteDeletes()
}

// flushDirty saves every dirty resident entity in every site. The
// backend clears the dirty bit as part of SaveEntity, so a successful
// save needs no follow-up here.
func (m *Manager) flushDirty() {
	for _, site := range m.facade.SiteIds() {
		for _, e := range m.facade.DirtyEntities(site) {
			if err := m.facade.SaveEntity(e); err != nil {
				m.logger.Error().Err(err).Str("entity", e.Id().String()).Msg("flush entity failed")
			}
		}
	}
}

// QueueDelete adds id to the deletion-retry queue. Callers queue an id
// here after DeleteEntity returns ErrOkDelayed; pkg/dbaccess does not
// call it.
func (m *Manager) QueueDelete(id types.Id) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deleteQueue[id]; !ok {
		m.deleteQueue[id] = 0
	}
}

// drainDeleteQueue retries every queued delete, dropping an entry on
// success and bumping its backoff level on ErrEntityInUse. The backoff
// level is recorded but not exported (metrics report only the queue
// length), and every queued id is retried every tick regardless of
// level.
func (m *Manager) drainDeleteQueue() {
	m.mu.Lock()
	ids := make([]types.Id, 0, len(m.deleteQueue))
	for id := range m.deleteQueue {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		err := m.facade.RetryDeleteEntity(id)
		switch {
		case err == nil:
			m.mu.Lock()
			delete(m.deleteQueue, id)
			m.mu.Unlock()
		case errors.Is(err, types.ErrEntityInUse):
			m.mu.Lock()
			m.deleteQueue[id]++
			m.mu.Unlock()
		default:
			m.logger.Error().Err(err).Str("entity", id.String()).Msg("delete retry failed")
		}
	}

	m.mu.Lock()
	metrics.UpdateQueueDepth.Set(float64(len(m.deleteQueue)))
	m.mu.Unlock()
}

// QueueSiteDelete begins tearing a site down: its cache stops serving
// new pulls immediately, and FinishSiteDelete runs once nothing
// references what is already resident.
func (m *Manager) QueueSiteDelete(site types.SiteId) error {
	if err := m.facade.BeginSiteDelete(site); err != nil {
		return err
	}
	m.mu.Lock()
	m.sitesToDrop[site] = true
	m.mu.Unlock()
	return nil
}

func (m *Manager) drainSiteDeletes() {
	m.mu.Lock()
	sites := make([]types.SiteId, 0, len(m.sitesToDrop))
	for site := range m.sitesToDrop {
		sites = append(sites, site)
	}
	m.mu.Unlock()

	for _, site := range sites {
		ready, err := m.facade.SiteDeleteReady(site)
		if err != nil {
			m.logger.Error().Err(err).Uint64("site", uint64(site)).Msg("site delete readiness check failed")
			continue
		}
		if !ready {
			continue
		}
		if err := m.facade.FinishSiteDelete(site); err != nil {
			m.logger.Error().Err(err).Uint64("site", uint64(site)).Msg("finish site delete failed")
			continue
		}
		m.mu.Lock()
		delete(m.sitesToDrop, site)
		m.mu.Unlock()
		m.logger.Info().Uint64("site", uint64(site)).Msg("site delete complete")
	}
}

// OsTimeHasJumped forwards the server clock's jump signal. A backwards
// jump invalidates elapsed-time-based backoff bookkeeping for the
// deletion queue, so every entry resets to immediate retry.
func (m *Manager) OsTimeHasJumped(backwards bool) {
	if !backwards {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.deleteQueue {
		m.deleteQueue[id] = 0
	}
}

// --- dbaccess.RenameTracker ---

// BeginPlayerRename records a not-yet-flushed player display-name
// change so Find sees it before the backend's index does.
func (m *Manager) BeginPlayerRename(id types.Id, newName string) {
	m.renameMu.Lock()
	defer m.renameMu.Unlock()
	m.playerRenames[id] = renameEntry{site: id.Site, name: newName}
}

// CommitPlayerRename clears the pending entry once the rename has been
// flushed to the backend and is visible through its own index.
func (m *Manager) CommitPlayerRename(id types.Id) {
	m.renameMu.Lock()
	defer m.renameMu.Unlock()
	delete(m.playerRenames, id)
}

func (m *Manager) PendingPlayerName(id types.Id) (string, bool) {
	m.renameMu.RLock()
	defer m.renameMu.RUnlock()
	e, ok := m.playerRenames[id]
	return e.name, ok
}

func (m *Manager) PendingPlayerIds(site types.SiteId) []types.Id {
	m.renameMu.RLock()
	defer m.renameMu.RUnlock()
	var out []types.Id
	for id, e := range m.playerRenames {
		if e.site == site {
			out = append(out, id)
		}
	}
	return out
}

// BeginRegRename records a not-yet-flushed program-registration rename.
func (m *Manager) BeginRegRename(program types.Id, newName string) {
	m.renameMu.Lock()
	defer m.renameMu.Unlock()
	m.regRenames[program] = renameEntry{site: program.Site, name: newName}
}

func (m *Manager) CommitRegRename(program types.Id) {
	m.renameMu.Lock()
	defer m.renameMu.Unlock()
	delete(m.regRenames, program)
}

func (m *Manager) PendingRegName(program types.Id) (string, bool) {
	m.renameMu.RLock()
	defer m.renameMu.RUnlock()
	e, ok := m.regRenames[program]
	return e.name, ok
}

func (m *Manager) PendingRegIds(site types.SiteId) []types.Id {
	m.renameMu.RLock()
	defer m.renameMu.RUnlock()
	var out []types.Id
	for id, e := range m.regRenames {
		if e.site == site {
			out = append(out, id)
		}
	}
	return out
}
