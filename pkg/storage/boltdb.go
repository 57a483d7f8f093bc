package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mutgos/mutgos/pkg/entity"
	"github.com/mutgos/mutgos/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketSites = []byte("sites")

	subBucketMeta    = []byte("meta")
	subBucketEntities = []byte("entities")
	subBucketRecycled = []byte("recycled")
	subBucketProgReg  = []byte("program_reg")

	metaKeyNextId      = []byte("next_id")
	metaKeyName        = []byte("name")
	metaKeyDescription = []byte("description")
)

// BoltStore implements Store on top of a single bbolt file.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if absent) the database file at dbPath,
// matching the db.db_file config knob (spec §6.3) exactly: a file
// path, not a directory.
func NewBoltStore(dbPath string) (*BoltStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &BoltStore{db: db}
	if err := s.Init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *BoltStore) Init() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSites)
		return err
	})
}

func (s *BoltStore) Shutdown() error {
	return s.db.Close()
}

func siteBucketName(site types.SiteId) []byte {
	return []byte(fmt.Sprintf("site-%05d", site))
}

func entityIdKey(id types.EntityId) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(id))
	return b
}

func parseEntityIdKey(b []byte) types.EntityId {
	return types.EntityId(binary.BigEndian.Uint32(b))
}

func (s *BoltStore) siteBucket(tx *bolt.Tx, site types.SiteId) (*bolt.Bucket, error) {
	sites := tx.Bucket(bucketSites)
	b := sites.Bucket(siteBucketName(site))
	if b == nil {
		return nil, fmt.Errorf("%w: site %d", types.ErrBadSiteId, site)
	}
	return b, nil
}

// NewEntity allocates an EntityId (recycled pool first, then next_id),
// persists the constructed entity in the same transaction, and returns
// it.
func (s *BoltStore) NewEntity(site types.SiteId, t types.EntityType, owner types.Id, name string, construct func(id types.Id) entity.Entity) (entity.Entity, error) {
	var result entity.Entity
	err := s.db.Update(func(tx *bolt.Tx) error {
		sb, err := s.siteBucket(tx, site)
		if err != nil {
			return err
		}
		meta := sb.Bucket(subBucketMeta)
		recycled := sb.Bucket(subBucketRecycled)
		entities := sb.Bucket(subBucketEntities)

		var nextId types.EntityId
		c := recycled.Cursor()
		if k, _ := c.First(); k != nil {
			nextId = parseEntityIdKey(k)
			if err := recycled.Delete(k); err != nil {
				return err
			}
		} else {
			raw := meta.Get(metaKeyNextId)
			cur := uint32(1)
			if raw != nil {
				cur = binary.BigEndian.Uint32(raw)
			}
			nextId = types.EntityId(cur)
			next := make([]byte, 4)
			binary.BigEndian.PutUint32(next, cur+1)
			if err := meta.Put(metaKeyNextId, next); err != nil {
				return err
			}
		}

		id := types.Id{Site: site, Entity: nextId}
		e := construct(id)
		blob, err := entity.MarshalEntity(e)
		if err != nil {
			return err
		}
		if err := entities.Put(entityIdKey(nextId), blob); err != nil {
			return err
		}
		e.ClearDirty()
		result = e
		return nil
	})
	return result, err
}

func (s *BoltStore) GetEntity(id types.Id) (entity.Entity, error) {
	var e entity.Entity
	err := s.db.View(func(tx *bolt.Tx) error {
		sb, err := s.siteBucket(tx, id.Site)
		if err != nil {
			return err
		}
		blob := sb.Bucket(subBucketEntities).Get(entityIdKey(id.Entity))
		if blob == nil {
			return fmt.Errorf("%w: %s", types.ErrNotFound, id)
		}
		decoded, err := entity.UnmarshalEntity(blob)
		if err != nil {
			return err
		}
		e = decoded
		return nil
	})
	return e, err
}

func (s *BoltStore) EntityExists(id types.Id) (bool, error) {
	exists := false
	err := s.db.View(func(tx *bolt.Tx) error {
		sb, err := s.siteBucket(tx, id.Site)
		if err != nil {
			return err
		}
		exists = sb.Bucket(subBucketEntities).Get(entityIdKey(id.Entity)) != nil
		return nil
	})
	return exists, err
}

func (s *BoltStore) GetEntityType(id types.Id) (types.EntityType, error) {
	meta, err := s.GetEntityMetadata(id)
	if err != nil {
		return types.EntityTypeInvalid, err
	}
	return meta.Type, nil
}

func (s *BoltStore) GetEntityMetadata(id types.Id) (EntityMetadata, error) {
	e, err := s.GetEntity(id)
	if err != nil {
		return EntityMetadata{}, err
	}
	return EntityMetadata{Id: e.Id(), Type: e.Type(), Name: e.Name()}, nil
}

func (s *BoltStore) SaveEntity(e entity.Entity) error {
	blob, err := entity.MarshalEntity(e)
	if err != nil {
		return err
	}
	id := e.Id()
	err = s.db.Update(func(tx *bolt.Tx) error {
		sb, err := s.siteBucket(tx, id.Site)
		if err != nil {
			return err
		}
		return sb.Bucket(subBucketEntities).Put(entityIdKey(id.Entity), blob)
	})
	if err != nil {
		return err
	}
	e.ClearDirty()
	return nil
}

// DeleteEntity removes the record and pushes id into the recycled set.
// inUse is the cache's is-still-pinned verdict; Storage never consults
// the cache directly (spec §4.B keeps those concerns separate).
func (s *BoltStore) DeleteEntity(id types.Id, inUse bool) error {
	if inUse {
		return fmt.Errorf("%w: %s", types.ErrEntityInUse, id)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		sb, err := s.siteBucket(tx, id.Site)
		if err != nil {
			return err
		}
		if err := sb.Bucket(subBucketEntities).Delete(entityIdKey(id.Entity)); err != nil {
			return err
		}
		return sb.Bucket(subBucketRecycled).Put(entityIdKey(id.Entity), []byte{})
	})
}

func (s *BoltStore) Find(params FindParams) ([]types.Id, error) {
	var out []types.Id
	err := s.db.View(func(tx *bolt.Tx) error {
		sb, err := s.siteBucket(tx, params.Site)
		if err != nil {
			return err
		}
		c := sb.Bucket(subBucketEntities).Cursor()
		needle := strings.ToLower(params.Name)
		for k, v := c.First(); k != nil; k, v = c.Next() {
			e, err := entity.UnmarshalEntity(v)
			if err != nil {
				return err
			}
			if params.Type != types.EntityTypeInvalid && e.Type() != params.Type {
				continue
			}
			if params.Owner.Valid() && e.Owner() != params.Owner {
				continue
			}
			if params.Name != "" {
				name := strings.ToLower(e.Name())
				if params.Exact {
					if name != needle {
						continue
					}
				} else if !strings.Contains(name, needle) {
					continue
				}
			}
			out = append(out, e.Id())
		}
		return nil
	})
	return out, err
}

// hasContainedBy is satisfied by both containerBase (Region, Room) and
// actionBase (Command, Exit) — same method name, different backing
// field — so a single scan covers both reverse indices spec §4.B and
// §4.D describe separately.
type hasContainedBy interface {
	ContainedBy() types.Id
}

func (s *BoltStore) FindContainedBy(site types.SiteId, target types.Id) ([]types.Id, error) {
	var out []types.Id
	err := s.db.View(func(tx *bolt.Tx) error {
		sb, err := s.siteBucket(tx, site)
		if err != nil {
			return err
		}
		c := sb.Bucket(subBucketEntities).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			e, err := entity.UnmarshalEntity(v)
			if err != nil {
				return err
			}
			cb, ok := e.(hasContainedBy)
			if !ok {
				continue
			}
			if cb.ContainedBy() == target {
				out = append(out, e.Id())
			}
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) FindProgramReg(site types.SiteId, regName string) (types.Id, bool, error) {
	var id types.Id
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		sb, err := s.siteBucket(tx, site)
		if err != nil {
			return err
		}
		v := sb.Bucket(subBucketProgReg).Get([]byte(regName))
		if v == nil {
			return nil
		}
		found = true
		id = types.Id{Site: site, Entity: parseEntityIdKey(v)}
		return nil
	})
	return id, found, err
}

func (s *BoltStore) SetProgramReg(site types.SiteId, regName string, program types.Id) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		sb, err := s.siteBucket(tx, site)
		if err != nil {
			return err
		}
		return sb.Bucket(subBucketProgReg).Put([]byte(regName), entityIdKey(program.Entity))
	})
}

func (s *BoltStore) DeleteProgramReg(site types.SiteId, regName string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		sb, err := s.siteBucket(tx, site)
		if err != nil {
			return err
		}
		return sb.Bucket(subBucketProgReg).Delete([]byte(regName))
	})
}

func (s *BoltStore) NewSite(name, description string) (types.SiteId, error) {
	var id types.SiteId
	err := s.db.Update(func(tx *bolt.Tx) error {
		sites := tx.Bucket(bucketSites)
		nextId, err := sites.NextSequence()
		if err != nil {
			return err
		}
		id = types.SiteId(nextId)
		sb, err := sites.CreateBucket(siteBucketName(id))
		if err != nil {
			return err
		}
		meta, err := sb.CreateBucketIfNotExists(subBucketMeta)
		if err != nil {
			return err
		}
		if _, err := sb.CreateBucketIfNotExists(subBucketEntities); err != nil {
			return err
		}
		if _, err := sb.CreateBucketIfNotExists(subBucketRecycled); err != nil {
			return err
		}
		if _, err := sb.CreateBucketIfNotExists(subBucketProgReg); err != nil {
			return err
		}
		if err := meta.Put(metaKeyName, []byte(name)); err != nil {
			return err
		}
		return meta.Put(metaKeyDescription, []byte(description))
	})
	return id, err
}

func (s *BoltStore) DeleteSite(site types.SiteId) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSites).DeleteBucket(siteBucketName(site))
	})
}

func (s *BoltStore) GetSiteIds() ([]types.SiteId, error) {
	var ids []types.SiteId
	err := s.db.View(func(tx *bolt.Tx) error {
		sites := tx.Bucket(bucketSites)
		return sites.ForEach(func(name, v []byte) error {
			if v != nil {
				return nil // not a nested bucket
			}
			var n int
			fmt.Sscanf(string(name), "site-%05d", &n)
			ids = append(ids, types.SiteId(n))
			return nil
		})
	})
	return ids, err
}

func (s *BoltStore) GetSiteName(site types.SiteId) (string, error) {
	return s.siteMetaString(site, metaKeyName)
}

func (s *BoltStore) GetSiteDescription(site types.SiteId) (string, error) {
	return s.siteMetaString(site, metaKeyDescription)
}

func (s *BoltStore) siteMetaString(site types.SiteId, key []byte) (string, error) {
	var out string
	err := s.db.View(func(tx *bolt.Tx) error {
		sb, err := s.siteBucket(tx, site)
		if err != nil {
			return err
		}
		out = string(sb.Bucket(subBucketMeta).Get(key))
		return nil
	})
	return out, err
}

func (s *BoltStore) SetSiteName(site types.SiteId, name string) error {
	return s.setSiteMetaString(site, metaKeyName, name)
}

func (s *BoltStore) SetSiteDescription(site types.SiteId, description string) error {
	return s.setSiteMetaString(site, metaKeyDescription, description)
}

func (s *BoltStore) setSiteMetaString(site types.SiteId, key []byte, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		sb, err := s.siteBucket(tx, site)
		if err != nil {
			return err
		}
		return sb.Bucket(subBucketMeta).Put(key, []byte(value))
	})
}
