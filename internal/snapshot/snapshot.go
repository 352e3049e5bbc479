// Package snapshot archives described schemas (tables, views and routines)
// as JSON documents on S3-compatible storage.
//
//	store, err := minio.New(ctx, cfg.Snapshot)
//	if err != nil { ... }
//	arch := snapshot.New(store, eng, cfg.Snapshot.Prefix, log)
//	key, err := arch.Save(ctx, "HR")
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/crc32"
	"github.com/samber/lo"

	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/koustreak/datri-oracle/internal/logger"
	"github.com/koustreak/datri-oracle/internal/oracle"
	"github.com/koustreak/datri-oracle/internal/schema"
)

const keyTimeLayout = "20060102T150405Z"

// Snapshot is one schema captured at a point in time.
type Snapshot struct {
	Schema   string                  `json:"schema"`
	TakenAt  time.Time               `json:"taken_at"`
	Tables   []*schema.TableSchema   `json:"tables"`
	Routines []*schema.RoutineSchema `json:"routines"`
	// Checksum is the CRC-32 of the tables and routines documents.
	Checksum string `json:"checksum"`
}

// Archive captures snapshots from the engine and stores them.
type Archive struct {
	store  Store
	eng    *oracle.Engine
	prefix string
	log    *logger.Logger
	now    func() time.Time
}

// New returns an archive writing under prefix in store.
func New(store Store, eng *oracle.Engine, prefix string, log *logger.Logger) *Archive {
	return &Archive{
		store:  store,
		eng:    eng,
		prefix: strings.Trim(prefix, "/"),
		log:    log.Component("snapshot"),
		now:    time.Now,
	}
}

// Capture describes every table, view and routine of schemaName (the
// default schema when empty).
func (a *Archive) Capture(ctx context.Context, schemaName string) (*Snapshot, error) {
	if schemaName == "" {
		def, err := a.eng.DefaultSchema(ctx)
		if err != nil {
			return nil, err
		}
		schemaName = def
	}

	tables, err := a.eng.ListTables(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	views, err := a.eng.ListViews(ctx, schemaName)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Schema: schemaName, TakenAt: a.now().UTC()}
	for _, t := range append(tables, views...) {
		described, err := a.eng.DescribeTable(ctx, t.InternalName)
		if err != nil {
			return nil, err
		}
		snap.Tables = append(snap.Tables, described)
	}

	for _, kind := range []schema.RoutineKind{schema.KindProcedure, schema.KindFunction} {
		list, err := a.eng.ListRoutines(ctx, kind, schemaName)
		if err != nil {
			return nil, err
		}
		for _, r := range list {
			if err := a.eng.LoadParameters(ctx, r); err != nil {
				return nil, errs.Context(err, fmt.Sprintf("describing routine %q", r.InternalName))
			}
			snap.Routines = append(snap.Routines, r)
		}
	}

	sum, err := checksum(snap)
	if err != nil {
		return nil, err
	}
	snap.Checksum = sum
	return snap, nil
}

// Save captures schemaName and writes it; the object key is returned.
func (a *Archive) Save(ctx context.Context, schemaName string) (string, error) {
	snap, err := a.Capture(ctx, schemaName)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", errs.Wrap(errs.ErrKindUnknown, "encoding snapshot", err)
	}

	key := a.key(snap.Schema, snap.TakenAt.Format(keyTimeLayout)+".json")
	if err := a.store.Put(ctx, key, data, "application/json"); err != nil {
		return "", err
	}
	a.log.InfoWith("snapshot saved", map[string]any{
		"key":      key,
		"tables":   len(snap.Tables),
		"routines": len(snap.Routines),
	})
	return key, nil
}

// List returns the stored snapshots of schemaName, oldest first.
func (a *Archive) List(ctx context.Context, schemaName string) ([]ObjectInfo, error) {
	objs, err := a.store.List(ctx, a.key(schemaName, ""))
	if err != nil {
		return nil, err
	}
	objs = lo.Filter(objs, func(o ObjectInfo, _ int) bool { return strings.HasSuffix(o.Key, ".json") })
	// timestamped names sort chronologically
	sort.Slice(objs, func(i, j int) bool { return objs[i].Key < objs[j].Key })
	return objs, nil
}

// Load reads the snapshot at key and verifies its checksum.
func (a *Archive) Load(ctx context.Context, key string) (*Snapshot, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("decoding snapshot %q", key), err)
	}
	sum, err := checksum(&snap)
	if err != nil {
		return nil, err
	}
	if snap.Checksum != "" && sum != snap.Checksum {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "snapshot %q is corrupt: checksum %s, want %s", key, sum, snap.Checksum)
	}
	return &snap, nil
}

// Latest loads the most recent snapshot of schemaName.
func (a *Archive) Latest(ctx context.Context, schemaName string) (*Snapshot, error) {
	objs, err := a.List(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "no snapshot of schema %q", schemaName)
	}
	return a.Load(ctx, objs[len(objs)-1].Key)
}

func (a *Archive) key(schemaName, name string) string {
	k := path.Join(a.prefix, strings.ToUpper(schemaName)) + "/" + name
	return strings.TrimPrefix(k, "/")
}

func checksum(s *Snapshot) (string, error) {
	body, err := json.Marshal(struct {
		Tables   []*schema.TableSchema   `json:"tables"`
		Routines []*schema.RoutineSchema `json:"routines"`
	}{s.Tables, s.Routines})
	if err != nil {
		return "", errs.Wrap(errs.ErrKindUnknown, "encoding snapshot", err)
	}
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE(body)), nil
}
