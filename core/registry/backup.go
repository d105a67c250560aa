package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/artpar/carehub/core/module"
)

// Snapshotter is implemented by instances that control their own backup form.
type Snapshotter interface {
	Snapshot() (json.RawMessage, error)
}

// Restorer is implemented by instances that can load a snapshot in place.
type Restorer interface {
	Restore(data json.RawMessage) error
}

// RawInstance holds a restored instance snapshot for a module that had no
// live instance able to absorb it. Exporting it yields the same bytes.
type RawInstance json.RawMessage

// Snapshot returns a copy of the raw snapshot.
func (ri RawInstance) Snapshot() (json.RawMessage, error) {
	return json.RawMessage(bytes.Clone(ri)), nil
}

// Backup is the interchange form of a module: its descriptor, a snapshot of
// its instance and the RFC 3339 time the backup was taken.
type Backup struct {
	Descriptor module.Descriptor `json:"descriptor"`
	Instance   json.RawMessage   `json:"instance,omitempty"`
	Timestamp  string            `json:"timestamp"`
}

// HasInstance reports whether the backup carries an instance snapshot.
func (b Backup) HasInstance() bool {
	trimmed := bytes.TrimSpace(b.Instance)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// ExportData snapshots a registered module.
func (r *Registry) ExportData(id string) (Backup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.modules[id]
	if !ok {
		return Backup{}, fmt.Errorf("export: %w: %s", ErrNotRegistered, id)
	}

	b := Backup{
		Descriptor: d.Clone(),
		Timestamp:  r.now().UTC().Format(time.RFC3339),
	}

	if inst, ok := r.instances[id]; ok {
		data, err := snapshotInstance(inst)
		if err != nil {
			return Backup{}, fmt.Errorf("export %s: snapshot instance: %w", id, err)
		}
		b.Instance = data
	}

	r.logger.Info().
		Str("module", id).
		Bool("instance", b.HasInstance()).
		Msg("module exported")
	return b, nil
}

func snapshotInstance(inst Instance) (json.RawMessage, error) {
	if s, ok := inst.(Snapshotter); ok {
		return s.Snapshot()
	}
	return json.Marshal(inst)
}

// RestoreData overwrites a module's descriptor and instance from a backup.
//
// The descriptor is restored under id regardless of the id stored in the
// backup, and is checked for conflicts against the other registered modules
// exactly as Register does. A backup with an empty descriptor restores only
// the instance, which requires the module to be registered. The instance is
// restored in place when the live instance implements Restorer; otherwise the
// snapshot is kept as a RawInstance. Nothing changes if any step fails.
func (r *Registry) RestoreData(id string, b Backup) error {
	restoreDescriptor := b.Descriptor.ID != ""

	r.mu.Lock()

	var d module.Descriptor
	if restoreDescriptor {
		d = b.Descriptor.Clone()
		d.ID = id
		if err := module.Validate(d); err != nil {
			r.mu.Unlock()
			return fmt.Errorf("restore: %w: %w", ErrInvalidModule, err)
		}
		if conflicts := DetectConflicts(d, r.othersLocked(id)); len(conflicts) > 0 {
			r.mu.Unlock()
			if r.metrics != nil {
				r.metrics.ConflictDetected(id, len(conflicts))
			}
			return &ConflictError{Module: id, Conflicts: conflicts}
		}
	} else if _, ok := r.modules[id]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("restore: %w: %s", ErrNotRegistered, id)
	}

	if b.HasInstance() {
		if restorer, ok := r.instances[id].(Restorer); ok {
			if err := restorer.Restore(b.Instance); err != nil {
				r.mu.Unlock()
				return fmt.Errorf("restore %s: instance: %w", id, err)
			}
		} else {
			r.instances[id] = RawInstance(bytes.Clone(b.Instance))
		}
	}

	if restoreDescriptor {
		r.modules[id] = d
		r.syncIsolationLocked(d)
	}
	stats := r.statsLocked()
	r.mu.Unlock()

	r.logger.Info().
		Str("module", id).
		Str("backup_timestamp", b.Timestamp).
		Bool("descriptor", restoreDescriptor).
		Bool("instance", b.HasInstance()).
		Msg("module restored")

	if r.metrics != nil {
		r.metrics.StatsChanged(stats)
	}
	return nil
}
