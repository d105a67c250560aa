// Package people is the built-in staff directory module.
package people

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/artpar/carehub/core/hooks"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a person is not in the directory.
	ErrNotFound = errors.New("person not found")

	// ErrInvalidPerson is returned for people that fail validation.
	ErrInvalidPerson = errors.New("invalid person")
)

// Person is a member of staff.
type Person struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Email     string    `json:"email,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier fires a hook for a directory change.
type Notifier func(ctx context.Context, hook string, e hooks.Event)

// Directory is the live instance of the people module.
type Directory struct {
	mu     sync.RWMutex
	people map[string]Person
	roles  map[string]bool
	now    func() time.Time
	notify Notifier
}

// NewDirectory creates an empty directory accepting the given roles.
// An empty role list accepts any role.
func NewDirectory(roles []string) *Directory {
	d := &Directory{
		people: make(map[string]Person),
		roles:  make(map[string]bool, len(roles)),
		now:    time.Now,
	}
	for _, r := range roles {
		d.roles[r] = true
	}
	return d
}

// SetNotifier sets the function used to announce changes. nil disables it.
func (d *Directory) SetNotifier(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notify = n
}

// Add creates an active person.
func (d *Directory) Add(ctx context.Context, name, role, email string) (Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Person{}, fmt.Errorf("%w: name is required", ErrInvalidPerson)
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return Person{}, fmt.Errorf("%w: email %q: %v", ErrInvalidPerson, email, err)
		}
	}

	d.mu.Lock()
	if len(d.roles) > 0 && !d.roles[role] {
		d.mu.Unlock()
		return Person{}, fmt.Errorf("%w: unknown role %q", ErrInvalidPerson, role)
	}
	p := Person{
		ID:        uuid.NewString(),
		Name:      name,
		Role:      role,
		Email:     email,
		Active:    true,
		CreatedAt: d.now().UTC(),
	}
	d.people[p.ID] = p
	notify := d.notify
	d.mu.Unlock()

	if notify != nil {
		notify(ctx, hooks.AfterSave, hooks.Event{Module: ModuleID, RecordID: p.ID, Record: p})
	}
	return p, nil
}

// Get returns a person by id.
func (d *Directory) Get(id string) (Person, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.people[id]
	return p, ok
}

// Exists reports whether id is in the directory.
func (d *Directory) Exists(id string) bool {
	_, ok := d.Get(id)
	return ok
}

// List returns everyone, sorted by name then id.
func (d *Directory) List() []Person {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Person, 0, len(d.people))
	for _, p := range d.people {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SetActive changes whether a person is active.
func (d *Directory) SetActive(ctx context.Context, id string, active bool) (Person, error) {
	d.mu.Lock()
	p, ok := d.people[id]
	if !ok {
		d.mu.Unlock()
		return Person{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	p.Active = active
	d.people[id] = p
	notify := d.notify
	d.mu.Unlock()

	if notify != nil {
		notify(ctx, hooks.AfterSave, hooks.Event{Module: ModuleID, RecordID: id, Record: p})
	}
	return p, nil
}

// Remove deletes a person. It reports whether the person existed.
func (d *Directory) Remove(ctx context.Context, id string) bool {
	d.mu.Lock()
	p, ok := d.people[id]
	delete(d.people, id)
	notify := d.notify
	d.mu.Unlock()

	if ok && notify != nil {
		notify(ctx, hooks.AfterDelete, hooks.Event{Module: ModuleID, RecordID: id, Record: p})
	}
	return ok
}

// Count returns the number of people.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.people)
}

type snapshot struct {
	People []Person `json:"people"`
}

// Snapshot implements registry.Snapshotter.
func (d *Directory) Snapshot() (json.RawMessage, error) {
	return json.Marshal(snapshot{People: d.List()})
}

// Restore implements registry.Restorer. The directory is replaced only when
// the whole snapshot decodes.
func (d *Directory) Restore(data json.RawMessage) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode people snapshot: %w", err)
	}

	people := make(map[string]Person, len(s.People))
	for _, p := range s.People {
		if p.ID == "" {
			return fmt.Errorf("%w: snapshot entry without id", ErrInvalidPerson)
		}
		people[p.ID] = p
	}

	d.mu.Lock()
	d.people = people
	d.mu.Unlock()
	return nil
}
