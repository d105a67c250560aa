// Package roster is the built-in shift roster module. It depends on people.
package roster

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var (
	// ErrInvalidShift is returned for shifts that fail validation.
	ErrInvalidShift = errors.New("invalid shift")

	// ErrUnknownPerson is returned when a shift names someone not in the directory.
	ErrUnknownPerson = errors.New("unknown person")

	// ErrOverlap is returned when a shift overlaps another for the same person.
	ErrOverlap = errors.New("shift overlaps an existing shift")

	// ErrNotFound is returned when a shift does not exist.
	ErrNotFound = errors.New("shift not found")
)

// Staff answers whether a person exists. Implemented by *people.Directory.
type Staff interface {
	Exists(id string) bool
}

// Shift is one person's assignment on one day.
type Shift struct {
	ID       string `json:"id"`
	PersonID string `json:"personId"`
	Date     string `json:"date"`  // YYYY-MM-DD
	Start    string `json:"start"` // HH:MM
	End      string `json:"end"`   // HH:MM, before Start for overnight shifts
	Role     string `json:"role,omitempty"`
}

// span returns the shift's start and end instants.
func (s Shift) span() (time.Time, time.Time, error) {
	day, err := time.Parse(dateLayout, s.Date)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("date %q: %w", s.Date, err)
	}
	start, err := time.Parse(timeLayout, s.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start %q: %w", s.Start, err)
	}
	end, err := time.Parse(timeLayout, s.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end %q: %w", s.End, err)
	}
	if start.Equal(end) {
		return time.Time{}, time.Time{}, errors.New("start and end are equal")
	}

	from := day.Add(time.Duration(start.Hour())*time.Hour + time.Duration(start.Minute())*time.Minute)
	to := day.Add(time.Duration(end.Hour())*time.Hour + time.Duration(end.Minute())*time.Minute)
	if !to.After(from) {
		to = to.Add(24 * time.Hour)
	}
	return from, to, nil
}

// Duration returns the length of the shift, or zero if it is malformed.
func (s Shift) Duration() time.Duration {
	from, to, err := s.span()
	if err != nil {
		return 0
	}
	return to.Sub(from)
}

// Roster is the live instance of the roster module.
type Roster struct {
	mu     sync.RWMutex
	shifts map[string]Shift
	staff  Staff
}

// NewRoster creates an empty roster. staff may be nil, in which case
// person ids are not checked.
func NewRoster(staff Staff) *Roster {
	return &Roster{
		shifts: make(map[string]Shift),
		staff:  staff,
	}
}

// SetStaff replaces the directory used to check person ids.
func (r *Roster) SetStaff(staff Staff) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staff = staff
}

// Assign adds a shift for a person.
func (r *Roster) Assign(personID, date, start, end, role string) (Shift, error) {
	s := Shift{
		ID:       uuid.NewString(),
		PersonID: personID,
		Date:     date,
		Start:    start,
		End:      end,
		Role:     role,
	}
	if personID == "" {
		return Shift{}, fmt.Errorf("%w: person is required", ErrInvalidShift)
	}
	from, to, err := s.span()
	if err != nil {
		return Shift{}, fmt.Errorf("%w: %v", ErrInvalidShift, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.staff != nil && !r.staff.Exists(personID) {
		return Shift{}, fmt.Errorf("%w: %s", ErrUnknownPerson, personID)
	}

	for _, other := range r.shifts {
		if other.PersonID != personID {
			continue
		}
		oFrom, oTo, err := other.span()
		if err != nil {
			continue
		}
		if from.Before(oTo) && oFrom.Before(to) {
			return Shift{}, fmt.Errorf("%w: %s on %s %s-%s", ErrOverlap, other.ID, other.Date, other.Start, other.End)
		}
	}

	r.shifts[s.ID] = s
	return s, nil
}

// Cancel removes a shift.
func (r *Roster) Cancel(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.shifts[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.shifts, id)
	return nil
}

// ForPerson returns a person's shifts in time order.
func (r *Roster) ForPerson(personID string) []Shift {
	return r.filter(func(s Shift) bool { return s.PersonID == personID })
}

// OnDate returns the shifts on a date in time order.
func (r *Roster) OnDate(date string) []Shift {
	return r.filter(func(s Shift) bool { return s.Date == date })
}

// All returns every shift in time order.
func (r *Roster) All() []Shift {
	return r.filter(func(Shift) bool { return true })
}

func (r *Roster) filter(keep func(Shift) bool) []Shift {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Shift, 0)
	for _, s := range r.shifts {
		if keep(s) {
			out = append(out, s)
		}
	}
	sortShifts(out)
	return out
}

// DropPerson removes every shift for a person dated on or after from.
// An empty from removes all of them. It returns the number removed.
func (r *Roster) DropPerson(personID, from string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, s := range r.shifts {
		if s.PersonID == personID && s.Date >= from {
			delete(r.shifts, id)
			n++
		}
	}
	return n
}

// Hours returns the total rostered hours per person.
func (r *Roster) Hours() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hours := make(map[string]float64)
	for _, s := range r.shifts {
		hours[s.PersonID] += s.Duration().Hours()
	}
	return hours
}

func sortShifts(shifts []Shift) {
	sort.Slice(shifts, func(i, j int) bool {
		a, b := shifts[i], shifts[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.ID < b.ID
	})
}

type snapshot struct {
	Shifts []Shift `json:"shifts"`
}

// Snapshot implements registry.Snapshotter.
func (r *Roster) Snapshot() (json.RawMessage, error) {
	return json.Marshal(snapshot{Shifts: r.All()})
}

// Restore implements registry.Restorer. Every shift must be well formed.
func (r *Roster) Restore(data json.RawMessage) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode roster snapshot: %w", err)
	}

	shifts := make(map[string]Shift, len(s.Shifts))
	for _, shift := range s.Shifts {
		if shift.ID == "" {
			return fmt.Errorf("%w: snapshot entry without id", ErrInvalidShift)
		}
		if _, _, err := shift.span(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidShift, shift.ID, err)
		}
		shifts[shift.ID] = shift
	}

	r.mu.Lock()
	r.shifts = shifts
	r.mu.Unlock()
	return nil
}
