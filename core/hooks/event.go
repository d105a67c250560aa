package hooks

// Hook names fired by the built-in modules.
const (
	AfterSave   = "afterSave"
	AfterDelete = "afterDelete"
)

// Event is the single argument built-in modules pass when they fire a hook.
// Callbacks must tolerate other argument shapes, since hooks can also be
// fired from the admin API with arbitrary JSON.
type Event struct {
	Module   string `json:"module"`
	RecordID string `json:"recordId"`
	Record   any    `json:"record,omitempty"`
}

// EventFrom returns the Event in args, if the first argument is one.
func EventFrom(args []any) (Event, bool) {
	if len(args) == 0 {
		return Event{}, false
	}
	switch e := args[0].(type) {
	case Event:
		return e, true
	case *Event:
		if e != nil {
			return *e, true
		}
	}
	return Event{}, false
}
