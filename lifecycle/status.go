package lifecycle

// ServerStatus is the lifecycle state of the language server process.
// Any value may follow any other; the process driver decides what is legal.
type ServerStatus int

const (
	StatusDisabled ServerStatus = iota
	StatusStarting
	StatusRunning
	StatusStopped
	StatusErrored
)

// String returns a human-readable status name.
func (s ServerStatus) String() string {
	switch s {
	case StatusDisabled:
		return "disabled"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the declared statuses.
func (s ServerStatus) Valid() bool {
	return s >= StatusDisabled && s <= StatusErrored
}
