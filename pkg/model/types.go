package model

// HashValue is a SHA-256 hash stored as hex string.
type HashValue string

// Actor identifies who originated an operation.
type Actor string

const (
	ActorUser  Actor = "user"
	ActorAgent Actor = "agent"
)

// Valid reports whether a is one of the known actors.
func (a Actor) Valid() bool {
	return a == ActorUser || a == ActorAgent
}

// AccessDecision is the outcome of a boundary check. It is never persisted.
type AccessDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Skipped records an item that a best-effort operation left out.
type Skipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// DirName is the per-project (and per-home) state directory.
const DirName = ".sumerian"
