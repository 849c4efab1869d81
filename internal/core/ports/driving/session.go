package driving

// SessionService tracks which conversation sessions are live.
// The UI layer mints session ids and calls Register/Unregister as browser
// connections come and go; the core only needs a stable string id.
type SessionService interface {
	// Register marks a session id as active.
	Register(id string)

	// Unregister marks a session id as inactive and triggers an
	// immediate cleanup sweep.
	Unregister(id string)

	// ActiveIDs returns a snapshot of the active session ids.
	ActiveIDs() map[string]struct{}
}
