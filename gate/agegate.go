package gate

import (
	"time"

	"vitrina/session"
)

// AgeGate is the one-way adult confirmation flag. Once confirmed it is never
// reset except by wiping the whole store.
type AgeGate struct {
	store session.Store
	now   func() time.Time
}

// NewAgeGate wires the flag onto the shared client store.
func NewAgeGate(store session.Store) *AgeGate {
	return &AgeGate{store: store, now: time.Now}
}

// Verified reports whether the user has confirmed being of age.
func (g *AgeGate) Verified() bool {
	v, ok := g.store.Get(session.KeyAgeVerified)
	return ok && v == "true"
}

// Confirm records the confirmation and its timestamp.
func (g *AgeGate) Confirm() error {
	if err := g.store.Set(session.KeyAgeVerified, "true"); err != nil {
		return err
	}
	return g.store.Set(session.KeyAgeDate, g.now().UTC().Format(time.RFC3339))
}
