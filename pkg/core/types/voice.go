package types

import "time"

// Voice is a cloned persona: a display name, the system instructions that
// shape its replies, and the synthesis provider's voice handle. Voices are
// created by the voice-management flow and are read-only to the turn pipeline.
type Voice struct {
	ID string `json:"id"`

	// Name is the display name users refer to when switching personas.
	Name string `json:"name"`

	// Instructions is the persona prompt sent as system context.
	Instructions string `json:"instructions"`

	// SynthesisHandle is the opaque voice reference in the synthesis
	// provider's voice space.
	SynthesisHandle string `json:"synthesis_handle"`

	CreatedAt time.Time `json:"created_at"`
}
