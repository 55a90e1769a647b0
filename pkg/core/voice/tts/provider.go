// Package tts provides text-to-speech functionality.
package tts

import (
	"context"
)

// Provider is the interface for text-to-speech services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Synthesize converts text to audio using the given voice handle.
	Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error)
}

// SynthesizeOptions configures synthesis.
type SynthesizeOptions struct {
	// Voice is the opaque voice handle in the provider's voice space.
	Voice string

	Language   string
	Speed      float64 // Speed multiplier (0.6-1.5)
	Format     string  // Output format: "wav", "mp3", or "pcm"
	SampleRate int
}

// Synthesis is the result of synthesis.
type Synthesis struct {
	Audio  []byte // Raw audio bytes
	Format string // Audio format of the bytes
}
