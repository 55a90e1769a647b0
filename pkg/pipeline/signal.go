package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/echolabs-ai/echotwin/pkg/core/types"
	"github.com/echolabs-ai/echotwin/pkg/voices"
)

// SignalOutcome classifies a voice-switch directive found in a reply.
type SignalOutcome string

const (
	// OutcomeNone means no directive was found; the raw text is the reply.
	OutcomeNone SignalOutcome = "none"
	// OutcomeSwitch means exactly one persona matched and it differs from
	// the active one.
	OutcomeSwitch SignalOutcome = "switch"
	// OutcomeNoMatch means no persona matched the requested name.
	OutcomeNoMatch SignalOutcome = "no_match"
	// OutcomeAmbiguous means two or more personas matched.
	OutcomeAmbiguous SignalOutcome = "ambiguous"
	// OutcomeAlreadyActive means the single match is already speaking.
	OutcomeAlreadyActive SignalOutcome = "already_active"
)

// SignalResolution is the result of interpreting a reply for a switch
// directive and resolving it against the registry.
type SignalResolution struct {
	Outcome   SignalOutcome
	ReplyText string

	// Target is the persona to switch to. Set only for OutcomeSwitch.
	Target *types.Voice

	// Requested is the raw persona name carried by the directive.
	Requested string
}

// switchDirective is the single recognized field of the embedded object.
const switchDirectiveField = "switchVoice"

type extractedSignal struct {
	name  string
	reply string
}

// extractSwitchSignal locates a switch directive in the reply text. The
// strategies mirror the shapes a model actually emits, tried in order:
//
//  1. a fenced block at the very start holding a single-line object,
//  2. a bare object occupying the first line,
//  3. an object embedded in any line, found by scanning.
//
// The consumed fragment is stripped from the returned reply text.
func extractSwitchSignal(text string) (extractedSignal, bool) {
	if sig, ok := extractFromFence(text); ok {
		return sig, true
	}
	if sig, ok := extractFromFirstLine(text); ok {
		return sig, true
	}
	if sig, ok := extractFromAnyLine(text); ok {
		return sig, true
	}
	return extractedSignal{}, false
}

func extractFromFence(text string) (extractedSignal, bool) {
	if !strings.HasPrefix(text, "```") {
		return extractedSignal{}, false
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return extractedSignal{}, false
	}
	closing := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "```" {
			closing = i
			break
		}
	}
	// The fenced block must hold exactly one content line.
	if closing != 2 {
		return extractedSignal{}, false
	}
	name, ok := parseSwitchObject(strings.TrimSpace(lines[1]))
	if !ok {
		return extractedSignal{}, false
	}
	reply := strings.TrimSpace(strings.Join(lines[closing+1:], "\n"))
	return extractedSignal{name: name, reply: reply}, true
}

func extractFromFirstLine(text string) (extractedSignal, bool) {
	lines := strings.Split(text, "\n")
	first := strings.TrimSpace(lines[0])
	if !strings.HasPrefix(first, "{") || !strings.HasSuffix(first, "}") {
		return extractedSignal{}, false
	}
	name, ok := parseSwitchObject(first)
	if !ok {
		return extractedSignal{}, false
	}
	reply := strings.TrimSpace(strings.Join(lines[1:], "\n"))
	return extractedSignal{name: name, reply: reply}, true
}

var embeddedObjectRe = regexp.MustCompile(`\{[^{}]*\}`)

func extractFromAnyLine(text string) (extractedSignal, bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		for _, fragment := range embeddedObjectRe.FindAllString(line, -1) {
			name, ok := parseSwitchObject(fragment)
			if !ok {
				continue
			}

			var reply string
			if strings.TrimSpace(line) == fragment {
				// The object was the whole line; drop it and join the rest.
				rest := make([]string, 0, len(lines)-1)
				rest = append(rest, lines[:i]...)
				rest = append(rest, lines[i+1:]...)
				reply = strings.TrimSpace(strings.Join(rest, "\n"))
			} else {
				stripped := strings.Replace(line, fragment, "", 1)
				rest := make([]string, len(lines))
				copy(rest, lines)
				rest[i] = stripped
				reply = strings.TrimSpace(strings.Join(rest, "\n"))
			}
			return extractedSignal{name: name, reply: reply}, true
		}
	}
	return extractedSignal{}, false
}

// parseSwitchObject accepts only an object carrying exactly the one
// recognized field with a non-empty string value.
func parseSwitchObject(s string) (string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return "", false
	}
	if len(obj) != 1 {
		return "", false
	}
	raw, ok := obj[switchDirectiveField]
	if !ok {
		return "", false
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return "", false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	return name, true
}

// resolveSignal interprets the reply for a switch directive and resolves it
// against the registry, given the currently active persona.
func resolveSignal(ctx context.Context, reg *voices.Registry, active *types.Voice, reply string) (*SignalResolution, error) {
	sig, found := extractSwitchSignal(reply)
	if !found {
		return &SignalResolution{Outcome: OutcomeNone, ReplyText: reply}, nil
	}

	matches, err := reg.Match(ctx, sig.name)
	if err != nil {
		return nil, err
	}

	switch {
	case len(matches) == 0:
		return &SignalResolution{
			Outcome:   OutcomeNoMatch,
			ReplyText: fmt.Sprintf("I couldn't find a voice named %q to switch to.", sig.name),
			Requested: sig.name,
		}, nil
	case len(matches) > 1:
		names := make([]string, len(matches))
		for i, v := range matches {
			names[i] = v.Name
		}
		return &SignalResolution{
			Outcome:   OutcomeAmbiguous,
			ReplyText: fmt.Sprintf("Which voice did you mean: %s?", strings.Join(names, ", ")),
			Requested: sig.name,
		}, nil
	case matches[0].ID == active.ID:
		return &SignalResolution{
			Outcome:   OutcomeAlreadyActive,
			ReplyText: fmt.Sprintf("I'm already speaking as %s.", matches[0].Name),
			Requested: sig.name,
		}, nil
	default:
		return &SignalResolution{
			Outcome:   OutcomeSwitch,
			ReplyText: sig.reply,
			Target:    matches[0],
			Requested: sig.name,
		}, nil
	}
}
