package answer

import (
	"errors"
	"fmt"
)

// Intent is a closed-set classification of what the user is asking for.
type Intent string

const (
	IntentGeneralInfo  Intent = "general_info"
	IntentEligibility  Intent = "eligibility"
	IntentProcessSteps Intent = "process_steps"
	IntentDefinitions  Intent = "definitions"
	IntentUpdates      Intent = "updates"
)

// ErrBadIntent marks a classification the model answered outside the
// closed set. This is fatal for the request; there is no silent default.
var ErrBadIntent = errors.New("model returned non-conforming intent")

var validIntents = map[Intent]bool{
	IntentGeneralInfo:  true,
	IntentEligibility:  true,
	IntentProcessSteps: true,
	IntentDefinitions:  true,
	IntentUpdates:      true,
}

// ParseIntent validates a raw intent label against the closed set.
func ParseIntent(raw string) (Intent, error) {
	intent := Intent(raw)
	if !validIntents[intent] {
		return "", fmt.Errorf("%w: %q", ErrBadIntent, raw)
	}
	return intent, nil
}
