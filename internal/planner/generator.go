// Package planner turns a destination and duration into a day-by-day
// itinerary using the Gemini generative service. The model call and JSON
// parse are retried on failure; schema validation of the parsed result is
// not, because a response that parses but violates the shape is rejected
// outright rather than regenerated.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/itinera-app/backend/internal/domain"
	"github.com/itinera-app/backend/internal/retry"
)

// temperature is fixed for every generation request.
const temperature float32 = 0.7

// textModel is the single-turn completion surface the generator needs.
// The concrete Gemini implementation lives in gemini.go; tests substitute
// a fake to exercise parsing, validation, and the retry schedule.
type textModel interface {
	GenerateText(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Generator produces itineraries. Safe for concurrent use.
type Generator struct {
	model  textModel
	policy retry.Policy
}

// NewGenerator constructs a Generator backed by the Gemini API.
func NewGenerator(apiKey, model string) *Generator {
	return &Generator{
		model:  newGeminiModel(apiKey, model),
		policy: retry.New(3, time.Second, 2),
	}
}

// Generate calls the model, parses its output, and validates it against the
// required Day shape. Transport and parse failures consume the retry budget;
// the error from the final attempt is returned once it is exhausted.
func (g *Generator) Generate(ctx context.Context, destination string, durationDays int) ([]domain.Day, error) {
	prompt := buildPrompt(destination, durationDays)

	parsed, err := retry.Do(ctx, g.policy, func() ([]any, error) {
		text, err := g.model.GenerateText(ctx, prompt, temperature)
		if err != nil {
			return nil, err
		}
		return parseItinerary(text)
	})
	if err != nil {
		return nil, err
	}

	return validateItinerary(parsed)
}

// buildPrompt is deterministic: the same destination and duration always
// produce the same instruction text.
func buildPrompt(destination string, durationDays int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a travel planner. Create a %d-day itinerary for %s.\n\n", durationDays, destination)
	b.WriteString("Respond with a JSON array and nothing else. Each element must be an object with exactly these fields:\n")
	b.WriteString(`- "day": integer day number starting at 1` + "\n")
	b.WriteString(`- "theme": string, the theme of the day` + "\n")
	b.WriteString(`- "activities": array of objects, each with exactly the string fields "time", "description", and "location"` + "\n\n")
	b.WriteString("Do not wrap the output in markdown, code fences, or any explanatory text. Output only the JSON array.")
	return b.String()
}

// parseItinerary extracts the top-level itinerary array from the model's
// textual response. Malformed JSON or a top-level value that is not an
// array is a format error, eligible for retry.
func parseItinerary(text string) ([]any, error) {
	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadResponse, err)
	}
	arr, ok := parsed.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: top-level JSON value is %T, want array", domain.ErrBadResponse, parsed)
	}
	return arr, nil
}

// validateItinerary checks the parsed array strictly against the Day shape.
// Any deviation fails the whole generation; partially valid output is never
// accepted.
func validateItinerary(arr []any) ([]domain.Day, error) {
	if len(arr) == 0 {
		return nil, fmt.Errorf("%w: itinerary is empty", domain.ErrValidation)
	}

	days := make([]domain.Day, 0, len(arr))
	for i, elem := range arr {
		obj, ok := elem.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: day %d is %T, want object", domain.ErrValidation, i, elem)
		}

		dayNum, err := intField(obj, "day", i)
		if err != nil {
			return nil, err
		}
		if dayNum < 1 {
			return nil, fmt.Errorf("%w: day %d has non-positive day number %d", domain.ErrValidation, i, dayNum)
		}

		theme, ok := obj["theme"].(string)
		if !ok {
			return nil, fmt.Errorf(`%w: day %d field "theme" is %T, want string`, domain.ErrValidation, i, obj["theme"])
		}

		rawActivities, ok := obj["activities"].([]any)
		if !ok {
			return nil, fmt.Errorf(`%w: day %d field "activities" is %T, want array`, domain.ErrValidation, i, obj["activities"])
		}

		activities := make([]domain.Activity, 0, len(rawActivities))
		for j, rawAct := range rawActivities {
			act, ok := rawAct.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: day %d activity %d is %T, want object", domain.ErrValidation, i, j, rawAct)
			}
			var a domain.Activity
			for _, f := range []struct {
				name string
				dest *string
			}{
				{"time", &a.Time},
				{"description", &a.Description},
				{"location", &a.Location},
			} {
				s, ok := act[f.name].(string)
				if !ok {
					return nil, fmt.Errorf("%w: day %d activity %d field %q is %T, want string", domain.ErrValidation, i, j, f.name, act[f.name])
				}
				*f.dest = s
			}
			activities = append(activities, a)
		}

		days = append(days, domain.Day{Day: dayNum, Theme: theme, Activities: activities})
	}
	return days, nil
}

// intField reads a JSON number that must be a whole integer.
func intField(obj map[string]any, name string, dayIdx int) (int, error) {
	f, ok := obj[name].(float64)
	if !ok {
		return 0, fmt.Errorf("%w: day %d field %q is %T, want integer", domain.ErrValidation, dayIdx, name, obj[name])
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: day %d field %q is %v, want integer", domain.ErrValidation, dayIdx, name, f)
	}
	return int(f), nil
}
