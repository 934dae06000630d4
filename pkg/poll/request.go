package poll

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	jsonvalidator "github.com/galdor/go-json-validator"
)

var ErrInvalidPoll = errors.New("invalid poll")

// PollRequest is the payload of a poll creation command.
type PollRequest struct {
	Question       string     `json:"question"`
	Options        []string   `json:"options"`
	Duration       int        `json:"duration"`
	CorrectIndices []OptionId `json:"correctIndices"`
}

type requestLimits struct {
	maxDuration int
	maxOptions  int
}

// normalize trims the question and drops empty options. Correct indices
// refer to the filtered option list; duplicates are removed and indices
// are sorted.
func (r PollRequest) normalize() PollRequest {
	r2 := PollRequest{
		Question: strings.TrimSpace(r.Question),
		Options:  make([]string, 0, len(r.Options)),
		Duration: r.Duration,
	}

	for _, option := range r.Options {
		if text := strings.TrimSpace(option); text != "" {
			r2.Options = append(r2.Options, text)
		}
	}

	seen := make(map[OptionId]bool)
	for _, idx := range r.CorrectIndices {
		if !seen[idx] {
			seen[idx] = true
			r2.CorrectIndices = append(r2.CorrectIndices, idx)
		}
	}

	sort.Slice(r2.CorrectIndices, func(i, j int) bool {
		return r2.CorrectIndices[i] < r2.CorrectIndices[j]
	})

	return r2
}

func (r *PollRequest) validate(v *jsonvalidator.Validator, limits requestLimits) {
	v.CheckStringNotEmpty("question", r.Question)

	nbOptions := len(r.Options)

	v.Check("options", nbOptions >= 2, "tooFewOptions",
		"poll must have at least 2 non-empty options")
	v.Check("options", nbOptions <= limits.maxOptions, "tooManyOptions",
		"poll cannot have more than %d options", limits.maxOptions)

	v.Check("duration", r.Duration > 0, "invalidDuration",
		"duration must be strictly positive")
	v.Check("duration", r.Duration <= limits.maxDuration, "invalidDuration",
		"duration cannot be greater than %d seconds", limits.maxDuration)

	v.Check("correctIndices", len(r.CorrectIndices) > 0,
		"missingCorrectIndex", "at least one correct option is required")

	v.WithChild("correctIndices", func() {
		for i, idx := range r.CorrectIndices {
			v.Check(strconv.Itoa(i), idx >= 0 && int(idx) < nbOptions, "invalidOptionIndex",
				"option index %d does not reference an option", idx)
		}
	})
}

func validatePollRequest(r PollRequest, limits requestLimits) (PollRequest, error) {
	r = r.normalize()

	v := jsonvalidator.NewValidator()
	r.validate(v, limits)

	if err := v.Error(); err != nil {
		return r, fmt.Errorf("%w: %w", ErrInvalidPoll, err)
	}

	return r, nil
}
