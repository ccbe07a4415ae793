// Package validate decides, per question type, whether a candidate response
// is acceptable. Rules are pure functions: rejections are returned as data,
// never as errors, since they are expected user-facing states.
package validate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/akvo/flow-forms/model"
)

type Reason string

const (
	ReasonMissing    Reason = "missing"
	ReasonNotANumber Reason = "not_a_number"
	ReasonTooSmall   Reason = "too_small"
	ReasonTooLarge   Reason = "too_large"
	ReasonMismatch   Reason = "mismatch"
	ReasonBadPayload Reason = "bad_payload"
)

// Result is the outcome of checking one response against one question.
// Warning carries soft plausibility findings that do not affect Valid.
type Result struct {
	Valid   bool   `json:"valid"`
	Reason  Reason `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
	Warning string `json:"warning,omitempty"`
}

func ok() Result {
	return Result{Valid: true}
}

func invalid(reason Reason, msg string, args ...any) Result {
	return Result{Reason: reason, Message: fmt.Sprintf(msg, args...)}
}

// Check evaluates a candidate response against its question. A nil or empty
// response fails with ReasonMissing; everything past the presence check is
// type-specific.
func Check(q *model.Question, resp *model.QuestionResponse) Result {
	if !resp.HasValue() {
		return invalid(ReasonMissing, "an answer is required")
	}

	switch q.Type {
	case model.TypeFreeText:
		if q.Rule != nil && q.Rule.RuleType == model.RuleNumeric {
			return checkNumeric(q.Rule, resp.Value)
		}
		return ok()

	case model.TypeOption:
		return checkOption(q, resp.Value)

	case model.TypeGeo:
		return checkGeo(resp.Value)

	case model.TypeCascade:
		return checkCascade(q, resp.Value)

	case model.TypeDate:
		if _, err := strconv.ParseInt(strings.TrimSpace(resp.Value), 10, 64); err != nil {
			return invalid(ReasonBadPayload, "date must be encoded as epoch milliseconds")
		}
		return ok()

	default:
		// media, scan, geoshape, signature, caddisfly: presence is enough
		return ok()
	}
}

func checkNumeric(rule *model.ValidationRule, value string) Result {
	value = strings.TrimSpace(value)

	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return invalid(ReasonNotANumber, "answer must be a number")
	}
	if !rule.AllowDecimal && v != float64(int64(v)) {
		return invalid(ReasonNotANumber, "answer must be a whole number")
	}
	if !rule.AllowSigned && v < 0 {
		return invalid(ReasonTooSmall, "negative values are not allowed")
	}
	if rule.MinVal != nil && v < *rule.MinVal {
		return invalid(ReasonTooSmall, "answer is too small, the minimum is %v", *rule.MinVal)
	}
	if rule.MaxVal != nil && v > *rule.MaxVal {
		return invalid(ReasonTooLarge, "answer is too large, the maximum is %v", *rule.MaxVal)
	}
	return ok()
}

func checkOption(q *model.Question, value string) Result {
	codes := model.ParseOptionCodes(value)
	if len(codes) == 0 {
		return invalid(ReasonBadPayload, "no option selected")
	}
	if !q.AllowMultiple && len(codes) > 1 {
		return invalid(ReasonBadPayload, "a single selection is expected")
	}

	if len(q.Options) == 0 {
		return ok()
	}
	known := make(map[string]bool, len(q.Options))
	hasOther := false
	for _, opt := range q.Options {
		known[opt.Code] = true
		if opt.IsOther {
			hasOther = true
		}
	}
	for _, c := range codes {
		if !known[c] && !hasOther {
			return invalid(ReasonBadPayload, "unknown option %q", c)
		}
	}
	return ok()
}

func checkGeo(value string) Result {
	geo, err := model.ParseGeo(value)
	if err != nil {
		return invalid(ReasonBadPayload, "malformed coordinates")
	}
	if !geo.InRange() {
		return invalid(ReasonBadPayload, "coordinates out of range")
	}

	res := ok()
	if !geo.PlausibleElevation() {
		res.Warning = fmt.Sprintf("elevation %v m looks implausible", geo.Elevation)
	}
	return res
}

func checkCascade(q *model.Question, value string) Result {
	sel, err := model.ParseCascade(value)
	if err != nil {
		return invalid(ReasonBadPayload, "malformed cascade selection")
	}
	if len(q.Levels) > 0 && len(sel) < len(q.Levels) {
		return invalid(ReasonMissing,
			"cascade selection is incomplete, %d of %d levels picked", len(sel), len(q.Levels))
	}
	return ok()
}

// CheckDoubleEntry validates the two independently typed slots of a
// double-entry question. Values are normalized per the base type before
// comparison: numeric answers compare by parsed value, text by trimmed string.
func CheckDoubleEntry(q *model.Question, primary, repeat string) Result {
	primary = strings.TrimSpace(primary)
	repeat = strings.TrimSpace(repeat)
	if primary == "" || repeat == "" {
		return invalid(ReasonMissing, "both entries are required")
	}

	if q.Rule != nil && q.Rule.RuleType == model.RuleNumeric {
		a, errA := strconv.ParseFloat(primary, 64)
		b, errB := strconv.ParseFloat(repeat, 64)
		if errA == nil && errB == nil {
			if a != b {
				return invalid(ReasonMismatch, "the answers do not match")
			}
			return checkNumeric(q.Rule, primary)
		}
		// fall through to string compare, the numeric rule reports its own error
	}

	if primary != repeat {
		return invalid(ReasonMismatch, "the answers do not match")
	}
	return ok()
}

// Answers evaluates every question of the survey in display order and returns
// the mandatory ones with no passing response, sorted by ascending order index.
// Responses are keyed by model.ResponseKey.
func Answers(survey *model.Survey, responses map[string]*model.QuestionResponse) []model.Question {
	byQuestion := make(map[string][]*model.QuestionResponse)
	for _, r := range responses {
		byQuestion[r.QuestionID] = append(byQuestion[r.QuestionID], r)
	}

	var missing []model.Question
	for _, g := range survey.Groups {
		for _, q := range g.Questions {
			if !q.Mandatory {
				continue
			}
			q := q
			answered := false
			for _, r := range byQuestion[q.ID] {
				if Check(&q, r).Valid {
					answered = true
					break
				}
			}
			if !answered {
				missing = append(missing, q)
			}
		}
	}

	sort.SliceStable(missing, func(i, j int) bool {
		return missing[i].Order < missing[j].Order
	})
	return missing
}
