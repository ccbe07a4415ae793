// Package form loads survey definitions from JSON files and enforces the
// structural preconditions the response engine relies on. A definition that
// fails these checks is rejected at load time and never enters a session.
package form

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/akvo/flow-forms/model"
)

// Definition is one form definition file: the survey tree plus, optionally,
// the survey group it belongs to.
type Definition struct {
	model.Survey
	SurveyGroup *model.SurveyGroup `json:"surveyGroup,omitempty"`
}

func Load(r io.Reader) (*Definition, error) {
	var def Definition
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&def); err != nil {
		return nil, errors.Wrap(err, "form.decode")
	}
	if err := verify(&def.Survey); err != nil {
		return nil, err
	}
	return &def, nil
}

func verify(s *model.Survey) error {
	if s.ID == "" {
		return errors.New("form.verify: missing form id")
	}

	seen := make(map[string]bool)
	for _, g := range s.Groups {
		for i := range g.Questions {
			q := &g.Questions[i]
			if err := verifyQuestion(q); err != nil {
				return errors.Wrapf(err, "form.verify: form %s question %s", s.ID, q.ID)
			}
			if seen[q.ID] {
				return errors.Errorf("form.verify: form %s: duplicate question id %s", s.ID, q.ID)
			}
			seen[q.ID] = true
		}
	}
	return nil
}

func verifyQuestion(q *model.Question) error {
	if q.ID == "" {
		return errors.New("missing question id")
	}
	if !q.Type.Valid() {
		return errors.Errorf("unknown question type %q", q.Type)
	}

	if q.Rule != nil {
		if q.Type != model.TypeFreeText {
			return errors.Errorf("validation rule declared on %s question", q.Type)
		}
		if q.Rule.RuleType != model.RuleNumeric {
			return errors.Errorf("unknown rule type %q", q.Rule.RuleType)
		}
		if q.Rule.MinVal != nil && q.Rule.MaxVal != nil && *q.Rule.MinVal > *q.Rule.MaxVal {
			return errors.Errorf("rule bounds inverted: min %v > max %v", *q.Rule.MinVal, *q.Rule.MaxVal)
		}
	}

	switch q.Type {
	case model.TypeOption:
		if len(q.Options) == 0 {
			return errors.New("option question without options")
		}
	case model.TypeCascade:
		if len(q.Levels) == 0 {
			return errors.New("cascade question without levels")
		}
	default:
		if len(q.Options) > 0 {
			return errors.Errorf("options declared on %s question", q.Type)
		}
		if len(q.Levels) > 0 {
			return errors.Errorf("cascade levels declared on %s question", q.Type)
		}
	}

	if q.DoubleEntry && q.Type != model.TypeFreeText {
		return errors.Errorf("double entry declared on %s question", q.Type)
	}
	return nil
}
