package session

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/akvo/flow-forms/model"
	"github.com/akvo/flow-forms/store"
)

// Status computes the lifecycle state of the tracked instance. It is derived
// lazily on every call rather than cached, so an edit that invalidates a
// mandatory question is reflected immediately.
func Status(instance *model.FormInstance, t *Tracker) model.InstanceStatus {
	if instance.Submitted() {
		return model.StatusSubmitted
	}
	if len(t.values) == 0 {
		return model.StatusNotStarted
	}
	if len(t.ValidateAll()) == 0 {
		return model.StatusSubmittable
	}
	return model.StatusInProgress
}

// CanStartForm applies the monitored-group precondition to starting a new
// instance of a form against a data point. The outcome is never a hard block:
// unusual starts are allowed with a non-empty confirmation warning.
//
//   - non-registration form before the registration form is submitted:
//     allowed with a warning
//   - registration form that already has a submitted instance: re-answering
//     is allowed with a warning
func CanStartForm(ctx context.Context, gateway store.Gateway, group *model.SurveyGroup, dataPointID, surveyID string) (ok bool, warning string, err error) {
	if group == nil || !group.Monitored || group.RegisterSurveyID == "" {
		return true, "", nil
	}

	registered, err := gateway.SubmittedInstanceExists(ctx, dataPointID, group.RegisterSurveyID)
	if err != nil {
		return false, "", errors.Wrap(err, "session.can_start_form")
	}

	if surveyID == group.RegisterSurveyID {
		if registered {
			return true, "this data point is already registered; submitting again records a new registration", nil
		}
		return true, "", nil
	}

	if !registered {
		return true, fmt.Sprintf("the registration form %s has not been submitted for this data point yet", group.RegisterSurveyID), nil
	}
	return true, "", nil
}

// PrefillSource picks the prior instance a new instance of the same form is
// pre-populated from: the most recently submitted one, or nil when the data
// point has none.
func PrefillSource(ctx context.Context, gateway store.Gateway, dataPointID, surveyID string) (*model.FormInstance, error) {
	fi, err := gateway.LatestSubmittedInstance(ctx, dataPointID, surveyID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "session.prefill_source")
	}
	return fi, nil
}
