package form

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/akvo/flow-forms/log"
	"github.com/akvo/flow-forms/model"
)

// Registry holds every loaded form definition, indexed by form id. It is
// read-only after LoadDir and safe to share.
type Registry struct {
	surveys map[string]*model.Survey
	groups  map[int64]*model.SurveyGroup
	byForm  map[string]int64
}

// LoadDir parses every *.json file under dir into the registry. A malformed
// definition fails the whole load: a half-usable registry would let broken
// forms into edit sessions.
func LoadDir(dir string) (*Registry, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, errors.Wrap(err, "form.load_dir")
	}

	reg := &Registry{
		surveys: make(map[string]*model.Survey),
		groups:  make(map[int64]*model.SurveyGroup),
		byForm:  make(map[string]int64),
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "form.load_dir: %s", path)
		}
		def, err := Load(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "form.load_dir: %s", path)
		}
		if err := reg.add(def); err != nil {
			return nil, errors.Wrapf(err, "form.load_dir: %s", path)
		}
		log.Debugf("form.load_dir: loaded %s v%v from %s", def.ID, def.Version, path)
	}

	log.Infof("form.load_dir: %d forms loaded from %s", len(reg.surveys), dir)
	return reg, nil
}

func (reg *Registry) add(def *Definition) error {
	if _, dup := reg.surveys[def.ID]; dup {
		return errors.Errorf("duplicate form id %s", def.ID)
	}
	survey := def.Survey
	reg.surveys[def.ID] = &survey

	if def.SurveyGroup != nil {
		g := *def.SurveyGroup
		if prev, seen := reg.groups[g.ID]; seen {
			if prev.Monitored != g.Monitored || prev.RegisterSurveyID != g.RegisterSurveyID {
				return errors.Errorf("survey group %d declared inconsistently", g.ID)
			}
		} else {
			reg.groups[g.ID] = &g
		}
		reg.byForm[def.ID] = g.ID
	}
	return nil
}

func (reg *Registry) Survey(id string) (*model.Survey, bool) {
	s, ok := reg.surveys[id]
	return s, ok
}

// Surveys returns every loaded form, sorted by id.
func (reg *Registry) Surveys() []*model.Survey {
	out := make([]*model.Survey, 0, len(reg.surveys))
	for _, s := range reg.surveys {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (reg *Registry) Group(id int64) (*model.SurveyGroup, bool) {
	g, ok := reg.groups[id]
	return g, ok
}

// GroupForSurvey resolves the survey group a form belongs to, if declared.
func (reg *Registry) GroupForSurvey(surveyID string) (*model.SurveyGroup, bool) {
	gid, ok := reg.byForm[surveyID]
	if !ok {
		return nil, false
	}
	return reg.groups[gid], true
}
