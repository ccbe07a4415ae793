package form

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akvo/flow-forms/model"
)

const waterPointForm = `{
	"id": "form-water",
	"name": "Water Point Survey",
	"version": 2.1,
	"surveyGroup": {"id": 42, "name": "Water Points", "monitored": true, "registerSurveyId": "form-water"},
	"groups": [
		{
			"id": "g1",
			"heading": "Location",
			"questions": [
				{"id": "q1", "order": 1, "type": "free", "text": "Name of the water point", "mandatory": true},
				{"id": "q2", "order": 2, "type": "geo", "text": "Position", "mandatory": true},
				{
					"id": "q3", "order": 3, "type": "option", "text": "Source type",
					"options": [
						{"code": "WELL", "text": "Well"},
						{"code": "SPRING", "text": "Spring"},
						{"code": "OTHER", "text": "Other", "isOther": true}
					]
				},
				{
					"id": "q4", "order": 4, "type": "cascade", "text": "Administrative area",
					"levels": [{"text": "Region"}, {"text": "District"}]
				},
				{
					"id": "q5", "order": 5, "type": "free", "text": "Households served",
					"doubleEntry": true,
					"validationRule": {"ruleType": "numeric", "minVal": 0, "maxVal": 100000}
				}
			]
		}
	]
}`

func TestLoad(t *testing.T) {
	def, err := Load(strings.NewReader(waterPointForm))
	require.NoError(t, err)

	assert.Equal(t, "form-water", def.ID)
	assert.Equal(t, 2.1, def.Version)
	require.NotNil(t, def.SurveyGroup)
	assert.True(t, def.SurveyGroup.Monitored)
	assert.Equal(t, "form-water", def.SurveyGroup.RegisterSurveyID)

	require.Len(t, def.Groups, 1)
	require.Len(t, def.Groups[0].Questions, 5)

	q5 := def.Survey.Question("q5")
	require.NotNil(t, q5)
	require.NotNil(t, q5.Rule)
	assert.Equal(t, model.RuleNumeric, q5.Rule.RuleType)
	assert.Equal(t, 0.0, *q5.Rule.MinVal)
	assert.True(t, q5.DoubleEntry)
}

func TestLoadRejectsMalformedDefinitions(t *testing.T) {
	cases := map[string]string{
		"missing form id": `{"name": "x", "groups": []}`,

		"unknown question type": `{"id": "f", "groups": [
			{"id": "g", "questions": [{"id": "q1", "type": "slider"}]}]}`,

		"duplicate question id": `{"id": "f", "groups": [
			{"id": "g", "questions": [
				{"id": "q1", "type": "free"},
				{"id": "q1", "type": "free"}]}]}`,

		"rule on non-text question": `{"id": "f", "groups": [
			{"id": "g", "questions": [
				{"id": "q1", "type": "photo", "validationRule": {"ruleType": "numeric"}}]}]}`,

		"unknown rule type": `{"id": "f", "groups": [
			{"id": "g", "questions": [
				{"id": "q1", "type": "free", "validationRule": {"ruleType": "regex"}}]}]}`,

		"inverted rule bounds": `{"id": "f", "groups": [
			{"id": "g", "questions": [
				{"id": "q1", "type": "free", "validationRule": {"ruleType": "numeric", "minVal": 10, "maxVal": 1}}]}]}`,

		"option question without options": `{"id": "f", "groups": [
			{"id": "g", "questions": [{"id": "q1", "type": "option"}]}]}`,

		"cascade question without levels": `{"id": "f", "groups": [
			{"id": "g", "questions": [{"id": "q1", "type": "cascade"}]}]}`,

		"options on a text question": `{"id": "f", "groups": [
			{"id": "g", "questions": [
				{"id": "q1", "type": "free", "options": [{"code": "A", "text": "A"}]}]}]}`,

		"double entry on a photo question": `{"id": "f", "groups": [
			{"id": "g", "questions": [{"id": "q1", "type": "photo", "doubleEntry": true}]}]}`,

		"unknown field": `{"id": "f", "bogus": true, "groups": []}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(body))
			assert.Error(t, err)
		})
	}
}

func TestLoadDir(t *testing.T) {
	writeForm := func(t *testing.T, dir, name, body string) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	t.Run("loads every definition and indexes groups", func(t *testing.T) {
		dir := t.TempDir()
		writeForm(t, dir, "water.json", waterPointForm)
		writeForm(t, dir, "followup.json", `{
			"id": "form-followup", "name": "Follow Up", "version": 1,
			"surveyGroup": {"id": 42, "name": "Water Points", "monitored": true, "registerSurveyId": "form-water"},
			"groups": [{"id": "g1", "questions": [{"id": "q1", "order": 1, "type": "free"}]}]
		}`)

		reg, err := LoadDir(dir)
		require.NoError(t, err)

		assert.Len(t, reg.Surveys(), 2)
		_, ok := reg.Survey("form-water")
		assert.True(t, ok)

		g, ok := reg.GroupForSurvey("form-followup")
		require.True(t, ok)
		assert.Equal(t, int64(42), g.ID)
		assert.Equal(t, "form-water", g.RegisterSurveyID)
	})

	t.Run("duplicate form ids fail the load", func(t *testing.T) {
		dir := t.TempDir()
		writeForm(t, dir, "a.json", `{"id": "f", "groups": []}`)
		writeForm(t, dir, "b.json", `{"id": "f", "groups": []}`)

		_, err := LoadDir(dir)
		assert.Error(t, err)
	})

	t.Run("inconsistent group declarations fail the load", func(t *testing.T) {
		dir := t.TempDir()
		writeForm(t, dir, "a.json", `{"id": "fa", "surveyGroup": {"id": 7, "monitored": true, "registerSurveyId": "fa"}, "groups": []}`)
		writeForm(t, dir, "b.json", `{"id": "fb", "surveyGroup": {"id": 7, "monitored": false}, "groups": []}`)

		_, err := LoadDir(dir)
		assert.Error(t, err)
	})

	t.Run("empty directory is fine", func(t *testing.T) {
		reg, err := LoadDir(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, reg.Surveys())
	})
}
