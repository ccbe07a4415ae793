package model

import "fmt"

// QuestionType is the closed set of question kinds a form definition may declare.
type QuestionType string

const (
	TypeFreeText  QuestionType = "free"
	TypeOption    QuestionType = "option"
	TypeGeo       QuestionType = "geo"
	TypePhoto     QuestionType = "photo"
	TypeVideo     QuestionType = "video"
	TypeScan      QuestionType = "scan"
	TypeDate      QuestionType = "date"
	TypeCascade   QuestionType = "cascade"
	TypeGeoshape  QuestionType = "geoshape"
	TypeSignature QuestionType = "signature"
	TypeCaddisfly QuestionType = "caddisfly"
)

var questionTypes = map[QuestionType]bool{
	TypeFreeText:  true,
	TypeOption:    true,
	TypeGeo:       true,
	TypePhoto:     true,
	TypeVideo:     true,
	TypeScan:      true,
	TypeDate:      true,
	TypeCascade:   true,
	TypeGeoshape:  true,
	TypeSignature: true,
	TypeCaddisfly: true,
}

func (t QuestionType) Valid() bool {
	return questionTypes[t]
}

// DefaultResponseType maps a question type to the response type its answers carry.
func (t QuestionType) DefaultResponseType() ResponseType {
	switch t {
	case TypePhoto:
		return ResponseImage
	case TypeVideo:
		return ResponseVideo
	case TypeGeo:
		return ResponseGeo
	case TypeDate:
		return ResponseDate
	case TypeCascade:
		return ResponseCascade
	case TypeOption:
		return ResponseOption
	case TypeSignature:
		return ResponseSignature
	case TypeCaddisfly:
		return ResponseCaddisfly
	default:
		return ResponseValue
	}
}

// SurveyGroup gathers the forms answered against one kind of data point.
// Monitored groups require a submitted registration form before any other
// form applies to a data point.
type SurveyGroup struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	RegisterSurveyID string `json:"registerSurveyId,omitempty"`
	Monitored        bool   `json:"monitored"`
}

// Survey is one form: an immutable, ordered tree of question groups.
type Survey struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Version float64         `json:"version"`
	Groups  []QuestionGroup `json:"groups"`
}

// Question returns the question with the given identifier, or nil.
func (s *Survey) Question(id string) *Question {
	for gi := range s.Groups {
		for qi := range s.Groups[gi].Questions {
			if s.Groups[gi].Questions[qi].ID == id {
				return &s.Groups[gi].Questions[qi]
			}
		}
	}
	return nil
}

// Questions returns every question of the survey in display order.
func (s *Survey) Questions() []Question {
	var qs []Question
	for _, g := range s.Groups {
		qs = append(qs, g.Questions...)
	}
	return qs
}

type QuestionGroup struct {
	ID         string     `json:"id"`
	Heading    string     `json:"heading"`
	Repeatable bool       `json:"repeatable,omitempty"`
	Questions  []Question `json:"questions"`
}

type Question struct {
	ID            string          `json:"id"`
	Order         int             `json:"order"`
	Type          QuestionType    `json:"type"`
	Text          string          `json:"text"`
	Mandatory     bool            `json:"mandatory,omitempty"`
	AllowMultiple bool            `json:"allowMultiple,omitempty"`
	DoubleEntry   bool            `json:"doubleEntry,omitempty"`
	Locked        bool            `json:"locked,omitempty"`
	Rule          *ValidationRule `json:"validationRule,omitempty"`
	Options       []Option        `json:"options,omitempty"`
	Levels        []Level         `json:"levels,omitempty"`
	HelpTipCount  int             `json:"helpTipCount,omitempty"`
}

type Option struct {
	Code    string `json:"code"`
	Text    string `json:"text"`
	IsOther bool   `json:"isOther,omitempty"`
}

// Level names one step of a cascade hierarchy, e.g. region > district > village.
type Level struct {
	Text string `json:"text"`
}

type ValidationRule struct {
	RuleType     string   `json:"ruleType"`
	MinVal       *float64 `json:"minVal,omitempty"`
	MaxVal       *float64 `json:"maxVal,omitempty"`
	AllowDecimal bool     `json:"allowDecimal,omitempty"`
	AllowSigned  bool     `json:"allowSigned,omitempty"`
}

const RuleNumeric = "numeric"

// InstanceStatus is the lifecycle state of one form instance. It is computed
// on demand from the instance's responses, never stored.
type InstanceStatus string

const (
	StatusNotStarted  InstanceStatus = "NOT_STARTED"
	StatusInProgress  InstanceStatus = "IN_PROGRESS"
	StatusSubmittable InstanceStatus = "SUBMITTABLE"
	StatusSubmitted   InstanceStatus = "SUBMITTED"
)

// DataPoint is the surveyed entity (a place, a household) forms are answered against.
type DataPoint struct {
	ID            string `json:"id"`
	SurveyGroupID int64  `json:"surveyGroupId"`
	Name          string `json:"name"`
	CreatedAt     int64  `json:"createdAt"`
}

// FormInstance is one attempt at answering a survey for a data point.
type FormInstance struct {
	ID          int64   `json:"id"`
	UUID        string  `json:"uuid"`
	DataPointID string  `json:"dataPointId"`
	SurveyID    string  `json:"surveyId"`
	Version     float64 `json:"version"`
	StartedAt   int64   `json:"startedAt"`
	SubmittedAt *int64  `json:"submittedAt,omitempty"`
}

func (fi *FormInstance) Submitted() bool {
	return fi.SubmittedAt != nil
}

// ResponseKey identifies a response slot within a form instance. Iteration -1
// marks a question outside any repeatable group.
func ResponseKey(questionID string, iteration int) string {
	if iteration < 0 {
		return questionID
	}
	return fmt.Sprintf("%s|%d", questionID, iteration)
}
