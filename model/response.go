package model

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ResponseType tags how a QuestionResponse value is encoded.
type ResponseType string

const (
	ResponseValue     ResponseType = "VALUE"
	ResponseImage     ResponseType = "IMAGE"
	ResponseVideo     ResponseType = "VIDEO"
	ResponseGeo       ResponseType = "GEO"
	ResponseDate      ResponseType = "DATE"
	ResponseCascade   ResponseType = "CASCADE"
	ResponseOption    ResponseType = "OPTION"
	ResponseSignature ResponseType = "SIGNATURE"
	ResponseCaddisfly ResponseType = "CADDISFLY"
)

// QuestionResponse is the live answer of one question slot. ID is the
// persisted row identifier; zero means the response was never written.
type QuestionResponse struct {
	ID             int64        `json:"id,omitempty"`
	QuestionID     string       `json:"questionId"`
	FormInstanceID int64        `json:"formInstanceId"`
	Value          string       `json:"value"`
	Type           ResponseType `json:"type"`
	Iteration      int          `json:"iteration"`
}

func (r *QuestionResponse) Key() string {
	return ResponseKey(r.QuestionID, r.Iteration)
}

// HasValue reports whether the response counts as answered for the mandatory
// check. Text-like payloads are trimmed; geo and cascade payloads must be
// structurally usable, not just non-empty.
func (r *QuestionResponse) HasValue() bool {
	if r == nil {
		return false
	}
	switch r.Type {
	case ResponseGeo:
		geo, err := ParseGeo(r.Value)
		return err == nil && geo.InRange()
	case ResponseCascade:
		sel, err := ParseCascade(r.Value)
		if err != nil || len(sel) == 0 {
			return false
		}
		for _, lv := range sel {
			if strings.TrimSpace(lv.Name) == "" && strings.TrimSpace(lv.Code) == "" {
				return false
			}
		}
		return true
	default:
		return strings.TrimSpace(r.Value) != ""
	}
}

// GeoPoint is a decoded geolocation payload. The wire form is
// "lat|lon|elevation|accuracy" with the last two parts optional.
type GeoPoint struct {
	Latitude     float64
	Longitude    float64
	Elevation    float64
	HasElevation bool
	Accuracy     float64
	HasAccuracy  bool
}

func ParseGeo(value string) (geo GeoPoint, err error) {
	parts := strings.Split(strings.TrimSpace(value), "|")
	if len(parts) < 2 {
		err = errors.Errorf("malformed geo payload %q", value)
		return
	}

	geo.Latitude, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return geo, errors.Wrap(err, "geo latitude")
	}
	geo.Longitude, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return geo, errors.Wrap(err, "geo longitude")
	}

	if len(parts) > 2 && parts[2] != "" {
		geo.Elevation, err = strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return geo, errors.Wrap(err, "geo elevation")
		}
		geo.HasElevation = true
	}
	if len(parts) > 3 && parts[3] != "" {
		geo.Accuracy, err = strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return geo, errors.Wrap(err, "geo accuracy")
		}
		geo.HasAccuracy = true
	}
	return
}

// InRange reports whether latitude and longitude are inside the valid ranges
// [-90, 90) and [-180, 180).
func (g GeoPoint) InRange() bool {
	return g.Latitude >= -90 && g.Latitude < 90 &&
		g.Longitude >= -180 && g.Longitude < 180
}

// PlausibleElevation reports whether the recorded elevation lies within
// physical bounds. Always true when no elevation was captured.
func (g GeoPoint) PlausibleElevation() bool {
	if !g.HasElevation {
		return true
	}
	return g.Elevation >= -15000 && g.Elevation <= 15000
}

// CascadeLevel is one picked node of a cascade selection.
type CascadeLevel struct {
	Code string `json:"code,omitempty"`
	Name string `json:"name"`
}

func ParseCascade(value string) ([]CascadeLevel, error) {
	var sel []CascadeLevel
	err := json.Unmarshal([]byte(value), &sel)
	if err != nil {
		return nil, errors.Wrap(err, "cascade payload")
	}
	return sel, nil
}

func EncodeCascade(sel []CascadeLevel) (string, error) {
	b, err := json.Marshal(sel)
	if err != nil {
		return "", errors.Wrap(err, "cascade payload")
	}
	return string(b), nil
}

// ParseOptionCodes decodes an option payload into the selected codes.
// The canonical form is a JSON array of code strings; a bare string is
// accepted as a single selection. Duplicates are collapsed, order kept.
func ParseOptionCodes(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	var codes []string
	if strings.HasPrefix(value, "[") {
		if err := json.Unmarshal([]byte(value), &codes); err != nil {
			return nil
		}
	} else {
		codes = []string{value}
	}

	seen := make(map[string]bool, len(codes))
	out := codes[:0]
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
