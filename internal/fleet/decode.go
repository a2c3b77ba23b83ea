package fleet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"backend-livetrack/internal/shared/geo"
)

// ErrUnexpectedShape is returned for directory bodies that are neither an
// array nor a wrapping object.
var ErrUnexpectedShape = errors.New("unexpected technician list shape")

type rawTechnician struct {
	ID        json.RawMessage `json:"id"`
	Name      string          `json:"name"`
	FullName  string          `json:"full_name"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Status    string          `json:"status"`
	Lat       *float64        `json:"lat"`
	Lng       *float64        `json:"lng"`
}

// DecodeTechnicians normalizes the directory's response. It accepts a bare
// array or an object wrapping one under "technicians" or "data". Entries
// without an id are skipped.
func DecodeTechnicians(body []byte) ([]Technician, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrUnexpectedShape
	}

	var items []rawTechnician
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decode technicians: %w", err)
		}
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, fmt.Errorf("decode technicians: %w", err)
		}
		inner, ok := wrapper["technicians"]
		if !ok {
			inner, ok = wrapper["data"]
		}
		if !ok {
			return nil, ErrUnexpectedShape
		}
		if err := json.Unmarshal(inner, &items); err != nil {
			return nil, fmt.Errorf("decode technicians: %w", err)
		}
	default:
		return nil, ErrUnexpectedShape
	}

	out := make([]Technician, 0, len(items))
	for _, item := range items {
		id := decodeID(item.ID)
		if id == "" {
			continue
		}
		tech := Technician{ID: id, Name: item.displayName(), Status: item.Status}
		if item.Lat != nil && item.Lng != nil {
			tech.Position = &geo.Point{Lat: *item.Lat, Lng: *item.Lng}
		}
		out = append(out, tech)
	}
	return out, nil
}

func (r rawTechnician) displayName() string {
	switch {
	case r.Name != "":
		return r.Name
	case r.FullName != "":
		return r.FullName
	default:
		return strings.TrimSpace(r.FirstName + " " + r.LastName)
	}
}

func decodeID(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}
