package models

import (
	"encoding/json"
	"fmt"
	"time"

	"bitbucket.org/sgdatafocus/telemetry_backend/utils"
)

// RawObservation is one record extracted from a source file by the
// upstream extraction layer. Read-only to the engines; synthetic variants
// (split sessions, fictive stations) are new values, never in-place edits.
type RawObservation struct {
	ReportName string                 `json:"report_name"`
	ReportType ReportPeriodicity      `json:"report_type,omitempty"`
	Fields     map[string]interface{} `json:"fields"`
}

func (r RawObservation) Get(field string) (interface{}, bool) {
	v, ok := r.Fields[field]
	return v, ok
}

// GetString returns the string form of a field value; numbers are
// formatted with %v. Missing or nil fields report false.
func (r RawObservation) GetString(field string) (string, bool) {
	v, ok := r.Fields[field]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprintf("%v", v), true
}

func (r RawObservation) GetTime(field string) (time.Time, bool) {
	s, ok := r.GetString(field)
	if !ok {
		return time.Time{}, false
	}
	return utils.ParseTimeFlexible(s)
}

func (r RawObservation) GetInt64(field string) (int64, bool) {
	v, ok := r.Fields[field]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// GetStringSlice returns list-valued fields (for example concatenated
// session ids). A plain string reports a one-element slice.
func (r RawObservation) GetStringSlice(field string) ([]string, bool) {
	v, ok := r.Fields[field]
	if !ok || v == nil {
		return nil, false
	}
	switch vv := v.(type) {
	case []string:
		return vv, true
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprintf("%v", item))
			}
		}
		return out, true
	case string:
		return []string{vv}, true
	default:
		return nil, false
	}
}

// WithField returns a copy of the observation with one field replaced.
func (r RawObservation) WithField(field string, value interface{}) RawObservation {
	fields := make(map[string]interface{}, len(r.Fields)+1)
	for k, v := range r.Fields {
		fields[k] = v
	}
	fields[field] = value
	return RawObservation{ReportName: r.ReportName, ReportType: r.ReportType, Fields: fields}
}
