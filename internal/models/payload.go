package models

import "time"

// Payload is the opaque field-name → value mapping carried by a pending
// record. Values arrive from JSON, so numbers decode as float64.
type Payload map[string]interface{}

func (p Payload) GetString(key string) string {
	if p == nil {
		return ""
	}
	val, ok := p[key]
	if !ok {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func (p Payload) GetFloat(key string) float64 {
	if p == nil {
		return 0
	}
	val, ok := p[key]
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func (p Payload) GetTime(key string) time.Time {
	if p == nil {
		return time.Time{}
	}
	val, ok := p[key]
	if !ok {
		return time.Time{}
	}
	switch v := val.(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			t, err = time.Parse("2006-01-02", v)
			if err != nil {
				return time.Time{}
			}
		}
		return t
	default:
		return time.Time{}
	}
}
