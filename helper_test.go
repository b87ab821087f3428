package allocation

import (
	"encoding/json"
	"testing"
)

// pcts builds an allocation mapping from alternating keys and values.
func pcts(kv ...any) map[string]Percent {
	m := make(map[string]Percent, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		switch v := kv[i+1].(type) {
		case int:
			m[kv[i].(string)] = P(v)
		case float64:
			m[kv[i].(string)] = P(v)
		default:
			panic("unsupported value type")
		}
	}
	return m
}

// asJSON returns the canonical JSON encoding of v, used to compare values
// that hold decimals.
func asJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal(%v) error = %v", v, err)
	}
	return string(data)
}
