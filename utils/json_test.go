package utils

import "testing"

func TestJSONEqual(t *testing.T) {
	a := map[string]interface{}{"satellite_unit": "S1A", "absolute_orbit": 45001}
	b := map[string]interface{}{"absolute_orbit": 45001, "satellite_unit": "S1A"}
	if !JSONEqual(a, b) {
		t.Fatalf("key insertion order must not affect equality")
	}

	b["absolute_orbit"] = 45002
	if JSONEqual(a, b) {
		t.Fatalf("differing values must not compare equal")
	}

	type payload struct {
		Id string `json:"id"`
	}
	if !JSONEqual(payload{Id: "x"}, map[string]interface{}{"id": "x"}) {
		t.Fatalf("struct and map with identical documents must compare equal")
	}
	if JSONEqual(func() {}, func() {}) {
		t.Fatalf("unmarshalable values must compare unequal")
	}
}
