package args

import (
	"reflect"
	"testing"
)

func TestString(t *testing.T) {
	if _, err := String(map[string]any{}, "name"); err == nil {
		t.Error("expected error for missing key")
	}
	if _, err := String(map[string]any{"name": 7}, "name"); err == nil {
		t.Error("expected error for non-string value")
	}
	if _, err := String(map[string]any{"name": ""}, "name"); err == nil {
		t.Error("expected error for empty string")
	}
	got, err := String(map[string]any{"name": "disease"}, "name")
	if err != nil || got != "disease" {
		t.Errorf("String = %q, %v", got, err)
	}
}

func TestInt(t *testing.T) {
	// JSON numbers decode as float64.
	if got := Int(map[string]any{"limit": float64(7)}, "limit", 5); got != 7 {
		t.Errorf("Int = %d", got)
	}
	if got := Int(map[string]any{}, "limit", 5); got != 5 {
		t.Errorf("Int default = %d", got)
	}
	if got := Int(map[string]any{"limit": "nope"}, "limit", 5); got != 5 {
		t.Errorf("Int with bad value = %d", got)
	}
}

func TestBool(t *testing.T) {
	if got := Bool(map[string]any{"formatted": true}, "formatted", false); !got {
		t.Error("Bool should read true")
	}
	if got := Bool(map[string]any{}, "mixin", true); !got {
		t.Error("Bool should default true")
	}
}

func TestStringList(t *testing.T) {
	got, err := StringList(map[string]any{"prefixes": []any{"MONDO", "HGNC"}}, "prefixes")
	if err != nil || !reflect.DeepEqual(got, []string{"MONDO", "HGNC"}) {
		t.Errorf("StringList = %v, %v", got, err)
	}

	got, err = StringList(map[string]any{}, "prefixes")
	if err != nil || got != nil {
		t.Errorf("absent key: %v, %v", got, err)
	}

	if _, err := StringList(map[string]any{"prefixes": []any{"MONDO", 3}}, "prefixes"); err == nil {
		t.Error("expected error for mixed list")
	}
	if _, err := StringList(map[string]any{"prefixes": "MONDO"}, "prefixes"); err == nil {
		t.Error("expected error for bare string")
	}
}

func TestStringOrList(t *testing.T) {
	got, err := StringOrList(map[string]any{"categories": "biolink:Disease"}, "categories")
	if err != nil || !reflect.DeepEqual(got, []string{"biolink:Disease"}) {
		t.Errorf("string form: %v, %v", got, err)
	}

	got, err = StringOrList(map[string]any{"categories": []any{"a", "b"}}, "categories")
	if err != nil || !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("list form: %v, %v", got, err)
	}

	got, err = StringOrList(map[string]any{"categories": nil}, "categories")
	if err != nil || got != nil {
		t.Errorf("null form: %v, %v", got, err)
	}
}

func TestStringMap(t *testing.T) {
	got, err := StringMap(map[string]any{"row_data": map[string]any{
		"name":  "aspirin",
		"count": float64(3),
		"empty": nil,
	}}, "row_data")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{"name": "aspirin", "count": "3", "empty": ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("StringMap = %v, want %v", got, want)
	}

	if _, err := StringMap(map[string]any{}, "row_data"); err == nil {
		t.Error("expected error for missing key")
	}
	if _, err := StringMap(map[string]any{"row_data": "nope"}, "row_data"); err == nil {
		t.Error("expected error for non-object")
	}
}
