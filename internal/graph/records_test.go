package graph

import "testing"

func TestInt64Coercions(t *testing.T) {
	row := map[string]interface{}{
		"a": int64(5),
		"b": 7,
		"c": 9.0,
		"d": "nope",
	}
	if Int64(row, "a") != 5 || Int64(row, "b") != 7 || Int64(row, "c") != 9 {
		t.Fatalf("coercions failed: %d %d %d", Int64(row, "a"), Int64(row, "b"), Int64(row, "c"))
	}
	if Int64(row, "d") != 0 || Int64(row, "missing") != 0 {
		t.Fatal("non-numeric values must coerce to zero")
	}
}

func TestFloatsFromDriverList(t *testing.T) {
	row := map[string]interface{}{
		"vec": []interface{}{0.5, int64(1), 2.5},
	}
	got := Floats(row, "vec")
	if len(got) != 3 || got[0] != 0.5 || got[1] != 1 || got[2] != 2.5 {
		t.Fatalf("got %v", got)
	}
	if Floats(row, "missing") != nil {
		t.Fatal("missing key should yield nil")
	}
}
