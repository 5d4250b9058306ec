package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewIDUnique(t *testing.T) {
	seen := make(map[ID]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Fatal("NewID returned an empty id")
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestTimestampJSONRoundTrip(t *testing.T) {
	original := NewTimestamp(time.Date(2024, 3, 1, 13, 30, 0, 0, time.UTC))
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Timestamp
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.Equal(original) {
		t.Fatalf("round trip changed the instant: %s vs %s", decoded, original)
	}
}

func TestTimestampOrdering(t *testing.T) {
	early := NewTimestamp(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	late := NewTimestamp(time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC))

	if !early.Before(late) || late.Before(early) {
		t.Fatal("Before ordering wrong")
	}
	if !late.After(early) || early.After(late) {
		t.Fatal("After ordering wrong")
	}
	if early.Equal(late) || !early.Equal(early) {
		t.Fatal("Equal wrong")
	}
}

func TestErrorClassification(t *testing.T) {
	if !IsSchemaError(NewMissingColumnError("meter_reading")) {
		t.Fatal("missing column must classify as a schema error")
	}
	if !IsSchemaError(NewSchemaMismatchError("columns reordered")) {
		t.Fatal("schema mismatch must classify as a schema error")
	}
	if IsSchemaError(ErrUndefinedThreshold) {
		t.Fatal("undefined threshold is not a schema error")
	}
	if !IsStatisticalEdgeCase(ErrUndefinedThreshold) {
		t.Fatal("undefined threshold is a statistical edge case")
	}
	if IsStatisticalEdgeCase(ErrMissingColumn) {
		t.Fatal("missing column is not a statistical edge case")
	}
}

func TestMissingColumnErrorCarriesName(t *testing.T) {
	err := NewMissingColumnError("square_feet")
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatal("constructor must wrap the sentinel")
	}
	if got := err.Error(); got != "required column missing: square_feet" {
		t.Fatalf("unexpected message: %q", got)
	}
}
