package fleet

import (
	"errors"
	"testing"
)

func TestDecodeTechniciansShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"array", `[{"id":7,"name":"Ana","status":"on_job"},{"id":"8","name":"Budi","status":"idle"}]`},
		{"technicians key", `{"technicians":[{"id":7,"name":"Ana","status":"on_job"},{"id":"8","name":"Budi","status":"idle"}]}`},
		{"data key", `{"data":[{"id":7,"name":"Ana","status":"on_job"},{"id":"8","name":"Budi","status":"idle"}],"total":2}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeTechnicians([]byte(tc.body))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("expected 2 technicians, got %d", len(got))
			}
			if got[0].ID != "7" || got[0].Name != "Ana" || got[0].Status != "on_job" {
				t.Fatalf("unexpected first technician: %+v", got[0])
			}
			if got[1].ID != "8" {
				t.Fatalf("unexpected id: %q", got[1].ID)
			}
		})
	}
}

func TestDecodeTechniciansNamesAndPositions(t *testing.T) {
	got, err := DecodeTechnicians([]byte(`[
		{"id":1,"first_name":"Citra","last_name":"Dewi","lat":-6.2,"lng":106.8},
		{"id":2,"full_name":"Eko Putra","lat":-6.2},
		{"name":"no id"}
	]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected entry without id to be skipped, got %d", len(got))
	}
	if got[0].Name != "Citra Dewi" || got[0].Position == nil || got[0].Position.Lng != 106.8 {
		t.Fatalf("unexpected first technician: %+v", got[0])
	}
	if got[1].Name != "Eko Putra" || got[1].Position != nil {
		t.Fatalf("expected partial coordinates to be ignored: %+v", got[1])
	}
}

func TestDecodeTechniciansRejectsUnknownShapes(t *testing.T) {
	for _, body := range []string{``, `"text"`, `{"items":[]}`} {
		if _, err := DecodeTechnicians([]byte(body)); !errors.Is(err, ErrUnexpectedShape) {
			t.Fatalf("%q: expected ErrUnexpectedShape, got %v", body, err)
		}
	}
	if _, err := DecodeTechnicians([]byte(`{"technicians":{"id":1}}`)); err == nil {
		t.Fatal("expected error for non-array payload")
	}
}
