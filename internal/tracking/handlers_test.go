package tracking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestJobsHandlerPaginates(t *testing.T) {
	mem := NewMemoryBackend()
	base := time.Now()
	for i, id := range []string{"J1", "J2", "J3"} {
		mem.AddJob(Job{ID: id, TechnicianID: "tech", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}

	app := fiber.New()
	RegisterRoutes(app, mem)

	req := httptest.NewRequest(http.MethodGet, "/jobs?page=0&size=2", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("jobs status: %v", err)
	}
	var body struct {
		Items []Job `json:"items"`
		Total int   `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 3 || len(body.Items) != 2 || body.Items[0].ID != "J3" {
		t.Fatalf("unexpected page %+v", body)
	}
}

func TestSummaryAndPointsHandlers(t *testing.T) {
	mem := NewMemoryBackend()
	mem.AddJob(Job{ID: "J1", TechnicianID: "tech-1"})
	track, _ := mem.CreateTrack(context.Background(), "J1")
	now := time.Now()
	_ = mem.AddPoint(context.Background(), track.ID, LocationSample{Latitude: 6.9271, Longitude: 79.8612, RecordedAt: now})
	_ = mem.AddPoint(context.Background(), track.ID, LocationSample{Latitude: 6.9280, Longitude: 79.8625, RecordedAt: now.Add(5 * time.Second)})

	app := fiber.New()
	RegisterRoutes(app, mem)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tracks/"+track.ID+"/summary", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status: %v", err)
	}
	var summary struct {
		Stats DerivedStats `json:"stats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.Stats.PointCount != 2 || summary.Stats.DurationLabel != "5s" {
		t.Fatalf("unexpected summary %+v", summary.Stats)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/tracks/"+track.ID+"/points", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("points status: %v", err)
	}
}

func TestSummaryHandlerNotFound(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app, NewMemoryBackend())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tracks/missing/summary", nil))
	if err != nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found")
	}
}

func TestJobsHandlerError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, title`).WillReturnError(errTrack)

	app := fiber.New()
	RegisterRoutes(app, NewService(mock))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/jobs", nil))
	if err != nil || resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected error status")
	}
}

func TestPointsHandlerError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT ST_Y\(location::geometry\)`).WithArgs("T9").WillReturnError(errTrack)

	app := fiber.New()
	RegisterRoutes(app, NewService(mock))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tracks/T9/points", nil))
	if err != nil || resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected error status")
	}
}
