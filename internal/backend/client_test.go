package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/farmtrack/backend/internal/models"
)

func TestCreateRequest(t *testing.T) {
	var gotMethod, gotPath, gotBody, gotAPIKey, gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewRESTClient(Config{BaseURL: server.URL, APIKey: "secret-key"})

	payload := json.RawMessage(`{"name":"New Tractor","type":"tractor"}`)
	if err := client.Create(context.Background(), models.KindVehicle, payload); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("Method = %s, want POST", gotMethod)
	}
	if gotPath != "/rest/v1/vehicles" {
		t.Errorf("Path = %s, want /rest/v1/vehicles", gotPath)
	}
	if gotBody != string(payload) {
		t.Errorf("Body = %s, want %s", gotBody, payload)
	}
	if gotAPIKey != "secret-key" {
		t.Errorf("apikey header = %s, want secret-key", gotAPIKey)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("Authorization = %s, want Bearer secret-key", gotAuth)
	}
}

func TestUpdateRequest(t *testing.T) {
	var gotMethod, gotQuery, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewRESTClient(Config{BaseURL: server.URL, APIKey: "secret-key"})

	payload := json.RawMessage(`{"name":"Renamed"}`)
	if err := client.Update(context.Background(), models.KindFuelEntry, "fe-42", payload); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if gotMethod != http.MethodPatch {
		t.Errorf("Method = %s, want PATCH", gotMethod)
	}
	if gotPath != "/rest/v1/fuel_entries" {
		t.Errorf("Path = %s, want /rest/v1/fuel_entries", gotPath)
	}
	if gotQuery != "id=eq.fe-42" {
		t.Errorf("Query = %s, want id=eq.fe-42", gotQuery)
	}
}

func TestRejectionSurfacesServiceMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"duplicate key value violates unique constraint"}`))
	}))
	defer server.Close()

	client := NewRESTClient(Config{BaseURL: server.URL, APIKey: "k"})

	err := client.Create(context.Background(), models.KindDriver, json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("Expected rejection error, got nil")
	}
	want := "duplicate key value violates unique constraint"
	if got := err.Error(); !strings.Contains(got, want) || !strings.Contains(got, "409") {
		t.Errorf("Error %q should carry status and service message", got)
	}
}

func TestUnknownKindHasNoTable(t *testing.T) {
	client := NewRESTClient(Config{BaseURL: "http://localhost", APIKey: "k"})

	if err := client.Create(context.Background(), "spaceship", json.RawMessage(`{}`)); err == nil {
		t.Error("Expected error for unmapped kind, got nil")
	}
}

func TestTableMappingCoversAllKinds(t *testing.T) {
	for _, kind := range models.Kinds() {
		if _, err := tableFor(kind); err != nil {
			t.Errorf("Kind %s has no table mapping: %v", kind, err)
		}
	}
}

func TestContextCancellation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewRESTClient(Config{BaseURL: server.URL, APIKey: "k"})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.Create(ctx, models.KindVehicle, json.RawMessage(`{}`))
	}()

	<-started
	cancel()

	if err := <-errCh; err == nil {
		t.Error("Expected error after context cancellation, got nil")
	}
}
