package aigen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ai/generate" || r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("unexpected request %s %q", r.URL.Path, r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(Response{
			Success: true,
			Macrocycle: &Macrocycle{Name: "Macro", Mesocycles: []Mesocycle{
				{BlockNumber: 1, Name: "Block 1"},
			}},
			Warnings: []string{},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/ai/", "key", Options{Timeout: time.Second})
	resp, err := c.Generate(context.Background(), Request{CreationMode: ModeTemplate, TemplateName: "Base"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Macrocycle.Name != "Macro" || len(resp.Macrocycle.Mesocycles) != 1 {
		t.Errorf("unexpected macrocycle %+v", resp.Macrocycle)
	}
	if got.TemplateName != "Base" || got.CreationMode != ModeTemplate {
		t.Errorf("unexpected request body %+v", got)
	}
}

func TestGenerateUnsuccessful(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Response{Success: false, Error: "not enough exercises"})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, "", Options{}).Preview(context.Background(), Request{})
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, was: %v", err)
	}
	if resp == nil || resp.Error != "not enough exercises" {
		t.Errorf("expected the response alongside the error, was: %+v", resp)
	}
}

func TestValidateInterviewStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "client not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", Options{}).ValidateInterview(context.Background(), "c1")
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, was: %v", err)
	}
}

func TestRateLimitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(InterviewValidation{IsComplete: true, HasInterview: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", Options{Rate: 0.001, Burst: 1})
	if _, err := c.ValidateInterview(context.Background(), "c1"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.ValidateInterview(ctx, "c1"); err == nil {
		t.Fatalf("expected the second call to be limited")
	}
}
