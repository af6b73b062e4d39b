package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientAWTY(t *testing.T) {
	var got LocationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/easter/awty" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"arrived":true,"task":{"id":"t1","question":"What colour is the door?"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", 5*time.Second)
	resp, err := c.AWTY(context.Background(), RoutesFor("easter"), LocationRequest{
		UserID: "u1", GameRef: "g1", Lat: 51.5, Lng: -0.12,
	})
	if err != nil {
		t.Fatalf("awty: %v", err)
	}

	if got.UserID != "u1" || got.GameRef != "g1" || got.Lat != 51.5 {
		t.Errorf("request body = %+v", got)
	}
	if !resp.Arrived || resp.Task == nil || resp.Task.ID != "t1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "trail not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	_, err := c.Game(context.Background(), RoutesFor("/trail/"), "missing")

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", se.Code)
	}
}

func TestClientNextAndGame(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /dino/next", func(w http.ResponseWriter, r *http.Request) {
		var req NextRequest
		json.NewDecoder(r.Body).Decode(&req)
		correct := req.Action == ActionAnswer && req.Answer == "red"
		json.NewEncoder(w).Encode(NextResponse{OK: true, Outcome: &Outcome{Correct: correct}})
	})
	mux.HandleFunc("GET /dino/{id}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(GameInfo{ID: r.PathValue("id"), Name: "Dino Hunt"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	routes := RoutesFor("dino")

	resp, err := c.Next(context.Background(), routes, NextRequest{Action: ActionAnswer, Answer: "red"})
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if resp.Outcome == nil || !resp.Outcome.Correct {
		t.Errorf("outcome = %+v", resp.Outcome)
	}

	info, err := c.Game(context.Background(), routes, "park-1")
	if err != nil {
		t.Fatalf("game: %v", err)
	}
	if info.ID != "park-1" || info.Name != "Dino Hunt" {
		t.Errorf("info = %+v", info)
	}
}

func TestRoutesFor(t *testing.T) {
	r := RoutesFor("/egghunt/")
	if r.Play != "/egghunt/play" || r.AWTY != "/egghunt/awty" || r.Next != "/egghunt/next" || r.Meta != "/egghunt" {
		t.Errorf("routes = %+v", r)
	}
}
