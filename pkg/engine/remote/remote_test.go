package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/matzehuels/statelayout/pkg/engine"
)

func testRequest() *engine.Request {
	return &engine.Request{
		Root: &engine.Node{
			ID:       "__root__",
			Children: []*engine.Node{{ID: "m", Children: []*engine.Node{{ID: "a", Width: 10, Height: 10}}}},
		},
		Options: engine.Options{engine.OptAlgorithm: engine.AlgorithmLayered},
	}
}

func TestLayout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("Authorization = %q", got)
		}

		var body struct {
			Graph         *engine.Node   `json:"graph"`
			LayoutOptions engine.Options `json:"layoutOptions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Graph.ID != "__root__" || body.LayoutOptions[engine.OptAlgorithm] != "layered" {
			t.Errorf("unexpected body: %+v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"__root__","x":0,"y":0,"width":100,"height":50,
			"children":[{"id":"m","x":12,"y":12,"width":70,"height":30,
			"children":[{"id":"a","x":30,"y":10,"width":10,"height":10}]}]}`))
	}))
	defer srv.Close()

	e := New(srv.URL+"/layout", WithHeader("Authorization", "Bearer token"))
	res, err := e.Layout(context.Background(), testRequest())
	if err != nil {
		t.Fatal(err)
	}
	if a := res.Find("a"); a == nil || a.X != 30 || a.Y != 10 {
		t.Errorf("a = %+v", a)
	}
	if e.Name() != "remote" {
		t.Errorf("Name = %q", e.Name())
	}
}

func TestLayoutStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unsupported option", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Layout(context.Background(), testRequest())
	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if serr.Code != http.StatusBadRequest || serr.Body != "unsupported option" {
		t.Errorf("StatusError = %+v", serr)
	}
}

func TestLayoutNoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Layout(context.Background(), testRequest())
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("error = %v, want %v", err, ErrNetwork)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestLayoutRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":"__root__"}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, WithRetries(2)).Layout(context.Background(), testRequest())
	if err != nil {
		t.Fatal(err)
	}
	if res.ID != "__root__" || calls.Load() != 2 {
		t.Errorf("res = %+v after %d calls", res, calls.Load())
	}
}

func TestLayoutBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	if _, err := New(srv.URL).Layout(context.Background(), testRequest()); err == nil {
		t.Error("expected decode error")
	}
}
