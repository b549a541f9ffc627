package render

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRenderSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/render" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Template != "prescription" {
			t.Errorf("template = %q, want prescription", req.Template)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html>doc</html>"))
	}))
	defer srv.Close()

	cl := NewClient(srv.URL)
	doc, err := cl.Render(context.Background(), "prescription", map[string]string{"id": "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(doc.Body) != "<html>doc</html>" {
		t.Errorf("body = %q", doc.Body)
	}
	if !strings.HasPrefix(doc.ContentType, "text/html") {
		t.Errorf("content type = %q", doc.ContentType)
	}
}

func TestRenderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cl := NewClient(srv.URL)
	_, err := cl.Render(context.Background(), "prescription", nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestRenderBadRequestNotUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown template", http.StatusBadRequest)
	}))
	defer srv.Close()

	cl := NewClient(srv.URL)
	_, err := cl.Render(context.Background(), "bogus", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrUnavailable) {
		t.Errorf("4xx should not map to ErrUnavailable: %v", err)
	}
}

func TestRenderDisabled(t *testing.T) {
	cl := NewClient("")
	if cl.Enabled() {
		t.Error("client with empty base URL should be disabled")
	}
	_, err := cl.Render(context.Background(), "prescription", nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
