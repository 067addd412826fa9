package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"quorum/internal/domain"
)

const samplePage = `<html><body>
<h1>Index</h1>
<p>plain <b>text</b></p>
<a href="/a">one</a> <a href="/b">two</a> <a href="/a">dup</a>
</body></html>`

func webServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(samplePage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWebFetchText(t *testing.T) {
	srv := webServer(t)
	h := NewWebFetchHandler(mustSchema(t, domain.ActionWebFetch), srv.Client(), testLogger())

	value, err := h.Execute(context.Background(), invocation("agent-1", domain.Params{
		"url": srv.URL,
	}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	result := value.(map[string]any)
	if result["status"] != http.StatusOK {
		t.Fatalf("status = %v", result["status"])
	}
	content := result["content"].(string)
	if content != "Index plain text one two dup" {
		t.Fatalf("content = %q", content)
	}
}

func TestWebFetchLinks(t *testing.T) {
	srv := webServer(t)
	h := NewWebFetchHandler(mustSchema(t, domain.ActionWebFetch), srv.Client(), testLogger())

	value, err := h.Execute(context.Background(), invocation("agent-1", domain.Params{
		"url":  srv.URL,
		"mode": "links",
	}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	links := value.(map[string]any)["links"].([]string)
	if !reflect.DeepEqual(links, []string{"/a", "/b"}) {
		t.Fatalf("links = %v", links)
	}
}

func TestWebFetchConnectionFailure(t *testing.T) {
	h := NewWebFetchHandler(mustSchema(t, domain.ActionWebFetch), nil, testLogger())

	_, err := h.Execute(context.Background(), invocation("agent-1", domain.Params{
		"url": "http://127.0.0.1:1/unreachable",
	}))
	if err == nil {
		t.Fatal("expected connection failure")
	}
}
