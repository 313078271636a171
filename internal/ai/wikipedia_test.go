package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestLookupDefinitionReturnsFirstSentence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/Kubernetes") {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"extract": "Kubernetes is a container orchestration system. It was originally designed by Google."}`))
	}))
	defer server.Close()

	wiki := &Wikipedia{
		client:  &http.Client{Timeout: time.Second},
		baseURL: server.URL + "/",
	}

	def, err := wiki.LookupDefinition(context.Background(), "Kubernetes")
	if err != nil {
		t.Fatalf("LookupDefinition failed: %v", err)
	}
	if def != "Kubernetes is a container orchestration system." {
		t.Fatalf("unexpected definition: %q", def)
	}
}

func TestLookupDefinitionNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	wiki := &Wikipedia{
		client:  &http.Client{Timeout: time.Second},
		baseURL: server.URL + "/",
	}

	if _, err := wiki.LookupDefinition(context.Background(), "NoSuchTerm"); err == nil {
		t.Fatal("expected error for missing page")
	}
}

func TestLookupDefinitionEscapesMultiWordTerms(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"extract": "A distributed consensus algorithm."}`))
	}))
	defer server.Close()

	wiki := &Wikipedia{
		client:  &http.Client{Timeout: time.Second},
		baseURL: server.URL + "/",
	}

	if _, err := wiki.LookupDefinition(context.Background(), "Raft consensus"); err != nil {
		t.Fatalf("LookupDefinition failed: %v", err)
	}
	if !strings.HasSuffix(gotPath, "/Raft_consensus") {
		t.Fatalf("expected underscored path, got %q", gotPath)
	}
}
