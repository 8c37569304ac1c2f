package session_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/fakeyudi/termtrace/internal/session"
)

func TestWorkspaceLifecycle(t *testing.T) {
	w := session.NewWorkspaces(t.TempDir())

	if _, err := w.Load("infra"); !errors.Is(err, session.ErrNoWorkspace) {
		t.Fatalf("Load() before Create error = %v, want ErrNoWorkspace", err)
	}
	if names, err := w.List(); err != nil || len(names) != 0 {
		t.Fatalf("List() = %v, %v; want empty", names, err)
	}

	ws, err := w.Create("infra")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if ws.Name != "infra" || len(ws.Sessions) != 0 {
		t.Errorf("Create() = %+v", ws)
	}

	for _, p := range []string{"/a.jsonl", "/b.jsonl", "/a.jsonl"} {
		if err := w.AddSession("infra", p); err != nil {
			t.Fatalf("AddSession(%s): %v", p, err)
		}
	}
	if err := w.SetDocumentID("infra", "doc-9"); err != nil {
		t.Fatal(err)
	}

	// Create on an existing workspace keeps its metadata.
	again, err := w.Create("infra")
	if err != nil {
		t.Fatal(err)
	}
	want := &session.Workspace{Name: "infra", Sessions: []string{"/a.jsonl", "/b.jsonl"}, DocumentID: "doc-9"}
	if !reflect.DeepEqual(again, want) {
		t.Errorf("workspace = %+v, want %+v", again, want)
	}

	if _, err := w.Create("api"); err != nil {
		t.Fatal(err)
	}
	if names, _ := w.List(); !reflect.DeepEqual(names, []string{"api", "infra"}) {
		t.Errorf("List() = %v", names)
	}
}

func TestAddSessionUnknownWorkspace(t *testing.T) {
	w := session.NewWorkspaces(t.TempDir())
	if err := w.AddSession("nope", "/x.jsonl"); !errors.Is(err, session.ErrNoWorkspace) {
		t.Errorf("AddSession() error = %v, want ErrNoWorkspace", err)
	}
}
