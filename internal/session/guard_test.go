package session

import "testing"

type recordingNavigator struct {
	paths []string
}

func (n *recordingNavigator) Navigate(path string) {
	n.paths = append(n.paths, path)
}

func TestDecide(t *testing.T) {
	if d := Decide(State{Loading: true}); d.Allow || d.RedirectTo != "" {
		t.Fatalf("expected nothing rendered while loading, got %+v", d)
	}
	if d := Decide(State{}); d.Allow || d.RedirectTo != LoginPath {
		t.Fatalf("expected redirect to login, got %+v", d)
	}
	if d := Decide(State{User: &Session{UID: "uid"}}); !d.Allow {
		t.Fatalf("expected access, got %+v", d)
	}
}

func TestGuardRender(t *testing.T) {
	provider := &providerStub{}
	m := NewManager(provider, nil, discardLogger())
	m.Start()
	defer m.Close()
	guard := NewGuard(m)
	nav := &recordingNavigator{}

	rendered := 0
	children := func() { rendered++ }

	if guard.Render(nav, children) || rendered != 0 || len(nav.paths) != 0 {
		t.Fatal("expected loading state to render nothing")
	}

	provider.emit(nil)
	if guard.Render(nav, children) || rendered != 0 {
		t.Fatal("expected unauthenticated state to skip children")
	}
	if len(nav.paths) != 1 || nav.paths[0] != LoginPath {
		t.Fatalf("expected redirect to %s, got %v", LoginPath, nav.paths)
	}

	provider.emit(&Session{UID: "uid"})
	if !guard.Render(nav, children) || rendered != 1 {
		t.Fatal("expected children to render when authenticated")
	}
}
