// ABOUTME: Tests for the status page handler rendering.

package webstatus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/2389/matlab-gateway/internal/dispatch"
	"github.com/2389/matlab-gateway/internal/engine"
	"github.com/2389/matlab-gateway/internal/gate"
	"github.com/2389/matlab-gateway/internal/session"
	"github.com/2389/matlab-gateway/internal/store"
)

// idleRegistry backs a manager that never starts an engine. The status page
// only reads snapshots, so no handle is ever needed.
type idleRegistry struct{}

func (idleRegistry) EnumerateShared() ([]string, error) { return nil, nil }
func (idleRegistry) BindShared(context.Context, string) (engine.Handle, error) {
	return nil, errors.New("not available")
}
func (idleRegistry) CreateLocal(context.Context) (engine.Handle, error) {
	return nil, errors.New("not available")
}

func newTestHandler(t *testing.T, docs string) *Handler {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })

	store.NewRecorder(s, nil).RecordInvocation(context.Background(), dispatch.Record{
		RequestID: "req-1",
		Tool:      "execute_matlab",
	})

	g := gate.New([]string{"plotting"})
	if err := g.Enable("plotting"); err != nil {
		t.Fatal(err)
	}

	return New(Config{
		Sessions: session.NewManager(idleRegistry{}, nil),
		Gate:     g,
		History:  s,
		Docs:     docs,
	})
}

func TestStatusPageRenders(t *testing.T) {
	h := newTestHandler(t, "# Usage\n\nRun **carefully**.")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"matlab-gateway",
		"<code>essentials</code>",
		"<code>plotting</code>",
		"execute_matlab",
		"<strong>carefully</strong>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if !strings.Contains(body, "none") {
		t.Error("disconnected state should render as none")
	}
}

func TestStatusPageWithoutDocsOrHistory(t *testing.T) {
	h := New(Config{
		Sessions: session.NewManager(idleRegistry{}, nil),
		Gate:     gate.New(nil),
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), `class="docs"`) {
		t.Error("docs block should be omitted when no docs are configured")
	}
}

func TestStatusPageRejectsNonGET(t *testing.T) {
	h := newTestHandler(t, "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}
