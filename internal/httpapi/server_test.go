package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jheling/blockwork/pkg/block"
	"github.com/jheling/blockwork/pkg/observability"
	"github.com/jheling/blockwork/pkg/store"
)

const numberXML = `<xml xmlns="https://developers.google.com/blockly/xml">
  <block type="math_number" id="n-1" x="10" y="20">
    <field name="NUM">42</field>
  </block>
</xml>`

func newTestServer(t *testing.T) (*Server, *store.MemoryStore) {
	t.Helper()
	f := block.NewBlockFactory()
	if err := f.LoadDefaultDefinitions(); err != nil {
		t.Fatalf("LoadDefaultDefinitions: %v", err)
	}
	st := store.NewMemoryStore()
	s, err := New(Options{
		Store:   st,
		Factory: f,
		Logger:  log.New(io.Discard),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, st
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestNewRequiresStoreAndFactory(t *testing.T) {
	f := block.NewBlockFactory()
	if _, err := New(Options{Factory: f}); err == nil {
		t.Error("New without store should fail")
	}
	if _, err := New(Options{Store: store.NewMemoryStore()}); err == nil {
		t.Error("New without factory should fail")
	}
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)

	rr := doRequest(t, s, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp healthResponse
	decodeBody(t, rr, &resp)
	if resp.Status != "ok" {
		t.Errorf("status field = %q, want %q", resp.Status, "ok")
	}
	if resp.Version == "" {
		t.Error("version should be set")
	}
}

func TestDefinitions(t *testing.T) {
	s, _ := newTestServer(t)

	rr := doRequest(t, s, http.MethodGet, "/v1/definitions", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp definitionsResponse
	decodeBody(t, rr, &resp)

	found := map[string]bool{}
	for _, name := range resp.Definitions {
		found[name] = true
	}
	for _, want := range []string{"controls_if", "math_number", "text_print"} {
		if !found[want] {
			t.Errorf("definitions missing %q: %v", want, resp.Definitions)
		}
	}
}

func TestValidateAcceptsGoodDocument(t *testing.T) {
	s, _ := newTestServer(t)

	rr := doRequest(t, s, http.MethodPost, "/v1/validate", numberXML)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp validateResponse
	decodeBody(t, rr, &resp)
	if !resp.Valid {
		t.Fatalf("valid = false, error = %q", resp.Error)
	}
	if resp.BlockCount != 1 || resp.TopLevelCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", resp.BlockCount, resp.TopLevelCount)
	}
}

func TestValidateReportsBadDocument(t *testing.T) {
	s, _ := newTestServer(t)

	rr := doRequest(t, s, http.MethodPost, "/v1/validate", "this is not xml")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp validateResponse
	decodeBody(t, rr, &resp)
	if resp.Valid {
		t.Fatal("valid = true for garbage input")
	}
	if resp.Code != "PARSE_XML" {
		t.Errorf("code = %q, want PARSE_XML", resp.Code)
	}
	if resp.Error == "" {
		t.Error("error message should be set")
	}
}

func TestSnapshotLifecycle(t *testing.T) {
	s, _ := newTestServer(t)

	// Create
	body, err := json.Marshal(createSnapshotRequest{Name: "demo", XML: numberXML})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	rr := doRequest(t, s, http.MethodPost, "/v1/snapshots", string(body))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rr.Code, rr.Body.String())
	}
	var created store.Snapshot
	decodeBody(t, rr, &created)
	if created.ID == "" {
		t.Fatal("created snapshot has no ID")
	}
	if created.Name != "demo" || created.BlockCount != 1 {
		t.Errorf("created = %+v", created)
	}

	// List
	rr = doRequest(t, s, http.MethodGet, "/v1/snapshots", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rr.Code)
	}
	var list listSnapshotsResponse
	decodeBody(t, rr, &list)
	if len(list.Snapshots) != 1 || list.Snapshots[0].ID != created.ID {
		t.Errorf("list = %+v", list.Snapshots)
	}

	// Get returns the stored XML untouched.
	rr = doRequest(t, s, http.MethodGet, "/v1/snapshots/"+created.ID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rr.Code)
	}
	var fetched store.Snapshot
	decodeBody(t, rr, &fetched)
	if fetched.XML != numberXML {
		t.Errorf("XML round-trip mismatch:\n%s", fetched.XML)
	}

	// Delete
	rr = doRequest(t, s, http.MethodDelete, "/v1/snapshots/"+created.ID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rr.Code)
	}
	rr = doRequest(t, s, http.MethodGet, "/v1/snapshots/"+created.ID, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rr.Code)
	}
	var errResp errorResponse
	decodeBody(t, rr, &errResp)
	if errResp.Error == "" {
		t.Error("error envelope should carry a message")
	}
}

func TestCreateSnapshotRejectsBadXML(t *testing.T) {
	s, st := newTestServer(t)

	body, err := json.Marshal(createSnapshotRequest{Name: "bad", XML: "not xml"})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	rr := doRequest(t, s, http.MethodPost, "/v1/snapshots", string(body))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var errResp errorResponse
	decodeBody(t, rr, &errResp)
	if errResp.Code != "PARSE_XML" {
		t.Errorf("code = %q, want PARSE_XML", errResp.Code)
	}

	// Nothing was stored.
	snaps, err := st.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("store should be empty, has %d", len(snaps))
	}
}

func TestCreateSnapshotRequiresXML(t *testing.T) {
	s, _ := newTestServer(t)

	rr := doRequest(t, s, http.MethodPost, "/v1/snapshots", `{"name":"empty"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestDeleteMissingSnapshot(t *testing.T) {
	s, _ := newTestServer(t)

	rr := doRequest(t, s, http.MethodDelete, "/v1/snapshots/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

type recordingServiceHooks struct {
	observability.NoopServiceHooks
	requests  []string
	responses []int
}

func (h *recordingServiceHooks) OnRequest(ctx context.Context, method, path string) {
	h.requests = append(h.requests, method+" "+path)
}

func (h *recordingServiceHooks) OnResponse(ctx context.Context, method, path string, status int, d time.Duration) {
	h.responses = append(h.responses, status)
}

func TestMiddlewareReportsThroughHooks(t *testing.T) {
	rec := &recordingServiceHooks{}
	observability.SetServiceHooks(rec)
	defer observability.Reset()

	s, _ := newTestServer(t)
	doRequest(t, s, http.MethodGet, "/healthz", "")

	if len(rec.requests) != 1 || rec.requests[0] != "GET /healthz" {
		t.Errorf("requests = %v", rec.requests)
	}
	if len(rec.responses) != 1 || rec.responses[0] != http.StatusOK {
		t.Errorf("responses = %v", rec.responses)
	}
}
