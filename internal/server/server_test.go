package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/moghouse/gearsweep/internal/analyzer"
	"github.com/moghouse/gearsweep/pkg/checklist"
)

const testCSV = `container_id,container_name,item_id,item_name,augments,count
8,wardrobe,1,Nyame Helm,,1
8,wardrobe,2,Empty Urn,,1
0,inventory,3,Potion,,1
`

const testLua = `sets.engaged = { head="Nyame Helm" }`

func testServer(t *testing.T) (*Server, *checklist.Store) {
	t.Helper()
	store, err := checklist.NewStore(filepath.Join(t.TempDir(), "checklist.json"))
	if err != nil {
		t.Fatal(err)
	}
	return New(store, nil, analyzer.DefaultConfig(), "", ""), store
}

func analyzeBody(t *testing.T, force bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fw, err := w.CreateFormFile("inventory_csv", "inventory.csv")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(testCSV))

	fw, err = w.CreateFormFile("lua_files", "war.lua")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(testLua))

	if force {
		w.WriteField("force", "true")
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func doAnalyze(t *testing.T, h http.Handler, force bool) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := analyzeBody(t, force)
	req := httptest.NewRequest("POST", "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatusEmpty(t *testing.T) {
	srv, _ := testServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/status", nil))

	if rec.Code != 200 {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["has_checklist"] != false {
		t.Fatalf("expected has_checklist=false, got %#v", resp)
	}
}

func TestAnalyzeAndChecklist(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.Handler()

	rec := doAnalyze(t, h, false)
	if rec.Code != 200 {
		t.Fatalf("analyze failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["orphaned_items"] != float64(1) {
		t.Fatalf("expected 1 orphan, got %#v", resp)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/checklist", nil))
	if rec.Code != 200 {
		t.Fatalf("checklist failed: %d", rec.Code)
	}
	var cl struct {
		TotalItems int `json:"total_items"`
		Containers []struct {
			Container string `json:"container"`
			Items     []struct {
				Key      string `json:"key"`
				ItemName string `json:"item_name"`
			} `json:"items"`
		} `json:"containers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cl); err != nil {
		t.Fatal(err)
	}
	if cl.TotalItems != 1 || len(cl.Containers) != 1 || cl.Containers[0].Items[0].ItemName != "Empty Urn" {
		t.Fatalf("unexpected checklist payload: %s", rec.Body.String())
	}
}

func TestUpdateItem(t *testing.T) {
	srv, store := testServer(t)
	h := srv.Handler()
	doAnalyze(t, h, false)

	key := checklist.EncodeKey(8, 2, "")
	note := "sold"
	body, _ := json.Marshal(map[string]interface{}{"key": key, "checked": true, "note": note})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/update-item", bytes.NewReader(body)))
	if rec.Code != 200 {
		t.Fatalf("update failed: %d %s", rec.Code, rec.Body.String())
	}

	state, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	e := state.Entries[key]
	if !e.Checked || e.Note != "sold" {
		t.Fatalf("mutation did not persist: %#v", e)
	}
}

func TestUpdateItemUnknownKey(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.Handler()
	doAnalyze(t, h, false)

	body, _ := json.Marshal(map[string]interface{}{"key": "99|99|nope", "checked": true})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/update-item", bytes.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown key, got %d", rec.Code)
	}
}

func TestExportCSV(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.Handler()
	doAnalyze(t, h, false)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/export-csv", nil))
	if rec.Code != 200 {
		t.Fatalf("export-csv failed: %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "attachment") {
		t.Fatalf("expected attachment disposition, got %q", rec.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(rec.Body.String(), "Empty Urn") {
		t.Fatalf("unexpected CSV body: %s", rec.Body.String())
	}
}

func TestCorruptStateRequiresForce(t *testing.T) {
	srv, store := testServer(t)
	h := srv.Handler()
	if err := os.WriteFile(store.Path(), []byte("{corrupt"), 0644); err != nil {
		t.Fatal(err)
	}

	// Status reports the load failure instead of erroring.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/status", nil))
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if _, ok := resp["state_error"]; !ok {
		t.Fatalf("expected state_error in status, got %#v", resp)
	}

	// Analyze without acknowledgment is refused.
	if rec := doAnalyze(t, h, false); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 without force, got %d", rec.Code)
	}
	// With force=true the corrupt state is discarded.
	if rec := doAnalyze(t, h, true); rec.Code != 200 {
		t.Fatalf("expected success with force, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestLoadStateAndClear(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.Handler()

	exported := checklist.NewState()
	exported.Entries["8|1|"] = checklist.Entry{
		ContainerID: 8, ContainerName: "wardrobe", ItemName: "Empty Urn", Checked: true,
	}
	data, err := exported.ToJSON()
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, _ := w.CreateFormFile("state_file", "export.json")
	fw.Write(data)
	w.Close()

	req := httptest.NewRequest("POST", "/api/load-state", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("load-state failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/clear", nil))
	if rec.Code != 200 {
		t.Fatalf("clear failed: %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/checklist", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after clear, got %d", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	store, err := checklist.NewStore(filepath.Join(t.TempDir(), "checklist.json"))
	if err != nil {
		t.Fatal(err)
	}
	srv := New(store, nil, analyzer.DefaultConfig(), "user", "pass")
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/status", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", rec.Code)
	}

	req := httptest.NewRequest("GET", "/api/status", nil)
	req.SetBasicAuth("user", "pass")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("expected 200 with credentials, got %d", rec.Code)
	}
}
