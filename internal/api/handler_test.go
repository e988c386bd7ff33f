package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/insightdelivered/statement-review/internal/logger"
	"github.com/insightdelivered/statement-review/internal/models"
	"github.com/insightdelivered/statement-review/internal/store"
)

func setupTestApp() (*fiber.App, *Handler) {
	log := logger.NewWithWriter(io.Discard)
	saver := store.NewSaver(5*time.Millisecond, func(string) error { return nil }, log)
	h := NewHandler(store.NewManager(log), saver, log)

	app := fiber.New()
	h.Register(app)
	return app, h
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(data)
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var req = httptest.NewRequest(method, path, nil)
	if body != nil {
		req = httptest.NewRequest(method, path, jsonBody(t, body))
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("failed to decode %s %s response: %v\n%s", method, path, err, data)
		}
	}
	return resp.StatusCode, out
}

func createSession(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, body := doJSON(t, app, "POST", "/api/sessions", nil)
	if status != fiber.StatusCreated {
		t.Fatalf("create session: status %d", status)
	}
	id, _ := body["session_id"].(string)
	if id == "" {
		t.Fatalf("no session id in %v", body)
	}
	return id
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := setupTestApp()

	status, body := doJSON(t, app, "GET", "/api/health", nil)
	if status != fiber.StatusOK {
		t.Errorf("expected 200, got %d", status)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", body["status"])
	}
	if body["engine"] != "fiber" {
		t.Errorf("expected engine=fiber, got %q", body["engine"])
	}
}

func TestSessionNotFound(t *testing.T) {
	app, _ := setupTestApp()

	status, _ := doJSON(t, app, "GET", "/api/sessions/nope/pages/1/rows", nil)
	if status != fiber.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
}

func TestGuideLifecycle(t *testing.T) {
	app, _ := setupTestApp()
	id := createSession(t, app)
	base := "/api/sessions/" + id + "/pages/1"

	status, body := doJSON(t, app, "POST", base+"/guides", GuideRequest{Position: 0.5})
	if status != fiber.StatusOK {
		t.Fatalf("add guide: status %d", status)
	}
	if body["applied"] != true {
		t.Errorf("expected applied=true, got %v", body["applied"])
	}

	// Within epsilon of the existing line.
	_, body = doJSON(t, app, "POST", base+"/guides", GuideRequest{Position: 0.503})
	if body["applied"] != false {
		t.Errorf("duplicate guide should not apply, got %v", body["applied"])
	}

	_, body = doJSON(t, app, "POST", base+"/guides/undo", nil)
	if body["applied"] != true {
		t.Errorf("undo should apply, got %v", body["applied"])
	}
	if lines, _ := body["horizontal"].([]interface{}); len(lines) != 0 {
		t.Errorf("after undo: %v", lines)
	}

	_, body = doJSON(t, app, "POST", base+"/guides/redo", nil)
	if body["applied"] != true {
		t.Errorf("redo should apply, got %v", body["applied"])
	}
	if lines, _ := body["horizontal"].([]interface{}); len(lines) != 1 {
		t.Errorf("after redo: %v", lines)
	}
}

func TestStateRoundTrip(t *testing.T) {
	app, _ := setupTestApp()
	id := createSession(t, app)
	base := "/api/sessions/" + id + "/pages/1"

	payload := models.GuidePayload{
		ColumnLayout: []models.ColumnPayload{
			{Key: models.RoleBalance, Width: 0.2},
			{Key: models.RoleDate, Width: 0.2},
			{Key: models.RoleDescription, Width: 0.2},
			{Key: models.RoleDebit, Width: 0.2},
			{Key: models.RoleCredit, Width: 0.2},
		},
		Horizontal: []float64{0.25, 0.75},
	}

	status, _ := doJSON(t, app, "PUT", base+"/state", payload)
	if status != fiber.StatusOK {
		t.Fatalf("put state: status %d", status)
	}

	_, body := doJSON(t, app, "GET", base+"/state", nil)
	cols, _ := body["column_layout"].([]interface{})
	if len(cols) != 5 {
		t.Fatalf("columns: %v", body["column_layout"])
	}
	first, _ := cols[0].(map[string]interface{})
	if first["key"] != "balance" {
		t.Errorf("column order lost: first is %v", first["key"])
	}
	if lines, _ := body["horizontal"].([]interface{}); len(lines) != 2 {
		t.Errorf("horizontal: %v", lines)
	}
}

func TestLayoutEndpoint(t *testing.T) {
	app, _ := setupTestApp()
	id := createSession(t, app)
	base := "/api/sessions/" + id + "/pages/1"

	_, body := doJSON(t, app, "PUT", base+"/layout", LayoutRequest{
		Reorder: &ReorderSpec{Source: models.RoleBalance, Target: models.RoleDate},
	})
	if body["applied"] != true {
		t.Fatalf("reorder should apply: %v", body)
	}
	cols, _ := body["column_layout"].([]interface{})
	first, _ := cols[0].(map[string]interface{})
	if first["key"] != "balance" {
		t.Errorf("reorder not reflected: %v", first["key"])
	}

	// A resize that would push a column below the floor is rejected.
	_, body = doJSON(t, app, "PUT", base+"/layout", LayoutRequest{
		Resize: &ResizeSpec{Index: 0, Delta: 0.5},
	})
	if body["applied"] != false {
		t.Errorf("floor-violating resize should not apply: %v", body)
	}

	// Widths and guides agree on a fresh layout, so a sync applies cleanly.
	_, body = doJSON(t, app, "PUT", base+"/layout", LayoutRequest{Sync: true})
	if body["applied"] != true {
		t.Errorf("sync should apply: %v", body)
	}

	status, _ := doJSON(t, app, "PUT", base+"/layout", LayoutRequest{})
	if status != fiber.StatusBadRequest {
		t.Errorf("empty layout request: status %d", status)
	}
}

func TestSectionsEndpoint(t *testing.T) {
	app, _ := setupTestApp()
	id := createSession(t, app)
	base := "/api/sessions/" + id + "/pages/1"

	// Five columns, no horizontal guides: one band of five sections.
	_, body := doJSON(t, app, "GET", base+"/sections", nil)
	sections, _ := body["sections"].([]interface{})
	if len(sections) != 5 {
		t.Fatalf("expected 5 sections, got %d", len(sections))
	}

	doJSON(t, app, "POST", base+"/guides", GuideRequest{Position: 0.5})

	_, body = doJSON(t, app, "GET", base+"/sections", nil)
	sections, _ = body["sections"].([]interface{})
	if len(sections) != 10 {
		t.Fatalf("expected 10 sections after adding a row guide, got %d", len(sections))
	}
	first, _ := sections[0].(map[string]interface{})
	if x2, _ := first["x2"].(float64); x2 != 0.16 {
		t.Errorf("first section should end at the date column boundary, got %v", first)
	}
}

func reconstructFixture() []models.OcrFragment {
	rows := []struct {
		y    float64
		date string
		desc string
		bal  string
	}{
		{0.20, "01/15/2024", "COFFEE", "995.50"},
		{0.30, "01/16/2024", "GROCERY", "940.00"},
		{0.40, "01/17/2024", "PAYROLL", "3,440.00"},
	}
	var out []models.OcrFragment
	for _, r := range rows {
		out = append(out,
			models.OcrFragment{Box: models.NormalizedBox{X1: 0.02, Y1: r.y, X2: 0.12, Y2: r.y + 0.02}, Text: r.date},
			models.OcrFragment{Box: models.NormalizedBox{X1: 0.25, Y1: r.y, X2: 0.45, Y2: r.y + 0.02}, Text: r.desc},
			models.OcrFragment{Box: models.NormalizedBox{X1: 0.80, Y1: r.y, X2: 0.92, Y2: r.y + 0.02}, Text: r.bal},
		)
	}
	return out
}

func TestReconstructAndSummary(t *testing.T) {
	app, _ := setupTestApp()
	id := createSession(t, app)
	base := "/api/sessions/" + id + "/pages/1"

	status, body := doJSON(t, app, "POST", base+"/reconstruct", ReconstructRequest{
		Fragments: reconstructFixture(),
	})
	if status != fiber.StatusOK {
		t.Fatalf("reconstruct: status %d: %v", status, body)
	}
	rows, _ := body["rows"].([]interface{})
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3: %v", len(rows), body)
	}
	quality, _ := body["quality"].(map[string]interface{})
	if quality["passes"] != true {
		t.Errorf("quality should pass: %v", quality)
	}

	// Rows are readable back.
	_, body = doJSON(t, app, "GET", base+"/rows", nil)
	if rows, _ := body["rows"].([]interface{}); len(rows) != 3 {
		t.Errorf("stored rows: %v", body)
	}

	// Summary spans the whole session.
	_, body = doJSON(t, app, "GET", "/api/sessions/"+id+"/summary", nil)
	if body["total_transactions"] != float64(3) {
		t.Errorf("summary total: %v", body["total_transactions"])
	}
	if body["adb"] == float64(0) {
		t.Errorf("summary ADB missing: %v", body)
	}
}

func TestPutRows(t *testing.T) {
	app, _ := setupTestApp()
	id := createSession(t, app)
	base := "/api/sessions/" + id + "/pages/1"

	edited := []models.TransactionRow{
		{RowID: "001", Page: "1", Date: "2024-01-15", Description: "FIXED BY REVIEWER", Balance: "100.00"},
	}
	status, body := doJSON(t, app, "PUT", base+"/rows", RowsUpdate{Rows: edited})
	if status != fiber.StatusOK {
		t.Fatalf("put rows: status %d", status)
	}
	rows, _ := body["rows"].([]interface{})
	if len(rows) != 1 {
		t.Fatalf("rows: %v", body)
	}
	row, _ := rows[0].(map[string]interface{})
	if row["description"] != "FIXED BY REVIEWER" {
		t.Errorf("edit lost: %v", row)
	}
}

func TestExportCSV(t *testing.T) {
	app, _ := setupTestApp()
	id := createSession(t, app)
	base := "/api/sessions/" + id + "/pages/1"

	doJSON(t, app, "POST", base+"/reconstruct", ReconstructRequest{Fragments: reconstructFixture()})

	req := httptest.NewRequest("GET", "/api/sessions/"+id+"/export", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("export: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type: %q", ct)
	}
	data, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(data, []byte("Date,Description,Debit,Credit,Balance")) {
		t.Errorf("CSV header missing:\n%s", data)
	}
	if !bytes.Contains(data, []byte("COFFEE")) {
		t.Errorf("row data missing:\n%s", data)
	}
}

func TestCreateSessionRequiresNoFile(t *testing.T) {
	app, _ := setupTestApp()

	status, body := doJSON(t, app, "POST", "/api/sessions", nil)
	if status != fiber.StatusCreated {
		t.Fatalf("status %d", status)
	}
	if pages, _ := body["pages"].([]interface{}); len(pages) != 0 {
		t.Errorf("empty session should have no pages: %v", body["pages"])
	}
}
