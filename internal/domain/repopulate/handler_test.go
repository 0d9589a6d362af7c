package repopulate

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/repopulate/internal/platform/auth"
	"github.com/ehr/repopulate/internal/platform/fhir"
)

func newTestAPI(roles ...string) (*echo.Echo, *Service) {
	e := echo.New()
	svc := newTestService()
	withUser := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithUser(c.Request().Context(), "user-1", roles)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
	NewHandler(svc).RegisterRoutes(e.Group("/api/v1", withUser))
	return e, svc
}

func doRequest(e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func createBody() map[string]any {
	return map[string]any{
		"questionnaire":   testQuestionnaire(),
		"currentResponse": testResponse(70, "Ann", "Asthma", "Eczema"),
		"serverResponse":  testResponse(72.5, "Ann", "Asthma", "Gout"),
	}
}

func createViaAPI(t *testing.T, e *echo.Echo) SessionSummary {
	t.Helper()
	rec := doRequest(e, http.MethodPost, "/api/v1/repopulate/sessions", createBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary SessionSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	return summary
}

func decodeOutcome(t *testing.T, rec *httptest.ResponseRecorder) fhir.OperationOutcome {
	t.Helper()
	var outcome fhir.OperationOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("expected OperationOutcome, got %s", rec.Body.String())
	}
	if outcome.ResourceType != "OperationOutcome" || len(outcome.Issue) == 0 {
		t.Fatalf("expected OperationOutcome, got %s", rec.Body.String())
	}
	return outcome
}

func TestHandler_CreateSession(t *testing.T) {
	e, _ := newTestAPI("clinician")

	summary := createViaAPI(t, e)

	if summary.ID == uuid.Nil || summary.Status != SessionOpen {
		t.Errorf("unexpected summary %+v", summary)
	}
	if summary.CreatedBy != "user-1" {
		t.Errorf("expected creator from context, got %q", summary.CreatedBy)
	}
	if summary.Selectable != 2 || summary.Selected != 2 {
		t.Errorf("expected 2 of 2 selected, got %d of %d", summary.Selected, summary.Selectable)
	}
}

func TestHandler_CreateSessionInvalid(t *testing.T) {
	e, _ := newTestAPI("clinician")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing server response", map[string]any{"questionnaire": testQuestionnaire()}},
		{"wrong resource type", map[string]any{
			"questionnaire":  map[string]any{"resourceType": "Patient"},
			"serverResponse": testResponse(1, "x"),
		}},
		{"bad current response", map[string]any{
			"questionnaire":   testQuestionnaire(),
			"currentResponse": map[string]any{"resourceType": "Observation"},
			"serverResponse":  testResponse(1, "x"),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(e, http.MethodPost, "/api/v1/repopulate/sessions", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if outcome := decodeOutcome(t, rec); outcome.Issue[0].Code != "invalid" {
				t.Errorf("expected invalid issue, got %+v", outcome.Issue[0])
			}
		})
	}
}

func TestHandler_ViewerCannotWrite(t *testing.T) {
	e, _ := newTestAPI("viewer")

	rec := doRequest(e, http.MethodPost, "/api/v1/repopulate/sessions", createBody())
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	rec = doRequest(e, http.MethodGet, "/api/v1/repopulate/sessions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected viewer to list sessions, got %d", rec.Code)
	}
}

func TestHandler_GetSession(t *testing.T) {
	e, _ := newTestAPI("clinician")
	summary := createViaAPI(t, e)

	rec := doRequest(e, http.MethodGet, "/api/v1/repopulate/sessions/"+summary.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(e, http.MethodGet, "/api/v1/repopulate/sessions/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if outcome := decodeOutcome(t, rec); outcome.Issue[0].Code != "not-found" {
		t.Errorf("expected not-found issue, got %+v", outcome.Issue[0])
	}

	rec = doRequest(e, http.MethodGet, "/api/v1/repopulate/sessions/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_ListSessions(t *testing.T) {
	e, _ := newTestAPI("clinician")
	createViaAPI(t, e)
	createViaAPI(t, e)

	rec := doRequest(e, http.MethodGet, "/api/v1/repopulate/sessions?_count=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var page struct {
		Data    []SessionSummary `json:"data"`
		Total   int              `json:"total"`
		HasMore bool             `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("failed to decode page: %v", err)
	}
	if len(page.Data) != 1 || page.Total != 2 || !page.HasMore {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestHandler_ToggleAndChanges(t *testing.T) {
	e, _ := newTestAPI("clinician")
	summary := createViaAPI(t, e)
	base := "/api/v1/repopulate/sessions/" + summary.ID.String()

	rec := doRequest(e, http.MethodPost, base+"/toggle", map[string]int{"heading": 0, "parent": 0})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view SelectionView
	_ = json.Unmarshal(rec.Body.Bytes(), &view)
	if !view.Changed || len(view.Selected) != 1 {
		t.Fatalf("unexpected selection %+v", view)
	}

	rec = doRequest(e, http.MethodPost, base+"/toggle", map[string]int{"parent": 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without heading, got %d", rec.Code)
	}
	rec = doRequest(e, http.MethodPost, base+"/toggle", map[string]int{"heading": 0, "parent": 0, "child": -1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative child, got %d", rec.Code)
	}

	rec = doRequest(e, http.MethodGet, base+"/changes", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var changes ChangesView
	if err := json.Unmarshal(rec.Body.Bytes(), &changes); err != nil {
		t.Fatalf("failed to decode changes: %v", err)
	}
	if changes.Headings[0].Items[0].State != Unchecked {
		t.Errorf("expected weight unchecked, got %s", changes.Headings[0].Items[0].State)
	}
}

func TestHandler_CommitNothingSelected(t *testing.T) {
	e, _ := newTestAPI("clinician")
	summary := createViaAPI(t, e)
	base := "/api/v1/repopulate/sessions/" + summary.ID.String()

	if rec := doRequest(e, http.MethodPost, base+"/unselect-all", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec := doRequest(e, http.MethodPost, base+"/commit", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	outcome := decodeOutcome(t, rec)
	if outcome.Issue[0].Severity != "warning" || outcome.Issue[0].Code != "business-rule" {
		t.Errorf("unexpected issue %+v", outcome.Issue[0])
	}
}

func TestHandler_Commit(t *testing.T) {
	e, _ := newTestAPI("clinician")
	summary := createViaAPI(t, e)
	base := "/api/v1/repopulate/sessions/" + summary.ID.String()

	if rec := doRequest(e, http.MethodPost, base+"/select-all", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec := doRequest(e, http.MethodPost, base+"/commit", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	merged, err := fhir.ParseQuestionnaireResponse(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("expected QuestionnaireResponse: %v", err)
	}
	if got := conditionValues(merged.Item[1].Item); !equalStrings(got, []string{"Asthma", "Gout"}) {
		t.Errorf("unexpected conditions %v", got)
	}

	rec = doRequest(e, http.MethodPost, base+"/commit", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second commit, got %d", rec.Code)
	}
	if outcome := decodeOutcome(t, rec); !strings.Contains(outcome.Issue[0].Diagnostics, "committed") {
		t.Errorf("unexpected diagnostics %q", outcome.Issue[0].Diagnostics)
	}
}

func TestHandler_DeleteSession(t *testing.T) {
	e, _ := newTestAPI("admin")
	summary := createViaAPI(t, e)
	path := "/api/v1/repopulate/sessions/" + summary.ID.String()

	if rec := doRequest(e, http.MethodDelete, path, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := doRequest(e, http.MethodDelete, path, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
