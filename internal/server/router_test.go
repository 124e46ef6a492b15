package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/staffkit/staff-matcher/internal/roster"
	"github.com/staffkit/staff-matcher/internal/session"
	"github.com/staffkit/staff-matcher/internal/store"
)

func newTestHandler(t *testing.T, token string) http.Handler {
	t.Helper()

	st, err := store.NewSQLiteStore("")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	sess, err := session.New(context.Background(), st, zap.NewNop())
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}

	table := &roster.Table{Items: []*roster.Process{
		{Name: "Sales Support", Potential: roster.PotentialSales, Communication: roster.CommunicationGood, Vacancy: 2},
		{Name: "Customer Service", Potential: roster.PotentialService, Communication: roster.CommunicationVeryGood, Vacancy: 1},
	}}
	if err := sess.InstallTable(table); err != nil {
		t.Fatalf("installing table: %v", err)
	}

	return NewRouter(sess, zap.NewNop(), token, nil).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAddEmployeeEndpoint(t *testing.T) {
	h := newTestHandler(t, "")

	rec := doJSON(t, h, http.MethodPost, "/employees",
		`{"name":"Alice","email":"alice@example.com","potential":"Sales","communication":"Good"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Matched         bool   `json:"matched"`
		Outcome         string `json:"outcome"`
		AssignedProcess string `json:"assigned_process"`
		VacancyLeft     *int   `json:"vacancy_left"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Matched || resp.Outcome != "exact" || resp.AssignedProcess != "Sales Support" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.VacancyLeft == nil || *resp.VacancyLeft != 1 {
		t.Fatalf("expected vacancy_left 1, got %v", resp.VacancyLeft)
	}
}

func TestAddEmployeeInvalidCategoryReturns400(t *testing.T) {
	h := newTestHandler(t, "")

	rec := doJSON(t, h, http.MethodPost, "/employees",
		`{"name":"Eve","email":"eve@example.com","potential":"Marketing","communication":"Good"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAddEmployeeDuplicateEmailReturns409(t *testing.T) {
	h := newTestHandler(t, "")

	body := `{"name":"Alice","email":"alice@example.com","potential":"Sales","communication":"Good"}`
	if rec := doJSON(t, h, http.MethodPost, "/employees", body); rec.Code != http.StatusOK {
		t.Fatalf("first add failed: %d %s", rec.Code, rec.Body.String())
	}

	dup := `{"name":"Other","email":"ALICE@example.com","potential":"Sales","communication":"Good"}`
	if rec := doJSON(t, h, http.MethodPost, "/employees", dup); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestAddEmployeeNoMatchIsNotAnError(t *testing.T) {
	h := newTestHandler(t, "")

	rec := doJSON(t, h, http.MethodPost, "/employees",
		`{"name":"Bob","email":"bob@example.com","potential":"Consultation","communication":"Excellent"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Matched  bool `json:"matched"`
		Recorded bool `json:"recorded"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Matched || resp.Recorded {
		t.Fatalf("expected unmatched unrecorded result, got %+v", resp)
	}
}

func TestProcessesFilterQuery(t *testing.T) {
	h := newTestHandler(t, "")

	rec := doJSON(t, h, http.MethodGet, "/processes?potential=Sales&vacant=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Processes []struct {
			Name string `json:"name"`
		} `json:"processes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Processes) != 1 || resp.Processes[0].Name != "Sales Support" {
		t.Fatalf("unexpected processes: %+v", resp.Processes)
	}

	if rec := doJSON(t, h, http.MethodGet, "/processes?potential=Marketing", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid filter, got %d", rec.Code)
	}
}

func TestDeleteEmployeeEndpoint(t *testing.T) {
	h := newTestHandler(t, "")

	body := `{"name":"Alice","email":"alice@example.com","potential":"Sales","communication":"Good"}`
	if rec := doJSON(t, h, http.MethodPost, "/employees", body); rec.Code != http.StatusOK {
		t.Fatalf("add failed: %d", rec.Code)
	}

	if rec := doJSON(t, h, http.MethodDelete, "/employees/alice@example.com", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, h, http.MethodDelete, "/employees/alice@example.com", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestSuggestionsEndpoint(t *testing.T) {
	h := newTestHandler(t, "")

	rec := doJSON(t, h, http.MethodGet, "/suggestions?potential=Sales&communication=Excellent", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Suggestions []json.RawMessage `json:"suggestions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(resp.Suggestions))
	}
}

func TestExportEndpoint(t *testing.T) {
	h := newTestHandler(t, "")

	rec := doJSON(t, h, http.MethodGet, "/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "process_data.csv") {
		t.Fatalf("missing attachment header: %q", rec.Header().Get("Content-Disposition"))
	}
	if !strings.HasPrefix(rec.Body.String(), "Process_Name,Potential,Communication,Vacancy") {
		t.Fatalf("unexpected CSV header: %q", rec.Body.String())
	}
}

func TestTokenAuth(t *testing.T) {
	h := newTestHandler(t, "sekret")

	if rec := doJSON(t, h, http.MethodGet, "/processes", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/processes", nil)
	req.Header.Set("Authorization", "Bearer sekret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid category", &roster.InvalidCategoryError{Field: "potential", Value: "X"}, http.StatusBadRequest},
		{"duplicate email", store.ErrDuplicateEmail, http.StatusConflict},
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"no vacancy", store.ErrNoVacancy, http.StatusConflict},
		{"no table", session.ErrNoTable, http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := statusForError(tc.err); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}
