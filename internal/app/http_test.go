package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ipurpose/api/internal/auth"
	"ipurpose/api/internal/forms"
	"ipurpose/api/internal/store"
)

func serve(t *testing.T, server *HTTPServer, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body == "" {
		reader = &bytes.Buffer{}
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v body=%s", err, rr.Body.String())
	}
	return payload
}

func signedInServer(t *testing.T, tier string) (*HTTPServer, *fakeStore, string) {
	t.Helper()
	fs := newFakeStore(testUser(tier))
	svc := newTestService(fs)
	session, err := svc.issueSession(context.Background(), testUser(tier))
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return NewHTTPServer(svc, "*"), fs, session.Token
}

func TestHealthEndpoint(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*")
	rr := serve(t, server, http.MethodGet, "/api/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if decodeResponse(t, rr)["ok"] != true {
		t.Fatalf("expected ok=true, body=%s", rr.Body.String())
	}
}

func TestReadyEndpointReportsDatabase(t *testing.T) {
	fs := newFakeStore()
	server := NewHTTPServer(newTestService(fs), "*")

	rr := serve(t, server, http.MethodGet, "/api/ready", "", "")
	if rr.Code != http.StatusOK || decodeResponse(t, rr)["status"] != "ready" {
		t.Fatalf("expected ready, got %d %s", rr.Code, rr.Body.String())
	}

	fs.pingFn = func(context.Context) error { return errors.New("connection refused") }
	rr = serve(t, server, http.MethodGet, "/api/ready", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	checks := decodeResponse(t, rr)["checks"].(map[string]any)
	if checks["database"].(map[string]any)["status"] != "error" {
		t.Fatalf("unexpected checks %+v", checks)
	}
}

func TestOptionsPreflight(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "http://app.test")
	rr := serve(t, server, http.MethodOptions, "/api/drafts/daily-session", "", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "http://app.test" {
		t.Fatalf("missing CORS origin header: %v", rr.Header())
	}
	if rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("expected credentials to be allowed for a fixed origin")
	}
}

func TestFlushWithoutSessionWritesNothing(t *testing.T) {
	fs := newFakeStore(testUser("free"))
	writes := 0
	fs.mergeDraftFn = func(context.Context, string, string, map[string]string) (store.Draft, error) {
		writes++
		return store.Draft{}, nil
	}
	server := NewHTTPServer(newTestService(fs), "*")

	rr := serve(t, server, http.MethodPost, "/api/drafts/daily-session", `{"intention":"x"}`, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if decodeResponse(t, rr)["code"] != "UNAUTHORIZED" {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}

	rr = serve(t, server, http.MethodPost, "/api/drafts/daily-session", `{"intention":"x"}`, "not-a-jwt")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad token, got %d", rr.Code)
	}
	if writes != 0 {
		t.Fatal("unauthenticated flush must not reach storage")
	}
}

func TestDraftRoundTripOverHTTP(t *testing.T) {
	server, _, token := signedInServer(t, "free")

	rr := serve(t, server, http.MethodGet, "/api/drafts/daily-session", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("load empty draft: %d %s", rr.Code, rr.Body.String())
	}
	if fields := decodeResponse(t, rr)["fields"].(map[string]any); len(fields) != 0 {
		t.Fatalf("expected empty fields, got %+v", fields)
	}

	rr = serve(t, server, http.MethodPost, "/api/drafts/daily-session", `{"intention":"Slow down","mood":"Calm, Focused"}`, token)
	if rr.Code != http.StatusOK {
		t.Fatalf("flush: %d %s", rr.Code, rr.Body.String())
	}
	if decodeResponse(t, rr)["ok"] != true {
		t.Fatalf("expected ok=true, body=%s", rr.Body.String())
	}

	rr = serve(t, server, http.MethodPut, "/api/drafts/daily-session", `{"gratitude":"Morning light"}`, token)
	if rr.Code != http.StatusOK {
		t.Fatalf("second flush: %d %s", rr.Code, rr.Body.String())
	}

	rr = serve(t, server, http.MethodGet, "/api/drafts/daily-session", "", token)
	payload := decodeResponse(t, rr)
	fields := payload["fields"].(map[string]any)
	if fields["intention"] != "Slow down" || fields["gratitude"] != "Morning light" || fields["mood"] != "Calm, Focused" {
		t.Fatalf("merge lost fields: %+v", fields)
	}
	if payload["completion"].(float64) != 50 {
		t.Fatalf("expected 50%% completion, got %v", payload["completion"])
	}
}

func TestFlushErrorsOverHTTP(t *testing.T) {
	server, fs, token := signedInServer(t, "free")

	rr := serve(t, server, http.MethodPost, "/api/drafts/daily-session", `{"intention":`, token)
	if rr.Code != http.StatusBadRequest || decodeResponse(t, rr)["code"] != "INVALID_BODY" {
		t.Fatalf("expected INVALID_BODY, got %d %s", rr.Code, rr.Body.String())
	}

	rr = serve(t, server, http.MethodPost, "/api/drafts/daily-session", `{"nope":"x"}`, token)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	details := decodeResponse(t, rr)["details"].(map[string]any)
	if keys := details["keys"].([]any); len(keys) != 1 || keys[0] != "nope" {
		t.Fatalf("unexpected details %+v", details)
	}

	rr = serve(t, server, http.MethodPost, "/api/drafts/blueprint", `{}`, token)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	payload := decodeResponse(t, rr)
	if payload["code"] != "UPGRADE_REQUIRED" || payload["details"].(map[string]any)["requiredTier"] != "blueprint" {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}

	fs.mergeDraftFn = func(context.Context, string, string, map[string]string) (store.Draft, error) {
		return store.Draft{}, errors.New("timeout")
	}
	rr = serve(t, server, http.MethodPost, "/api/drafts/daily-session", `{"intention":"x"}`, token)
	if rr.Code != http.StatusServiceUnavailable || decodeResponse(t, rr)["code"] != "STORAGE_UNAVAILABLE" {
		t.Fatalf("expected STORAGE_UNAVAILABLE, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestSessionCookieAuthenticates(t *testing.T) {
	server, _, token := signedInServer(t, "starter")

	req := httptest.NewRequest(http.MethodGet, "/api/forms", nil)
	req.AddCookie(auth.SessionCookie(token, time.Now().Add(time.Hour), false))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	payload := decodeResponse(t, rr)
	if payload["tier"] != "starter" || len(payload["forms"].([]any)) != len(forms.All()) {
		t.Fatalf("unexpected forms payload %s", rr.Body.String())
	}
}

func TestSessionReflectsTierChange(t *testing.T) {
	server, fs, token := signedInServer(t, "free")

	rr := serve(t, server, http.MethodGet, "/api/drafts/offers", "", token)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before upgrade, got %d", rr.Code)
	}

	user := fs.users["user-1"]
	user.Tier = "starter"
	fs.users["user-1"] = user

	rr = serve(t, server, http.MethodGet, "/api/drafts/offers", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected upgrade to apply without a new sign-in, got %d", rr.Code)
	}
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	server, _, token := signedInServer(t, "free")

	rr := serve(t, server, http.MethodPost, "/api/session/logout", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("logout: %d", rr.Code)
	}
	cleared := false
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected session cookie to be cleared")
	}

	rr = serve(t, server, http.MethodGet, "/api/forms", "", token)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected revoked token to be rejected, got %d", rr.Code)
	}
}

func TestCheckInOverHTTP(t *testing.T) {
	server, fs, token := signedInServer(t, "free")

	rr := serve(t, server, http.MethodPost, "/api/checkins", `{"emotions":["calm","Focused","calm"],"alignmentScore":8,"need":"rest","type":"daily"}`, token)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rr.Code, rr.Body.String())
	}
	checkIn := decodeResponse(t, rr)["checkIn"].(map[string]any)
	emotions := checkIn["emotions"].([]any)
	if len(emotions) != 2 || emotions[0] != "Calm" || emotions[1] != "Focused" {
		t.Fatalf("expected canonical emotions, got %v", emotions)
	}
	if len(fs.checkIns) != 1 {
		t.Fatalf("expected one stored check-in, got %d", len(fs.checkIns))
	}

	for _, body := range []string{
		`{"emotions":["Calm"],"alignmentScore":11,"type":"daily"}`,
		`{"emotions":["Calm"],"alignmentScore":0,"type":"daily"}`,
		`{"emotions":["Calm"],"type":"daily"}`,
		`{"emotions":["Calm"],"alignmentScore":5,"type":"weekly"}`,
		`{"emotions":["Sleepy"],"alignmentScore":5,"type":"daily"}`,
	} {
		rr = serve(t, server, http.MethodPost, "/api/checkins", body, token)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for %s, got %d", body, rr.Code)
		}
	}
	if len(fs.checkIns) != 1 {
		t.Fatal("rejected check-ins must not be stored")
	}

	rr = serve(t, server, http.MethodGet, "/api/checkins", "", token)
	if list := decodeResponse(t, rr)["checkIns"].([]any); len(list) != 1 {
		t.Fatalf("expected one check-in, got %d", len(list))
	}
}

func TestPracticeSuggestionsOverHTTP(t *testing.T) {
	server, _, token := signedInServer(t, "free")

	rr := serve(t, server, http.MethodGet, "/api/practices/suggest?emotions=Anxious,Tired&score=3", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	if suggestions := decodeResponse(t, rr)["suggestions"].([]any); len(suggestions) == 0 {
		t.Fatal("expected suggestions")
	}

	rr = serve(t, server, http.MethodGet, "/api/practices/suggest?score=abc", "", token)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}

func TestClarityCheckOverHTTP(t *testing.T) {
	server, _, token := signedInServer(t, "free")

	rr := serve(t, server, http.MethodGet, "/api/clarity-check", "", token)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any result, got %d", rr.Code)
	}

	rr = serve(t, server, http.MethodPost, "/api/clarity-check", `{"answers":[1,2,3],"choices":["A"]}`, token)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if problems := decodeResponse(t, rr)["details"].(map[string]any)["problems"].([]any); len(problems) == 0 {
		t.Fatal("expected problems in details")
	}

	body := `{"answers":[3,3,3,3,3,3,3,3,3,3,3,3],"choices":["A","B","A","B","C"]}`
	rr = serve(t, server, http.MethodPost, "/api/clarity-check", body, token)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rr.Code, rr.Body.String())
	}
	result := decodeResponse(t, rr)["result"].(map[string]any)
	if result["identityType"] != "Visionary" {
		t.Fatalf("unexpected identity %v", result["identityType"])
	}

	rr = serve(t, server, http.MethodGet, "/api/clarity-check", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected latest result, got %d", rr.Code)
	}
}

func TestClarityQuestionsArePublic(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*")
	rr := serve(t, server, http.MethodGet, "/api/clarity-check/questions", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestSearchOverHTTP(t *testing.T) {
	server, _, token := signedInServer(t, "free")

	rr := serve(t, server, http.MethodGet, "/api/search?q=%20", "", token)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for blank q, got %d", rr.Code)
	}
	rr = serve(t, server, http.MethodGet, "/api/search?q=rest&type=journal", "", token)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad type, got %d", rr.Code)
	}
	rr = serve(t, server, http.MethodGet, "/api/search?q=rest&limit=ten", "", token)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad limit, got %d", rr.Code)
	}

	rr = serve(t, server, http.MethodGet, "/api/search?q=rest&type=checkin&limit=5", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	search := server.service.search.(*fakeSearch)
	q := search.queries[0]
	if q.UserID != "user-1" || q.Text != "rest" || q.FilterType != "checkin" || q.Limit != 5 {
		t.Fatalf("unexpected query %+v", q)
	}
}

func TestExportOverHTTP(t *testing.T) {
	server, _, token := signedInServer(t, "starter")

	rr := serve(t, server, http.MethodPost, "/api/drafts/offers/export", `{"format":"pdf"}`, token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("unexpected content type %q", rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), `filename="draft.pdf"`) {
		t.Fatalf("unexpected disposition %q", rr.Header().Get("Content-Disposition"))
	}
	if rr.Body.String() != "%PDF" {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
}

func TestVersionsOverHTTP(t *testing.T) {
	server, _, token := signedInServer(t, "blueprint")

	rr := serve(t, server, http.MethodPost, "/api/drafts/offers/versions", `{"name":"v1"}`, token)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rr.Code, rr.Body.String())
	}
	rr = serve(t, server, http.MethodGet, "/api/drafts/offers/versions", "", token)
	if versions := decodeResponse(t, rr)["versions"].([]any); len(versions) != 1 {
		t.Fatalf("expected one version, got %d", len(versions))
	}
	rr = serve(t, server, http.MethodGet, "/api/drafts/offers/versions/deadbee", "", token)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	server, _, token := signedInServer(t, "free")
	rr := serve(t, server, http.MethodGet, "/api/nothing-here", "", token)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
