package adapthttp_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	adapthttp "mindtrack/internal/adapter/http"
	"mindtrack/internal/adapter/memory"
	"mindtrack/internal/app"
)

// ---------------------------------------------------------------------------
// Test-server helper
// ---------------------------------------------------------------------------

func newServices(db *memory.DB) adapthttp.Services {
	cache := memory.NewCache()
	game := app.NewGamificationService(db, db, db, db, db, cache, nil)
	checkins := app.NewCheckInService(cache, nil, db, game, nil, nil)
	return adapthttp.Services{
		Auth:     app.NewAuthService(db, db, db, nil),
		CheckIns: checkins,
		Stats:    app.NewStatsService(checkins, nil, time.Second, nil),
		Game:     game,
		Profiles: app.NewProfileService(db, nil),
		Activity: app.NewActivityService(db, cache, game, nil),
	}
}

func newTestServer(t *testing.T, opts adapthttp.Options, withAuth bool) *httptest.Server {
	t.Helper()

	webDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(webDir, "index.html"), []byte("<html></html>"), 0o600); err != nil {
		t.Fatal(err)
	}
	opts.WebDir = webDir
	if opts.AllowedOrigins == nil {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.RateLimitRPS == 0 {
		opts.RateLimitRPS, opts.RateLimitBurst = 1000, 1000
	}

	srv := adapthttp.New(newServices(memory.New()), opts, nil)
	if !withAuth {
		srv = srv.WithoutAuth()
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return m
}

func do(t *testing.T, c *http.Client, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c == nil {
		c = http.DefaultClient
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func ratings(v int) map[string]any {
	return map[string]any{
		"mood": v, "stressManagement": v, "energy": v, "motivation": v,
		"confidence": v, "focus": v, "recovery": v, "sleepQuality": v,
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, adapthttp.Options{}, false)

	resp := do(t, nil, http.MethodGet, ts.URL+"/api/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Cache-Control") != "no-store" {
		t.Errorf("expected no-store, got %q", resp.Header.Get("Cache-Control"))
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
	if body := decodeBody(t, resp); body["ok"] != true {
		t.Fatalf("expected ok=true, got %v", body["ok"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, adapthttp.Options{}, false)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/api/checkins"},
		{http.MethodPost, "/api/checkins/today"},
		{http.MethodPost, "/api/tasks"},
		{http.MethodGet, "/api/tasks/complete"},
		{http.MethodGet, "/api/achievements/unlock"},
		{http.MethodPost, "/api/progress"},
		{http.MethodPut, "/api/profile"},
		{http.MethodPost, "/api/stats/summary"},
		{http.MethodGet, "/api/exercises/complete"},
		{http.MethodGet, "/api/views"},
		{http.MethodGet, "/api/auth/login"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			resp := do(t, nil, tc.method, ts.URL+tc.path, nil)
			if resp.StatusCode != http.StatusMethodNotAllowed {
				t.Fatalf("expected 405, got %d", resp.StatusCode)
			}
		})
	}
}

func TestCheckInSubmitAndToday(t *testing.T) {
	ts := newTestServer(t, adapthttp.Options{}, false)

	resp := do(t, nil, http.MethodPost, ts.URL+"/api/checkins", ratings(7))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["state"] != "submitted" {
		t.Errorf("expected submitted, got %v", body["state"])
	}
	if body["xpAwarded"] != float64(20) {
		t.Errorf("expected 20 xp, got %v", body["xpAwarded"])
	}
	ci := body["checkIn"].(map[string]any)
	if ci["trainingLoad"] != "none" || ci["preCompetition"] != false {
		t.Errorf("expected defaults, got %v", ci)
	}

	resp = do(t, nil, http.MethodPost, ts.URL+"/api/checkins", ratings(8))
	if body := decodeBody(t, resp); body["state"] != "edited" || body["xpAwarded"] != float64(0) {
		t.Errorf("expected edited with no xp, got %v", body)
	}

	resp = do(t, nil, http.MethodGet, ts.URL+"/api/checkins/today", nil)
	today := decodeBody(t, resp)
	if today["state"] != "edited" {
		t.Errorf("expected edited, got %v", today["state"])
	}

	resp = do(t, nil, http.MethodGet, ts.URL+"/api/checkins?days=7", nil)
	items := decodeBody(t, resp)["items"].([]any)
	if len(items) != 1 {
		t.Errorf("expected 1 check-in, got %d", len(items))
	}

	resp = do(t, nil, http.MethodGet, ts.URL+"/api/progress", nil)
	if p := decodeBody(t, resp); p["xp"] != float64(20) {
		t.Errorf("expected 20 xp in progress, got %v", p)
	}
}

func TestCheckInSchemaRejects(t *testing.T) {
	ts := newTestServer(t, adapthttp.Options{}, false)

	bad := ratings(7)
	bad["mood"] = 11
	resp := do(t, nil, http.MethodPost, ts.URL+"/api/checkins", bad)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["field"] != "mood" {
		t.Errorf("expected field mood, got %v", body["field"])
	}

	extra := ratings(7)
	extra["soreness"] = 3
	if resp := do(t, nil, http.MethodPost, ts.URL+"/api/checkins", extra); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown field, got %d", resp.StatusCode)
	}

	missing := ratings(7)
	delete(missing, "focus")
	if resp := do(t, nil, http.MethodPost, ts.URL+"/api/checkins", missing); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing rating, got %d", resp.StatusCode)
	}

	future := ratings(7)
	future["date"] = time.Now().AddDate(0, 0, 2).Format("2006-01-02")
	resp = do(t, nil, http.MethodPost, ts.URL+"/api/checkins", future)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for future date, got %d", resp.StatusCode)
	}
}

func TestCheckInNoteIsSanitised(t *testing.T) {
	ts := newTestServer(t, adapthttp.Options{}, false)

	in := ratings(6)
	in["note"] = "<script>alert(1)</script><b>tired</b> & sore"
	resp := do(t, nil, http.MethodPost, ts.URL+"/api/checkins", in)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	ci := decodeBody(t, resp)["checkIn"].(map[string]any)
	if ci["note"] != "tired & sore" {
		t.Errorf("unexpected note %q", ci["note"])
	}
}

func TestCheckInNoteLengthCountsSanitisedText(t *testing.T) {
	ts := newTestServer(t, adapthttp.Options{}, false)

	in := ratings(6)
	in["note"] = `<span class="x">` + string(bytes.Repeat([]byte("a"), 480)) + "</span>" + string(bytes.Repeat([]byte("<br>"), 20))
	resp := do(t, nil, http.MethodPost, ts.URL+"/api/checkins", in)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for a note under the limit once sanitised, got %d", resp.StatusCode)
	}

	in["note"] = string(bytes.Repeat([]byte("a"), 501))
	resp = do(t, nil, http.MethodPost, ts.URL+"/api/checkins", in)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a long note, got %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["field"] != "note" {
		t.Errorf("expected field note, got %v", body)
	}
}

func TestStatsEndpoints(t *testing.T) {
	ts := newTestServer(t, adapthttp.Options{}, false)

	resp := do(t, nil, http.MethodGet, ts.URL+"/api/stats/summary?days=7", nil)
	body := decodeBody(t, resp)
	if body["fallback"] != false || body["records"] != float64(0) || body["days"] != float64(7) {
		t.Errorf("unexpected empty summary %v", body)
	}

	do(t, nil, http.MethodPost, ts.URL+"/api/checkins", ratings(5))
	resp = do(t, nil, http.MethodGet, ts.URL+"/api/stats/daily?days=3", nil)
	points := decodeBody(t, resp)["items"].([]any)
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	last := points[2].(map[string]any)
	if last["moodAvg7"] != float64(5) {
		t.Errorf("expected moodAvg7=5, got %v", last["moodAvg7"])
	}
}

func TestProfileEndpoints(t *testing.T) {
	ts := newTestServer(t, adapthttp.Options{}, false)

	if resp := do(t, nil, http.MethodGet, ts.URL+"/api/profile", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before creation, got %d", resp.StatusCode)
	}

	resp := do(t, nil, http.MethodPost, ts.URL+"/api/profile", map[string]any{
		"username": "alpha", "about": "<i>sprinter</i>",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if p := decodeBody(t, resp); p["username"] != "alpha" || p["about"] != "sprinter" {
		t.Errorf("unexpected profile %v", p)
	}

	resp = do(t, nil, http.MethodPost, ts.URL+"/api/profile", map[string]any{"username": "beta"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409, got %d", resp.StatusCode)
	}

	resp = do(t, nil, http.MethodGet, ts.URL+"/api/profile/username-available?username=alpha", nil)
	if body := decodeBody(t, resp); body["available"] != true {
		t.Errorf("own username should be available to self, got %v", body)
	}
	resp = do(t, nil, http.MethodGet, ts.URL+"/api/profile/username-available?username=x", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed username, got %d", resp.StatusCode)
	}
}

func TestGamificationEndpoints(t *testing.T) {
	ts := newTestServer(t, adapthttp.Options{}, false)

	resp := do(t, nil, http.MethodPost, ts.URL+"/api/exercises/complete", map[string]any{"exerciseId": "box_breathing"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	unlocked := decodeBody(t, resp)["unlocked"].([]any)
	if len(unlocked) != 1 {
		t.Errorf("expected exercise_1 unlock, got %v", unlocked)
	}

	resp = do(t, nil, http.MethodPost, ts.URL+"/api/tasks/complete", map[string]any{"taskId": "breathing"})
	if body := decodeBody(t, resp); body["awarded"] != false {
		t.Errorf("breathing task should already be done, got %v", body)
	}

	resp = do(t, nil, http.MethodPost, ts.URL+"/api/achievements/unlock", map[string]any{"achievementId": "streak_30"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unearned achievement, got %d", resp.StatusCode)
	}

	resp = do(t, nil, http.MethodGet, ts.URL+"/api/achievements", nil)
	items := decodeBody(t, resp)["items"].([]any)
	if len(items) != 10 {
		t.Errorf("expected full catalog, got %d", len(items))
	}

	resp = do(t, nil, http.MethodPost, ts.URL+"/api/views", map[string]any{"kind": "education", "resourceId": "focus-101"})
	if body := decodeBody(t, resp); body["new"] != true {
		t.Errorf("expected new view, got %v", body)
	}

	resp = do(t, nil, http.MethodGet, ts.URL+"/api/tasks", nil)
	tasks := decodeBody(t, resp)["items"].([]any)
	done := 0
	for _, it := range tasks {
		if it.(map[string]any)["done"] == true {
			done++
		}
	}
	if done != 2 {
		t.Errorf("expected breathing and learn done, got %d", done)
	}

	resp = do(t, nil, http.MethodGet, ts.URL+"/api/progress", nil)
	if p := decodeBody(t, resp); p["xp"] != float64(15+10+10+15) {
		t.Errorf("unexpected progress %v", p)
	}
}

func TestUnauthenticated(t *testing.T) {
	ts := newTestServer(t, adapthttp.Options{}, true)

	resp := do(t, nil, http.MethodGet, ts.URL+"/api/progress", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["error"] != "not authenticated" {
		t.Errorf("unexpected body %v", body)
	}

	if resp := do(t, nil, http.MethodGet, ts.URL+"/api/health", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("health should be public, got %d", resp.StatusCode)
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	ts := newTestServer(t, adapthttp.Options{}, true)
	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}

	creds := map[string]any{"email": "runner@example.com", "password": "correct-horse"}
	resp := do(t, client, http.MethodPost, ts.URL+"/api/auth/register", creds)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	resp = do(t, client, http.MethodGet, ts.URL+"/api/profile", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected provisioned profile, got %d", resp.StatusCode)
	}

	if resp := do(t, nil, http.MethodPost, ts.URL+"/api/auth/register", creds); resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate email, got %d", resp.StatusCode)
	}

	do(t, client, http.MethodPost, ts.URL+"/api/auth/logout", nil)
	if resp := do(t, client, http.MethodGet, ts.URL+"/api/profile", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}

	bad := map[string]any{"email": "runner@example.com", "password": "wrong-horse"}
	if resp := do(t, nil, http.MethodPost, ts.URL+"/api/auth/login", bad); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}

	resp = do(t, nil, http.MethodPost, ts.URL+"/api/auth/login", creds)
	token, _ := decodeBody(t, resp)["token"].(string)
	if token == "" {
		t.Fatal("expected a token from login")
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/progress", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	bearer, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer bearer.Body.Close() //nolint:errcheck
	if bearer.StatusCode != http.StatusOK {
		t.Errorf("expected bearer token to authenticate, got %d", bearer.StatusCode)
	}
}

func TestForwardAuthHeader(t *testing.T) {
	ts := newTestServer(t, adapthttp.Options{TrustForwardAuth: true}, true)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/profile", nil)
	req.Header.Set("Remote-User", "proxy-user")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 via Remote-User, got %d", resp.StatusCode)
	}
}

func TestForwardAuthHeaderIgnoredUnlessTrusted(t *testing.T) {
	ts := newTestServer(t, adapthttp.Options{}, true)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/tasks/complete", bytes.NewBufferString(`{"taskId":"breathing"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Remote-User", "victim@example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for untrusted Remote-User, got %d", resp.StatusCode)
	}
}

func TestMetricsBasicAuth(t *testing.T) {
	ts := newTestServer(t, adapthttp.Options{MetricsUser: "prom", MetricsPass: "secret"}, false)

	if resp := do(t, nil, http.MethodGet, ts.URL+"/metrics", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without credentials, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/metrics", nil)
	req.SetBasicAuth("prom", "secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with credentials, got %d", resp.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, adapthttp.Options{RateLimitRPS: 0.001, RateLimitBurst: 2}, false)

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, do(t, nil, http.MethodGet, ts.URL+"/api/health", nil).StatusCode)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("unexpected status sequence %v", codes)
	}
}

func TestSPAFallback(t *testing.T) {
	ts := newTestServer(t, adapthttp.Options{}, false)

	resp := do(t, nil, http.MethodGet, ts.URL+"/some/client/route", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected index fallback, got %d", resp.StatusCode)
	}
}
