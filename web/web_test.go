package web

import (
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/unitcalc/pkg/stdlib"
	"github.com/lemonberrylabs/unitcalc/pkg/store"
)

func setupTestApp(t *testing.T) (*fiber.App, *store.Session) {
	t.Helper()
	s, err := store.New(stdlib.NewRegistry(), store.Options{HistorySize: 10, Logger: log.New(io.Discard)})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	h := New(s)
	app := fiber.New()
	h.Register(app)
	return app, s
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestDashboardEmpty(t *testing.T) {
	app, _ := setupTestApp(t)

	status, html := get(t, app, "/ui")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, html)
	}
	for _, want := range []string{"Calculator", "unitcalc", "No expressions evaluated yet"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestDashboardEvaluate(t *testing.T) {
	app, s := setupTestApp(t)

	status, html := get(t, app, "/ui?q="+url.QueryEscape("1 km + 1 m"))
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(html, "1001 m") {
		t.Error("expected result in response")
	}
	if !strings.Contains(html, "Interpreting input as") {
		t.Error("expected canonical form in response")
	}
	if len(s.History()) != 1 {
		t.Errorf("evaluation should be recorded, history = %v", s.History())
	}
}

func TestDashboardHistorySurvivesLaterRequests(t *testing.T) {
	app, s := setupTestApp(t)

	get(t, app, "/ui?q="+url.QueryEscape("1 km + 1 m"))
	get(t, app, "/ui?q="+url.QueryEscape("2 mi : ft"))
	get(t, app, "/ui/units/kg")

	history := s.History()
	if len(history) != 2 {
		t.Fatalf("history = %v, want 2 entries", history)
	}
	if history[0].Input != "1 km + 1 m" || history[0].Result != "1001 m" {
		t.Errorf("history[0] = %+v, want 1 km + 1 m = 1001 m", history[0])
	}
	if history[1].Input != "2 mi : ft" || history[1].Result != "10560 ft" {
		t.Errorf("history[1] = %+v, want 2 mi : ft = 10560 ft", history[1])
	}
}

func TestDashboardError(t *testing.T) {
	app, _ := setupTestApp(t)

	status, html := get(t, app, "/ui?q="+url.QueryEscape("1 m + 1 s"))
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(html, "<strong>UnitError</strong>") {
		t.Errorf("expected error kind in response:\n%s", html)
	}
}

func TestUnitList(t *testing.T) {
	app, s := setupTestApp(t)
	if err := s.AddUnit("furlong", 220, "yd"); err != nil {
		t.Fatal(err)
	}

	status, html := get(t, app, "/ui/units")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	for _, want := range []string{"furlong", "1 furlong = 220 yd", "/ui/units/m"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestUnitDetail(t *testing.T) {
	app, s := setupTestApp(t)
	if err := s.AddUnit("furlong", 220, "yd"); err != nil {
		t.Fatal(err)
	}

	status, html := get(t, app, "/ui/units/yd")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(html, "1 yd = 3 ft") {
		t.Error("expected definition in response")
	}
	if !strings.Contains(html, `href="/ui/units/furlong"`) {
		t.Error("expected dependent link in response")
	}
}

func TestUnitNotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	status, html := get(t, app, "/ui/units/nonexistent")
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
	if !strings.Contains(html, "Not Found") {
		t.Error("expected not found message")
	}
}

func TestPrefixList(t *testing.T) {
	app, _ := setupTestApp(t)

	status, html := get(t, app, "/ui/prefixes")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(html, "k = (10)^(3) = 1000") {
		t.Error("expected kilo prefix definition in response")
	}
	if !strings.Contains(html, "Ki = (2)^(10) = 1024") {
		t.Error("expected kibi prefix definition in response")
	}
	if !strings.Contains(html, "Mi = (2)^(20) = 1048576") {
		t.Error("expected mebi prefix definition in response")
	}
}

func TestRootRedirect(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 302 {
		t.Fatalf("expected 302 redirect, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/ui" {
		t.Fatalf("expected redirect to /ui, got %s", loc)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"1 m + 1 m", 20, "1 m + 1 m"},
		{"1 km + 1 m", 4, "1 km..."},
		{"1 µm + 2 µm", 4, "1 µm..."},
		{"µµµ", 3, "µµµ"},
	}
	for _, tt := range tests {
		if got := truncate(tt.s, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"UnitError: cannot add m and s", "UnitError"},
		{"LexError: unexpected character", "LexError"},
		{"disk full", "Error"},
	}
	for _, tt := range tests {
		if got := kindOf(tt.msg); got != tt.want {
			t.Errorf("kindOf(%q) = %q, want %q", tt.msg, got, tt.want)
		}
	}
}
