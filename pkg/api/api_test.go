package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/eggexpr/pkg/engine"
	"github.com/lemonberrylabs/eggexpr/pkg/store"
	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

func setupTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	eng, err := engine.New(engine.Options{})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	st := store.NewMemory()
	return New(eng, st, nil), st
}

func doJSON(t *testing.T, srv *Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("decoding %s: %v", data, err)
		}
	}
	return resp.StatusCode, out
}

func errorField(t *testing.T, body map[string]any, key string) any {
	t.Helper()
	e, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in %v", body)
	}
	return e[key]
}

func TestHealthz(t *testing.T) {
	srv, _ := setupTestServer(t)
	code, body := doJSON(t, srv, "GET", "/healthz", "")
	if code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("got %d %v", code, body)
	}
}

func TestParseEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t)

	t.Run("folded", func(t *testing.T) {
		code, body := doJSON(t, srv, "POST", "/v1/parse", `{"expression": "1 + 2"}`)
		if code != http.StatusOK {
			t.Fatalf("status = %d: %v", code, body)
		}
		tree := body["tree"].(map[string]any)
		if tree["type"] != "Literal" || tree["value"] != float64(3) {
			t.Errorf("tree = %v", tree)
		}
		if body["folded"] != true {
			t.Errorf("folded = %v", body["folded"])
		}
	})

	t.Run("unfolded", func(t *testing.T) {
		code, body := doJSON(t, srv, "POST", "/v1/parse", `{"expression": "1 + 2", "fold": false}`)
		if code != http.StatusOK {
			t.Fatalf("status = %d: %v", code, body)
		}
		tree := body["tree"].(map[string]any)
		if tree["type"] != "BinaryOp" || tree["op"] != "+" {
			t.Errorf("tree = %v", tree)
		}
	})

	t.Run("marker", func(t *testing.T) {
		_, body := doJSON(t, srv, "POST", "/v1/parse", `{"expression": "block(1) {"}`)
		if body["marker"] != "{" {
			t.Errorf("marker = %v", body["marker"])
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		code, body := doJSON(t, srv, "POST", "/v1/parse", `{"expression": "1 + f(1) {"}`)
		if code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", code)
		}
		if got := errorField(t, body, "status"); got != "INVALID_ARGUMENT" {
			t.Errorf("status = %v", got)
		}
		tags, _ := errorField(t, body, "tags").([]any)
		if len(tags) == 0 || tags[0] != types.TagSyntaxError {
			t.Errorf("tags = %v", tags)
		}
	})
}

func TestEvaluateEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantType string
		want     any
	}{
		{"arithmetic", `{"expression": "2 * 3 + 1"}`, 200, "int", float64(7)},
		{"variables", `{"expression": "user.name", "variables": {"user": {"name": "ann"}}}`, 200, "string", "ann"},
		{"function", `{"expression": "text:to_upper(s)", "variables": {"s": "abc"}}`, 200, "string", "ABC"},
		{"missing variable", `{"expression": "nope"}`, 200, "null", nil},
		{"unknown function", `{"expression": "nope()"}`, 404, "", nil},
		{"non-object variables", `{"expression": "1", "variables": [1]}`, 400, "", nil},
		{"bad body", `{`, 400, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := doJSON(t, srv, "POST", "/v1/evaluate", tt.body)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %v", code, tt.wantCode, body)
			}
			if tt.wantCode != 200 {
				return
			}
			if body["type"] != tt.wantType {
				t.Errorf("type = %v, want %s", body["type"], tt.wantType)
			}
			if body["value"] != tt.want {
				t.Errorf("value = %v, want %v", body["value"], tt.want)
			}
		})
	}
}

func TestEvaluateWritesScope(t *testing.T) {
	srv, st := setupTestServer(t)

	code, _ := doJSON(t, srv, "PUT", "/v1/scopes/counter", `{"variables": {"n": 1, "obj": {"a": 1}}}`)
	if code != http.StatusOK {
		t.Fatalf("put status = %d", code)
	}

	_, body := doJSON(t, srv, "POST", "/v1/evaluate", `{"expression": "n = n + 1", "scope": "counter"}`)
	if body["value"] != true || body["type"] != "bool" || body["written"] != true {
		t.Fatalf("evaluate = %v", body)
	}
	_, body = doJSON(t, srv, "POST", "/v1/evaluate", `{"expression": "n", "scope": "counter"}`)
	if body["value"] != float64(2) || body["written"] != false {
		t.Fatalf("read back = %v", body)
	}

	_, body = doJSON(t, srv, "POST", "/v1/evaluate", `{"expression": "obj.a = 5", "scope": "counter"}`)
	if body["written"] != true {
		t.Fatalf("nested write not saved: %v", body)
	}

	_, body = doJSON(t, srv, "POST", "/v1/evaluate", `{"expression": "n * 10", "scope": "counter"}`)
	if body["value"] != float64(20) || body["written"] != false {
		t.Fatalf("read-only evaluate = %v", body)
	}

	sc, found, err := st.Get(t.Context(), "counter")
	if err != nil || !found {
		t.Fatalf("Get: %v %v", found, err)
	}
	if got := sc.Variables.String(); got != "{n: 2, obj: {a: 5}}" {
		t.Errorf("stored = %s", got)
	}
	if sc.Revision != 3 {
		t.Errorf("revision = %d, want 3", sc.Revision)
	}
}

func TestExpandEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t)

	code, body := doJSON(t, srv, "POST", "/v1/expand",
		`{"template": "Hello ${name}, ${nope()}!", "variables": {"name": "Bo"}}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d: %v", code, body)
	}
	if body["text"] != "Hello Bo, !" {
		t.Errorf("text = %q", body["text"])
	}
	if w, _ := body["warnings"].([]any); len(w) != 1 {
		t.Errorf("warnings = %v", body["warnings"])
	}

	code, _ = doJSON(t, srv, "POST", "/v1/expand", `{"template": "${unclosed"}`)
	if code != http.StatusBadRequest {
		t.Errorf("unclosed section status = %d, want 400", code)
	}
}

func TestScopeCRUD(t *testing.T) {
	srv, _ := setupTestServer(t)

	code, body := doJSON(t, srv, "GET", "/v1/scopes/a", "")
	if code != http.StatusNotFound || errorField(t, body, "status") != "NOT_FOUND" {
		t.Fatalf("get missing = %d %v", code, body)
	}

	code, body = doJSON(t, srv, "PUT", "/v1/scopes/a", `{"variables": {"x": 1}}`)
	if code != http.StatusOK || body["name"] != "a" || body["revision"] != float64(1) {
		t.Fatalf("put = %d %v", code, body)
	}

	code, _ = doJSON(t, srv, "PUT", "/v1/scopes/b", `{"variables": 3}`)
	if code != http.StatusBadRequest {
		t.Errorf("put non-map status = %d", code)
	}

	_, body = doJSON(t, srv, "GET", "/v1/scopes", "")
	if scopes, _ := body["scopes"].([]any); len(scopes) != 1 {
		t.Errorf("scopes = %v", body["scopes"])
	}

	code, _ = doJSON(t, srv, "DELETE", "/v1/scopes/a", "")
	if code != http.StatusNoContent {
		t.Errorf("delete status = %d", code)
	}
	code, _ = doJSON(t, srv, "DELETE", "/v1/scopes/a", "")
	if code != http.StatusNotFound {
		t.Errorf("second delete status = %d", code)
	}
}

func TestFunctionsAndCache(t *testing.T) {
	srv, _ := setupTestServer(t)

	_, body := doJSON(t, srv, "GET", "/v1/functions", "")
	names, _ := body["functions"].([]any)
	found := false
	for _, n := range names {
		if n == "text:to_upper" {
			found = true
		}
	}
	if !found {
		t.Errorf("text:to_upper not listed in %v", names)
	}

	doJSON(t, srv, "POST", "/v1/evaluate", `{"expression": "1 + x"}`)
	doJSON(t, srv, "POST", "/v1/evaluate", `{"expression": "1 + x"}`)

	_, body = doJSON(t, srv, "GET", "/v1/cache", "")
	stats := body["stats"].(map[string]any)
	if stats["entries"] != float64(1) || stats["hits"] != float64(1) {
		t.Errorf("stats = %v", stats)
	}

	code, _ := doJSON(t, srv, "DELETE", "/v1/cache", "")
	if code != http.StatusNoContent {
		t.Errorf("purge status = %d", code)
	}
	_, body = doJSON(t, srv, "GET", "/v1/cache", "")
	if stats := body["stats"].(map[string]any); stats["entries"] != float64(0) {
		t.Errorf("entries after purge = %v", stats["entries"])
	}
}

func TestRequestStringsOutliveRequest(t *testing.T) {
	srv, st := setupTestServer(t)

	if code, _ := doJSON(t, srv, "PUT", "/v1/scopes/counter", `{"variables": {"n": 1}}`); code != http.StatusOK {
		t.Fatalf("put status = %d", code)
	}
	doJSON(t, srv, "GET", "/v1/scopes/zzzzzzz", "")
	doJSON(t, srv, "POST", "/v1/evaluate", `{"expression": "n + 1", "scope": "counter"}`)
	doJSON(t, srv, "POST", "/v1/evaluate", `{"expression": "m * 7", "scope": "qqqqqqq"}`)

	list, err := st.List(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "counter" {
		t.Errorf("scopes = %+v", list)
	}
	if _, found, _ := st.Get(t.Context(), "counter"); !found {
		t.Error("counter scope lost")
	}

	_, body := doJSON(t, srv, "GET", "/v1/cache", "")
	entries, _ := body["entries"].([]any)
	var sources []any
	for _, e := range entries {
		sources = append(sources, e.(map[string]any)["source"])
	}
	if len(sources) != 2 || sources[0] != "m * 7" || sources[1] != "n + 1" {
		t.Errorf("cached sources = %v", sources)
	}
}

func TestPanicsBecomeErrors(t *testing.T) {
	srv, _ := setupTestServer(t)

	code, body := doJSON(t, srv, "POST", "/v1/evaluate", `{"expression": "'a' * 9223372036854775807"}`)
	if code != http.StatusUnprocessableEntity {
		t.Errorf("oversized repeat status = %d: %v", code, body)
	}

	srv.App().Get("/v1/boom", func(*fiber.Ctx) error { panic("boom") })
	resp, err := srv.App().Test(httptest.NewRequest("GET", "/v1/boom", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("panic status = %d, want 500", resp.StatusCode)
	}

	if code, _ := doJSON(t, srv, "GET", "/healthz", ""); code != http.StatusOK {
		t.Errorf("healthz after panic = %d", code)
	}
}
