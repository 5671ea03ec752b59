package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/star/skyrot/internal/auth"
	"github.com/star/skyrot/internal/batch"
	"github.com/star/skyrot/internal/catalog"
	"github.com/star/skyrot/internal/transform"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testServer(t *testing.T, opts Options) http.Handler {
	t.Helper()
	cat, err := catalog.New([]transform.Spec{
		{Name: "zenithal", Kind: transform.KindNative2Celestial, Params: map[string]float64{"lon": 30, "lat": 90, "lon_pole": 180}},
		{Name: "quarter", Kind: transform.KindRotation2D, Params: map[string]float64{"angle": 90}},
		{Name: "tilt", Kind: transform.KindEuler, Order: "zxz", Params: map[string]float64{"phi": 10, "theta": 20, "psi": 30}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if opts.MaxPoints == 0 {
		opts.MaxPoints = 1000
	}
	if opts.MaxConcurrentPerIP == 0 {
		opts.MaxConcurrentPerIP = 4
	}
	pool := batch.NewPool(2, 16, testLogger())
	return NewServer(opts, testLogger(), cat, pool).Handler()
}

type evalResult struct {
	Name    string            `json:"name"`
	Kind    string            `json:"kind"`
	Inverse bool              `json:"inverse"`
	Outputs []transform.Array `json:"outputs"`
	Error   string            `json:"error"`
}

func post(t *testing.T, h http.Handler, path, body string) (*httptest.ResponseRecorder, evalResult) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var res evalResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
	return w, res
}

func TestEvaluateNamed(t *testing.T) {
	h := testServer(t, Options{})

	w, res := post(t, h, "/api/v1/transforms/zenithal/evaluate", `{"inputs": [[10, 340], [40, -20]]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if res.Name != "zenithal" || res.Kind != "native2celestial" {
		t.Errorf("got name %q kind %q", res.Name, res.Kind)
	}
	want := [][2]float64{{40, 40}, {10, -20}}
	for i, wv := range want {
		if math.Abs(res.Outputs[0].At(i)-wv[0]) > 1e-9 || math.Abs(res.Outputs[1].At(i)-wv[1]) > 1e-9 {
			t.Errorf("point %d = (%v, %v), want %v", i, res.Outputs[0].At(i), res.Outputs[1].At(i), wv)
		}
	}
}

func TestEvaluateNamedInverse(t *testing.T) {
	h := testServer(t, Options{})

	w, res := post(t, h, "/api/v1/transforms/zenithal/evaluate", `{"inputs": [40, 40], "inverse": true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if res.Kind != "celestial2native" || !res.Inverse {
		t.Errorf("got kind %q inverse %v", res.Kind, res.Inverse)
	}
	if !res.Outputs[0].IsScalar() {
		t.Errorf("scalar input returned shape %v", res.Outputs[0].Shape)
	}
	if math.Abs(res.Outputs[0].At(0)-10) > 1e-9 || math.Abs(res.Outputs[1].At(0)-40) > 1e-9 {
		t.Errorf("got (%v, %v), want (10, 40)", res.Outputs[0].At(0), res.Outputs[1].At(0))
	}
}

func TestEvaluateInline(t *testing.T) {
	h := testServer(t, Options{})

	body := `{"transform": {"kind": "rotation2d", "params": {"angle": 90}}, "inputs": [[[1, 0], [0, 2]], [[0, 1], [0, 0]]]}`
	w, res := post(t, h, "/api/v1/evaluate", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	x, y := res.Outputs[0], res.Outputs[1]
	if len(x.Shape) != 2 || x.Shape[0] != 2 || x.Shape[1] != 2 {
		t.Fatalf("shape = %v, want [2 2]", x.Shape)
	}
	// (1, 0) -> (0, 1)
	if math.Abs(x.At(0)) > 1e-12 || math.Abs(y.At(0)-1) > 1e-12 {
		t.Errorf("first point = (%v, %v), want (0, 1)", x.At(0), y.At(0))
	}
}

func TestEvaluateBatchedThroughPool(t *testing.T) {
	h := testServer(t, Options{})

	// 100 points with a chunk size of 16 forces the worker path.
	xs := make([]string, 100)
	ys := make([]string, 100)
	for i := range xs {
		xs[i] = "1"
		ys[i] = "0"
	}
	body := `{"inputs": [[` + strings.Join(xs, ",") + `], [` + strings.Join(ys, ",") + `]]}`
	w, res := post(t, h, "/api/v1/transforms/quarter/evaluate", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if res.Outputs[0].Len() != 100 {
		t.Fatalf("got %d outputs", res.Outputs[0].Len())
	}
	for i := 0; i < 100; i++ {
		if math.Abs(res.Outputs[1].At(i)-1) > 1e-12 {
			t.Fatalf("point %d y = %v, want 1", i, res.Outputs[1].At(i))
		}
	}
}

func TestEvaluateErrors(t *testing.T) {
	h := testServer(t, Options{MaxPoints: 3})

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantErr    string
	}{
		{"unknown name", "/api/v1/transforms/nope/evaluate", `{"inputs": [1, 2]}`, http.StatusNotFound, "not found"},
		{"shape mismatch", "/api/v1/transforms/quarter/evaluate", `{"inputs": [[1, 2, 3], [1, 2]]}`, http.StatusBadRequest, "shape mismatch"},
		{"one input", "/api/v1/transforms/quarter/evaluate", `{"inputs": [[1, 2]]}`, http.StatusBadRequest, "exactly 2"},
		{"ragged", "/api/v1/transforms/quarter/evaluate", `{"inputs": [[[1], [2, 3]], [1, 2]]}`, http.StatusBadRequest, "invalid request body"},
		{"unknown field", "/api/v1/transforms/quarter/evaluate", `{"inputs": [1, 2], "angle": 3}`, http.StatusBadRequest, "invalid request body"},
		{"transform on named", "/api/v1/transforms/quarter/evaluate", `{"transform": {"kind": "rotation2d", "params": {"angle": 1}}, "inputs": [1, 2]}`, http.StatusBadRequest, "must not be set"},
		{"inline missing transform", "/api/v1/evaluate", `{"inputs": [1, 2]}`, http.StatusBadRequest, "transform is required"},
		{"inline bad order", "/api/v1/evaluate", `{"transform": {"kind": "euler", "order": "w", "params": {"phi": 0, "theta": 0, "psi": 0}}, "inputs": [1, 2]}`, http.StatusBadRequest, "invalid parameter"},
		{"inline missing param", "/api/v1/evaluate", `{"transform": {"kind": "native2celestial", "params": {"lon": 0}}, "inputs": [1, 2]}`, http.StatusBadRequest, "missing"},
		{"over budget", "/api/v1/transforms/quarter/evaluate", `{"inputs": [[1, 2, 3, 4], [1, 2, 3, 4]]}`, http.StatusBadRequest, "over the limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, res := post(t, h, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if !strings.Contains(res.Error, tt.wantErr) {
				t.Errorf("error = %q, want containing %q", res.Error, tt.wantErr)
			}
		})
	}
}

// TestEvaluateBudgetReportsLimit verifies over-budget requests carry the limit.
func TestEvaluateBudgetReportsLimit(t *testing.T) {
	h := testServer(t, Options{MaxPoints: 2})
	req := httptest.NewRequest("POST", "/api/v1/transforms/quarter/evaluate", strings.NewReader(`{"inputs": [[1, 2, 3], [1, 2, 3]]}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp map[string]any
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["max_points"] != float64(2) {
		t.Errorf("max_points = %v, want 2", resp["max_points"])
	}
}

func TestCatalogRoutes(t *testing.T) {
	h := testServer(t, Options{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/transforms", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list struct {
		Count      int              `json:"count"`
		Transforms []transform.Spec `json:"transforms"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 3 || list.Transforms[0].Name != "quarter" {
		t.Errorf("list = %+v", list)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/transforms/tilt/inverse", nil))
	var inv transform.Spec
	if err := json.Unmarshal(w.Body.Bytes(), &inv); err != nil {
		t.Fatal(err)
	}
	if inv.Order != "zxz" || math.Abs(inv.Params["phi"]+30) > 1e-9 || math.Abs(inv.Params["psi"]+10) > 1e-9 {
		t.Errorf("inverse spec = %+v", inv)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/transforms/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", w.Code)
	}
}

func TestAuthOnEvaluate(t *testing.T) {
	h := testServer(t, Options{Auth: auth.Config{Enabled: true, Token: "tok"}})

	req := httptest.NewRequest("POST", "/api/v1/transforms/quarter/evaluate", strings.NewReader(`{"inputs": [1, 0]}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest("POST", "/api/v1/transforms/quarter/evaluate", strings.NewReader(`{"inputs": [1, 0]}`))
	req.Header.Set("Authorization", "Bearer tok")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("with token: status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want 200", w.Code)
	}
}

// TestEvalLimiter verifies per-IP concurrent evaluation limits.
func TestEvalLimiter(t *testing.T) {
	limiter := newEvalLimiter(2)

	for i := 0; i < 2; i++ {
		if !limiter.acquire("10.0.0.1") {
			t.Fatalf("acquire %d should succeed", i)
		}
	}
	if limiter.acquire("10.0.0.1") {
		t.Error("third acquire for the same IP should fail")
	}
	if !limiter.acquire("10.0.0.2") {
		t.Error("another IP should not be affected")
	}

	limiter.release("10.0.0.1")
	if got := limiter.count("10.0.0.1"); got != 1 {
		t.Errorf("count = %d, want 1", got)
	}
	if !limiter.acquire("10.0.0.1") {
		t.Error("acquire after release should succeed")
	}

	limiter.release("10.0.0.2")
	if got := limiter.count("10.0.0.2"); got != 0 {
		t.Errorf("count = %d, want 0", got)
	}
}

func TestEvaluateRejectedWhenLimited(t *testing.T) {
	cat, err := catalog.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	h := &handlers{
		logger:    testLogger(),
		catalog:   cat,
		pool:      batch.NewPool(1, 0, testLogger()),
		limiter:   newEvalLimiter(1),
		maxPoints: 10,
	}
	// Occupy the only slot for the test client.
	h.limiter.acquire("192.0.2.1")

	req := httptest.NewRequest("POST", "/api/v1/evaluate", strings.NewReader(`{"transform": {"kind": "rotation2d", "params": {"angle": 1}}, "inputs": [1, 0]}`))
	w := httptest.NewRecorder()
	h.evaluateInline(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
}
