package retell

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newRouter(g Guard, reached *bool, seen *[]byte) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/retell/functions", g.Middleware(), func(c *gin.Context) {
		*reached = true
		raw, _ := RawBody(c)
		*seen = raw
		c.Status(http.StatusOK)
	})
	return r
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		OK    bool `json:"ok"`
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.OK {
		t.Fatalf("expected ok=false")
	}
	return body.Error.Code
}

func TestGuard_ProductionRequiresSignature(t *testing.T) {
	var reached bool
	var seen []byte
	r := newRouter(Guard{Enforce: true, Secret: "secret"}, &reached, &seen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/retell/functions", strings.NewReader(`not json at all`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "MISSING_SIGNATURE" {
		t.Fatalf("unexpected code %q", code)
	}
	if reached {
		t.Fatalf("handler must not run")
	}
}

func TestGuard_ProductionWithoutSecretIsMisconfigured(t *testing.T) {
	var reached bool
	var seen []byte
	r := newRouter(Guard{Enforce: true}, &reached, &seen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/retell/functions", strings.NewReader(`{}`))
	req.Header.Set(SignatureHeader, "v=1,d=00")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "SERVER_MISCONFIGURED" {
		t.Fatalf("unexpected code %q", code)
	}
}

func TestGuard_RejectsInvalidSignature(t *testing.T) {
	var reached bool
	var seen []byte
	r := newRouter(Guard{Enforce: true, Secret: "secret"}, &reached, &seen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/retell/functions", strings.NewReader(`{}`))
	req.Header.Set(SignatureHeader, Sign("wrong", []byte(`{}`), time.Now()))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "INVALID_SIGNATURE" {
		t.Fatalf("unexpected code %q", code)
	}
	if reached {
		t.Fatalf("handler must not run")
	}
}

func TestGuard_PassesRawBodyThrough(t *testing.T) {
	var reached bool
	var seen []byte
	r := newRouter(Guard{Enforce: true, Secret: "secret"}, &reached, &seen)

	body := []byte(`{"name":"create_booking",  "args":{}}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/retell/functions", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, Sign("secret", body, time.Now()))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || !reached {
		t.Fatalf("expected handler to run, got %d", w.Code)
	}
	if !bytes.Equal(seen, body) {
		t.Fatalf("raw body altered: %q", seen)
	}
}

func TestGuard_NonProductionBypassesVerification(t *testing.T) {
	var reached bool
	var seen []byte
	r := newRouter(Guard{Enforce: false}, &reached, &seen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/retell/functions", strings.NewReader(`{"name":"x"}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || !reached {
		t.Fatalf("expected bypass, got %d", w.Code)
	}
}

func TestGuard_RejectsOversizedBody(t *testing.T) {
	var reached bool
	var seen []byte
	r := newRouter(Guard{MaxBodyBytes: 8}, &reached, &seen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/retell/functions", strings.NewReader(`{"name":"create_booking"}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestRawBody_ReadsWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader("abc")))

	raw, err := RawBody(c)
	if err != nil || string(raw) != "abc" {
		t.Fatalf("unexpected raw body %q err=%v", raw, err)
	}
	again, _ := RawBody(c)
	if string(again) != "abc" {
		t.Fatalf("expected cached body, got %q", again)
	}
}
