package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func runChain(handler echo.HandlerFunc, mws ...echo.MiddlewareFunc) (echo.Context, *httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/consultations", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := handler
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return c, rec, h(c)
}

func TestRequestIDAssignsAndEchoes(t *testing.T) {
	c, rec, err := runChain(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, RequestID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rid := rec.Header().Get(echo.HeaderXRequestID)
	if rid == "" {
		t.Fatal("expected a generated request id header")
	}
	if got, _ := c.Get("request_id").(string); got != rid {
		t.Errorf("context id %q must match header %q", got, rid)
	}
}

func TestRequestIDKeepsCallerSupplied(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "caller-42")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequestID()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(echo.HeaderXRequestID) != "caller-42" {
		t.Errorf("expected caller id to be preserved, got %q", rec.Header().Get(echo.HeaderXRequestID))
	}
}

func TestLoggerTagsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	_, rec, err := runChain(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, RequestID(), Logger(logger))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	line := buf.String()
	rid := rec.Header().Get(echo.HeaderXRequestID)
	if rid == "" || !strings.Contains(line, rid) {
		t.Errorf("log line must carry request id %q: %s", rid, line)
	}
	if !strings.Contains(line, `"status":200`) || !strings.Contains(line, `"path":"/consultations"`) {
		t.Errorf("unexpected log line: %s", line)
	}
}

func TestLoggerUsesHTTPErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	_, _, err := runChain(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "consultation not found")
	}, RequestID(), Logger(logger))
	if err == nil {
		t.Fatal("expected the handler error to propagate")
	}
	if !strings.Contains(buf.String(), `"status":404`) {
		t.Errorf("expected 404 in log line: %s", buf.String())
	}
}

func TestRecoveryConvertsPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	_, _, err := runChain(func(c echo.Context) error {
		panic("boom")
	}, RequestID(), Recovery(logger))

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusInternalServerError {
		t.Fatalf("expected a 500 HTTPError, got %v", err)
	}
	if !strings.Contains(buf.String(), "panic recovered") || !strings.Contains(buf.String(), "boom") {
		t.Errorf("unexpected panic log: %s", buf.String())
	}
}
