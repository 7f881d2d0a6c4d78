package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func run(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) (int, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := mw(okHandler)(c)
	return rec.Code, err
}

func httpErrorCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected *echo.HTTPError, got %v", err)
	return he.Code
}

func TestRateLimiterDisabled(t *testing.T) {
	t.Parallel()

	mw := NewRateLimiter(0, 0)
	for range 5 {
		code, err := run(t, mw, httptest.NewRequest(http.MethodPost, "/", http.NoBody))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, code)
	}
}

func TestRateLimiterPerClient(t *testing.T) {
	t.Parallel()

	mw := NewRateLimiter(0.001, 1)
	request := func(ip string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
		req.RemoteAddr = ip + ":40000"
		return req
	}

	_, err := run(t, mw, request("192.0.2.1"))
	require.NoError(t, err)

	_, err = run(t, mw, request("192.0.2.1"))
	assert.Equal(t, http.StatusTooManyRequests, httpErrorCode(t, err))

	_, err = run(t, mw, request("192.0.2.2"))
	assert.NoError(t, err, "other clients keep their own budget")
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	mw := NewBodyLimit(1024)

	_, err := run(t, mw, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(make([]byte, 512))))
	require.NoError(t, err)

	_, err = run(t, mw, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(make([]byte, 4096))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, httpErrorCode(t, err))
}
