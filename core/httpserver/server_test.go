package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/tokenbot/core/logger"
)

func TestHealthcheckCarriesRequestID(t *testing.T) {
	s := New(Options{Addr: ":0"})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, HealthcheckBody, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestRequestIDReachesHandlerContext(t *testing.T) {
	s := New(Options{})
	var rid string
	s.Echo().GET("/rid", func(c echo.Context) error {
		rid = logger.RIDFrom(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rid", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, rec.Header().Get(echo.HeaderXRequestID), rid)
}

func TestPanicsAreRecovered(t *testing.T) {
	s := New(Options{})
	s.Echo().GET("/boom", func(echo.Context) error { panic("boom") })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
