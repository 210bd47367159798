package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObserveAuthOp(t *testing.T) {
	m := New()

	m.ObserveAuthOp("signin", nil)
	m.ObserveAuthOp("signin", errors.New("invalid credentials"))
	m.ObserveAuthOp("signup", nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `auth_operations_total{operation="signin",result="success"} 1`))
	require.True(t, strings.Contains(body, `auth_operations_total{operation="signin",result="failure"} 1`))
	require.True(t, strings.Contains(body, `auth_operations_total{operation="signup",result="success"} 1`))
}
