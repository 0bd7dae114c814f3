package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("wrap: %w", ErrNotFound), http.StatusNotFound},
		{ErrValidation, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("redis down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

		var p ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.Equal(t, tc.status, p.Status)
	}
}

func TestInternalErrorsHideDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, fmt.Errorf("dial tcp 10.0.0.1:6379"))
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Acme"}`))
	require.NoError(t, DecodeJSON(req, &v, 1024))
	assert.Equal(t, "Acme", v.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Acme"} {"name":"B"}`))
	assert.Error(t, DecodeJSON(req, &v, 1024))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("a", 100)+`"}`))
	assert.Error(t, DecodeJSON(req, &v, 16))
}
