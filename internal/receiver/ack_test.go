package receiver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPAcknowledger(t *testing.T) {
	var paths []string
	var clickBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		paths = append(paths, r.URL.Path)
		if r.Header.Get("Content-Type") == "application/json" {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&clickBody))
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := NewHTTPAcknowledger(srv.URL+"/", time.Second)
	require.NoError(t, a.Delivered(context.Background(), "n-1"))
	require.NoError(t, a.Clicked(context.Background(), "n-1", "view"))

	assert.Equal(t, []string{"/api/notifications/n-1/delivered", "/api/notifications/n-1/clicked"}, paths)
	assert.Equal(t, map[string]string{"action": "view"}, clickBody)
}

func TestHTTPAcknowledger_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewHTTPAcknowledger(srv.URL, time.Second).Delivered(context.Background(), "missing")
	assert.ErrorContains(t, err, "status 404")
}
