package httputil_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rudderlabs/rudder-telemetry/utils/httputil"
)

func TestCloseResponse(t *testing.T) {
	t.Run("nil response is a no-op", func(t *testing.T) {
		require.NotPanics(t, func() { httputil.CloseResponse(nil) })
		require.NotPanics(t, func() { httputil.CloseResponse(&http.Response{}) })
	})

	t.Run("drains and closes the body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		resp, err := http.Get(srv.URL)
		require.NoError(t, err)
		httputil.CloseResponse(resp)

		_, err = resp.Body.Read(make([]byte, 1))
		require.Error(t, err)
	})
}
