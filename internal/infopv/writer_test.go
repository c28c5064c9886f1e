package infopv

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestHTTPWriter posts the PV value as JSON.
func TestHTTPWriter(t *testing.T) {
	t.Parallel()

	var got gatewayPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		if got.PV == "REJECT" {
			w.WriteHeader(http.StatusInternalServerError)

			return
		}

		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	writer, err := NewHTTPWriter(server.URL, WithHTTPClient(server.Client()))
	require.NoError(t, err)

	require.NoError(t, writer.Write(context.Background(), "AREA:INFO", "No active alarms"))
	require.Equal(t, gatewayPayload{PV: "AREA:INFO", Value: "No active alarms"}, got)

	err = writer.Write(context.Background(), "REJECT", "x")
	require.ErrorContains(t, err, "gateway returned 500")

	_, err = NewHTTPWriter("")
	require.ErrorIs(t, err, ErrEmptyURL)

	require.NoError(t, LogWriter{}.Write(context.Background(), "AREA:INFO", "x"))
}
