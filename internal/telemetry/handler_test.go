package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMask(t *testing.T) {
	assert.Equal(t, "auth ***redacted***", mask("auth Bearer abc.def"))
	assert.Equal(t, "***redacted*** tail", mask("passphrase=hunter2 tail"))
	assert.Equal(t, "x ***redacted***", mask("x api_key: K-1"))
	assert.Equal(t, "plain text", mask("plain text"))
}

func TestHandleCountsByType(t *testing.T) {
	before := testutil.ToFloat64(clientEvents.WithLabelValues("other"))

	rec := httptest.NewRecorder()
	Handle(rec, httptest.NewRequest(http.MethodPost, "/api/telemetry", strings.NewReader(`{"type":"made_up"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, before+1, testutil.ToFloat64(clientEvents.WithLabelValues("other")))
}

func TestHandleRejectsUnknownFields(t *testing.T) {
	rec := httptest.NewRecorder()
	Handle(rec, httptest.NewRequest(http.MethodPost, "/api/telemetry", strings.NewReader(`{"type":"reveal_shown","secret":1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
