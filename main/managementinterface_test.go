package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yearling2/payload/sensors"
)

func serve(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	newManagementMux(t.TempDir()).ServeHTTP(rec, req)
	return rec
}

func TestGetTelemetryServesCache(t *testing.T) {
	useTempConfig(t)
	p := useSimPayload(t, "acceleration", "rotation_vector")
	p.Acceleration()

	rec := serve(t, http.MethodGet, "/getTelemetry", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var msg TelemetryMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, []string{"acceleration", "rotation_vector"}, msg.Channels)
	assert.InDelta(t, 9.80665, msg.Values["acceleration"][2], 1e-9)
	assert.Len(t, msg.Values["rotation_vector"], 4)
	assert.NotContains(t, msg.Values, "gyroscope")
}

func TestSetChannelsReplace(t *testing.T) {
	useTempConfig(t)
	p := useSimPayload(t, "acceleration")

	rec := serve(t, http.MethodPost, "/setChannels", `{"channels":["gyroscope","magnetometer"],"mode":"replace"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, []sensors.Channel{sensors.Gyroscope, sensors.Magnetometer}, p.Channels())
	var msg ChannelsMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, []string{"gyroscope", "magnetometer"}, msg.Channels)
	assert.Equal(t, "replace", msg.Mode)

	// The new list is persisted.
	readSettings()
	assert.Equal(t, []string{"gyroscope", "magnetometer"}, currentSettings().Channels)
}

func TestSetChannelsAppend(t *testing.T) {
	useTempConfig(t)
	p := useSimPayload(t, "acceleration")

	rec := serve(t, http.MethodPost, "/setChannels", `{"channels":["gyroscope"],"mode":"Append"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, []sensors.Channel{sensors.Acceleration, sensors.Gyroscope}, p.Channels())
	assert.True(t, p.Connected())
}

func TestSetChannelsRejectsBadRequests(t *testing.T) {
	useTempConfig(t)
	p := useSimPayload(t, "acceleration")

	for _, body := range []string{
		`{"channels":["gyroscope"],"mode":"merge"}`,
		`{"channels":["gyroscope"]}`,
		`{"channels":`,
	} {
		rec := serve(t, http.MethodPost, "/setChannels", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Equal(t, []sensors.Channel{sensors.Acceleration}, p.Channels())

	rec := serve(t, http.MethodGet, "/setChannels", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	rec = serve(t, http.MethodOptions, "/setChannels", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetStatusAndSettings(t *testing.T) {
	useTempConfig(t)
	statusMutex.Lock()
	globalStatus.Version = "v-test"
	globalStatus.Polls = 7
	statusMutex.Unlock()

	rec := serve(t, http.MethodGet, "/getStatus", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "v-test", st.Version)
	assert.EqualValues(t, 7, st.Polls)

	rec = serve(t, http.MethodGet, "/getSettings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var s settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, "sim", s.Device)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
