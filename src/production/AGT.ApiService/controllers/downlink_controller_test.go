package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Config"
	downlink "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Downlink"
)

func downlinkRouter(cfg *config.TTNConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewDownlinkController(downlink.NewClient(cfg), testLogger()).RegisterRoutes(router)
	return router
}

func TestDownlinkMissingPayloadRejected(t *testing.T) {
	router := downlinkRouter(&config.TTNConfig{
		ServerURL:     "https://example.invalid",
		ApplicationID: "ginger-farm",
		APIKey:        "secret",
	})

	w := postJSON(router, "/downlink/farm-node-01", []byte(`{"f_port":2}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownlinkMissingCredentialIsCallTimeError(t *testing.T) {
	router := downlinkRouter(&config.TTNConfig{
		ServerURL:     "https://example.invalid",
		ApplicationID: "ginger-farm",
	})

	w := postJSON(router, "/downlink/farm-node-01", []byte(`{"frm_payload":"AQ=="}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "TTN_API_KEY")
}

func TestDownlinkForwardsUpstreamResult(t *testing.T) {
	var gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"queued":true}`))
	}))
	defer upstream.Close()

	router := downlinkRouter(&config.TTNConfig{
		ServerURL:     upstream.URL,
		ApplicationID: "ginger-farm",
		APIKey:        "secret",
	})

	w := postJSON(router, "/downlink/farm-node-01", []byte(`{"frm_payload":"AQID"}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"ok":true,"result":{"queued":true}}`, w.Body.String())
	assert.Equal(t, "/api/v3/as/applications/ginger-farm/devices/farm-node-01/down/push", gotPath)
}

func TestDownlinkUpstreamFailureSurfaces(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer upstream.Close()

	router := downlinkRouter(&config.TTNConfig{
		ServerURL:     upstream.URL,
		ApplicationID: "ginger-farm",
		APIKey:        "secret",
	})

	w := postJSON(router, "/downlink/farm-node-01", []byte(`{"frm_payload":"AQ=="}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "502")
}
