package downlink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Config"
)

func TestPushWithoutCredentialFailsFast(t *testing.T) {
	c := NewClient(&config.TTNConfig{ServerURL: "https://example.invalid", ApplicationID: "ginger-farm"})
	_, err := c.Push(context.Background(), "farm-node-01", 1, "AQ==")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestPushWithoutApplicationIDFailsFast(t *testing.T) {
	c := NewClient(&config.TTNConfig{ServerURL: "https://example.invalid", APIKey: "secret"})
	_, err := c.Push(context.Background(), "farm-node-01", 1, "AQ==")
	assert.ErrorIs(t, err, ErrMissingApplicationID)
}

func TestPushBuildsDeviceURLAndCredential(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"queued":true}`))
	}))
	defer srv.Close()

	c := NewClient(&config.TTNConfig{
		ServerURL:     srv.URL,
		ApplicationID: "ginger-farm",
		APIKey:        "secret",
	})

	result, err := c.Push(context.Background(), "farm-node-01", 2, "AQID")
	require.NoError(t, err)

	assert.Equal(t, "/api/v3/as/applications/ginger-farm/devices/farm-node-01/down/push", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, map[string]interface{}{"queued": true}, result)

	downlinks := gotBody["downlinks"].([]interface{})
	require.Len(t, downlinks, 1)
	item := downlinks[0].(map[string]interface{})
	assert.Equal(t, float64(2), item["f_port"])
	assert.Equal(t, "AQID", item["frm_payload"])
	assert.Equal(t, "NORMAL", item["priority"])
}

func TestPushUpstreamRejectionSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"no such device"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(&config.TTNConfig{
		ServerURL:     srv.URL,
		ApplicationID: "ginger-farm",
		APIKey:        "secret",
	})

	_, err := c.Push(context.Background(), "nope", 1, "AQ==")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "no such device")
}

func TestPushEmptyUpstreamBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(&config.TTNConfig{
		ServerURL:     srv.URL,
		ApplicationID: "ginger-farm",
		APIKey:        "secret",
	})

	result, err := c.Push(context.Background(), "farm-node-01", 1, "AQ==")
	require.NoError(t, err)
	assert.Empty(t, result)
}
