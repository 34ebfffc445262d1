package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePayloadInjectsURL(t *testing.T) {
	raw, err := encodePayload(map[string]interface{}{"metric": "latency_p95"}, "/m/1")
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "/m/1", got["url"])
	assert.Equal(t, "latency_p95", got["metric"])
}

func TestEncodePayloadOverwritesPriorURL(t *testing.T) {
	payload := map[string]interface{}{"url": "/stale"}

	raw, err := encodePayload(payload, "/m/1")
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "/m/1", got["url"])

	// The caller still sees its original map.
	assert.Equal(t, "/stale", payload["url"])
}

func TestEncodePayloadNilPayload(t *testing.T) {
	raw, err := encodePayload(nil, "/Notifications")
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"/Notifications"}`, string(raw))
}
