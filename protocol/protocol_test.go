package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"cmd":"echo","id":7,"params":{"data":"hi"}}`))
	require.NoError(t, err)
	assert.Equal(t, "echo", cmd.Name)
	assert.Equal(t, int64(7), cmd.ID)
	assert.Equal(t, map[string]any{"data": "hi"}, cmd.Params)
}

func TestDecodeCommandDefaults(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty object", `{}`},
		{"null params", `{"cmd":"x","params":null}`},
		{"missing params", `{"cmd":"x","id":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeCommand([]byte(tt.input))
			require.NoError(t, err)
			assert.NotNil(t, cmd.Params)
			assert.Empty(t, cmd.Params)
		})
	}
}

func TestDecodeCommandInvalid(t *testing.T) {
	_, err := DecodeCommand([]byte(`not-json`))
	require.Error(t, err)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, err.Error(), "Invalid JSON")
}

func TestEncodeResponseShapes(t *testing.T) {
	data, err := EncodeResponse(SuccessResponse(3, map[string]any{"count": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"status":"success","result":{"count":1}}`, string(data))

	data, err = EncodeResponse(ErrorResponse(9, "Unknown command: nope"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":9,"status":"error","error":"Unknown command: nope"}`, string(data))
}

func TestEncodeResponseNullResultKept(t *testing.T) {
	// A success with no value (e.g. a receive that timed out) still carries
	// the result field.
	data, err := EncodeResponse(SuccessResponse(4, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":4,"status":"success","result":null}`, string(data))
}

func TestEncodeResponseUnserializable(t *testing.T) {
	_, err := EncodeResponse(SuccessResponse(1, func() {}))
	assert.Error(t, err)
}

func TestEncodeEvent(t *testing.T) {
	data, err := EncodeEvent(Event{Name: "message", Payload: map[string]any{"from": "abc"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"cmd":"message","status":"event","result":{"from":"abc"}}`, string(data))
}

func TestEncodedOutputNeverContainsSentinel(t *testing.T) {
	// Control characters inside string values are escaped by the JSON
	// encoder, so the framing sentinel cannot leak into a frame body.
	data, err := EncodeResponse(SuccessResponse(1, "nul \x00 inside"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "\x00")

	var resp map[string]any
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, "nul \x00 inside", resp["result"])
}
