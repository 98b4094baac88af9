package crypto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeRequest_Shape(t *testing.T) {
	raw, err := SubscribeRequest("book.BTC_USDT.10")
	require.NoError(t, err)

	var decoded struct {
		ID     int64  `json:"id"`
		Method string `json:"method"`
		Params struct {
			Channels []string `json:"channels"`
		} `json:"params"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, int64(1), decoded.ID)
	assert.Equal(t, "subscribe", decoded.Method)
	assert.Equal(t, []string{"book.BTC_USDT.10"}, decoded.Params.Channels)
}

// The heartbeat path of HandleControlFrame writes its reply on a live
// websocket.Conn, so it is not exercised here; this verifies that a bare
// subscribe acknowledgement (no "result") is recognized as control traffic,
// not data.
func TestHandleControlFrame_RecognizesSubscribeAck(t *testing.T) {
	handled, err := ControlHandler{}.HandleControlFrame(nil, []byte(`{"id":1,"method":"subscribe","code":0}`))
	require.NoError(t, err)
	assert.True(t, handled)
}

func TestHandleControlFrame_PassesThroughDataFrame(t *testing.T) {
	handled, err := ControlHandler{}.HandleControlFrame(nil, []byte(`{"id":-1,"method":"subscribe","code":0,"result":{"channel":"book"}}`))
	require.NoError(t, err)
	assert.False(t, handled)
}
