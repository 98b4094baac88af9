package crypto

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

// generalRespond is the envelope used to classify every inbound frame
// before it is known to be a heartbeat, a subscribe acknowledgement, or
// book/trade data. Grounded on original_source/src/crypto/format/respond.rs
// GeneralRespond{id,code,method}.
type generalRespond struct {
	ID     int64           `json:"id"`
	Code   int             `json:"code"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
}

// ControlHandler answers this venue's application-level heartbeat and
// swallows subscribe acknowledgements so neither reaches the frame channel
// as application data.
type ControlHandler struct{}

// HandleControlFrame implements wsconn.ControlFrameHandler.
func (ControlHandler) HandleControlFrame(conn *websocket.Conn, raw []byte) (bool, error) {
	var env generalRespond
	if err := json.Unmarshal(raw, &env); err != nil {
		// Not a control envelope at all; let it through as data.
		return false, nil
	}
	switch {
	case env.Method == "public/heartbeat":
		reply, err := json.Marshal(heartbeatRespond{ID: env.ID, Method: "public/respond-heartbeat"})
		if err != nil {
			return true, fmt.Errorf("crypto: marshal heartbeat respond: %w", err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			return true, fmt.Errorf("crypto: write heartbeat respond: %w", err)
		}
		return true, nil
	case env.Method == "subscribe" && env.Code == 0 && len(env.Result) == 0:
		// A bare subscribe acknowledgement (no "result" payload yet) is
		// control traffic, not a data frame.
		return true, nil
	default:
		return false, nil
	}
}

type heartbeatRespond struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
}

// SubscribeRequest builds the {"id":1,"method":"subscribe","params":{"channels":[...]}}
// frame sent once after the post-connect delay. Grounded on
// original_source/src/crypto/format/request.rs OrderRequest/subscribe_message.
func SubscribeRequest(channels ...string) ([]byte, error) {
	return json.Marshal(struct {
		ID     int64  `json:"id"`
		Method string `json:"method"`
		Params struct {
			Channels []string `json:"channels"`
		} `json:"params"`
	}{
		ID:     1,
		Method: "subscribe",
		Params: struct {
			Channels []string `json:"channels"`
		}{Channels: channels},
	})
}
