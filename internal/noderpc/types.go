package noderpc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// JSON-RPC methods exposed by the node.
const (
	// MethodSystemHealth returns peer count and sync flag.
	MethodSystemHealth = "system_health"

	// MethodSyncState returns starting/current/highest block numbers.
	MethodSyncState = "system_syncState"

	// MethodSubscribeNewHeads subscribes to imported block headers.
	MethodSubscribeNewHeads = "chain_subscribeNewHeads"

	// NotificationNewHead is the server-push method name carrying a new header.
	NotificationNewHead = "chain_newHead"
)

// request is an outbound JSON-RPC 2.0 request envelope.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// envelope is an inbound JSON-RPC 2.0 frame: either a response (ID set)
// or a subscription notification (Method + Params set).
type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// subscriptionParams is the params object of a notification frame.
type subscriptionParams struct {
	Subscription json.RawMessage `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// BlockNumber is a block height that the node may encode as a JSON
// number, a decimal string, or a 0x-prefixed hex string.
type BlockNumber uint64

// UnmarshalJSON accepts all three encodings.
func (b *BlockNumber) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) == 0 {
		return fmt.Errorf("block number: empty value")
	}

	if s[0] == '"' {
		var err error
		s, err = strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("block number: %w", err)
		}
	}

	var (
		v   uint64
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = strconv.ParseUint(s[2:], 16, 64)
	} else {
		v, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return fmt.Errorf("block number %q: %w", s, err)
	}

	*b = BlockNumber(v)
	return nil
}

// Uint64 returns the height as a plain uint64.
func (b BlockNumber) Uint64() uint64 {
	return uint64(b)
}

// Health is the result of system_health.
type Health struct {
	Peers           uint32 `json:"peers"`
	IsSyncing       bool   `json:"isSyncing"`
	ShouldHavePeers bool   `json:"shouldHavePeers"`
}

// SyncState is the result of system_syncState.
type SyncState struct {
	StartingBlock BlockNumber `json:"startingBlock"`
	CurrentBlock  BlockNumber `json:"currentBlock"`
	HighestBlock  BlockNumber `json:"highestBlock"`
}

// Head is a block header pushed by chain_newHead. Only the height is
// of interest to the supervisor.
type Head struct {
	Number BlockNumber `json:"number"`
}
