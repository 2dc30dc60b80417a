package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/mentorkit/mentor/internal/session"
)

// toolCallAccumulator reassembles tool calls from stream fragments. Providers
// deliver the id and name on the first chunk and the argument JSON in pieces;
// fragments for one call share an index (or id), so we concatenate arguments
// under that key until the stream ends.
type toolCallAccumulator struct {
	order   []string
	pending map[string]*pendingCall
}

type pendingCall struct {
	id   string
	name string
	args strings.Builder
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{pending: make(map[string]*pendingCall)}
}

func (a *toolCallAccumulator) add(tc schema.ToolCall) {
	key := a.key(tc)
	call, ok := a.pending[key]
	if !ok {
		call = &pendingCall{}
		a.pending[key] = call
		a.order = append(a.order, key)
	}
	if tc.ID != "" {
		call.id = tc.ID
	}
	if tc.Function.Name != "" {
		call.name = tc.Function.Name
	}
	call.args.WriteString(tc.Function.Arguments)
}

func (a *toolCallAccumulator) key(tc schema.ToolCall) string {
	if tc.Index != nil {
		return fmt.Sprintf("idx:%d", *tc.Index)
	}
	if tc.ID != "" {
		return "id:" + tc.ID
	}
	return "pos:0"
}

// finalize returns the calls whose argument payload parses as JSON, plus the
// names of calls still incomplete at stream end. Incomplete calls are
// recoverable: the caller decides how to fall back instead of failing the
// turn.
func (a *toolCallAccumulator) finalize() (calls []session.ToolCall, incomplete []string) {
	for _, key := range a.order {
		call := a.pending[key]
		args := call.args.String()
		if args == "" {
			args = "{}"
		}
		if !json.Valid([]byte(args)) {
			incomplete = append(incomplete, call.name)
			continue
		}
		calls = append(calls, session.ToolCall{
			ID:        call.id,
			Name:      call.name,
			Arguments: args,
		})
	}
	return calls, incomplete
}
