// Package gateway adapts a chat model into the streamed and single-shot call
// shapes the orchestrator needs. It owns the request timeouts and the
// reassembly of streamed tool-call fragments; it never retries.
package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/mentorkit/mentor/internal/models"
	"github.com/mentorkit/mentor/internal/session"
)

const (
	streamTimeout   = 120 * time.Second
	completeTimeout = 60 * time.Second
)

// StreamEvent is one item of a streamed chat response. Exactly one field set:
// Delta for content fragments, Err for a failed stream, Done when the stream
// drained cleanly. The channel closes after Err or Done.
type StreamEvent struct {
	Delta string
	Err   error
	Done  *StreamDone
}

// StreamDone carries the assembled result of a finished stream. Incomplete
// lists tool calls whose arguments never parsed; they are dropped from
// ToolCalls but reported so callers can fall back.
type StreamDone struct {
	Content    string
	ToolCalls  []session.ToolCall
	Incomplete []string
}

// Gateway wraps a tool-calling chat model.
type Gateway struct {
	chatModel model.ToolCallingChatModel
}

func New(chatModel model.ToolCallingChatModel) *Gateway {
	return &Gateway{chatModel: chatModel}
}

// StreamChat starts a streamed chat call with the given tool specs bound and
// returns an ordered event channel. Content deltas are forwarded as they
// arrive; tool-call fragments are accumulated and delivered complete in the
// Done event. The call is bounded by a 120s timeout.
func (g *Gateway) StreamChat(ctx context.Context, messages []*schema.Message, tools []*schema.ToolInfo) (<-chan StreamEvent, error) {
	chatModel := g.chatModel
	if len(tools) > 0 {
		bound, err := chatModel.WithTools(tools)
		if err != nil {
			return nil, fmt.Errorf("bind tools: %w", err)
		}
		chatModel = bound
	}

	events := make(chan StreamEvent)

	go func() {
		defer close(events)

		ctx, cancel := context.WithTimeout(ctx, streamTimeout)
		defer cancel()

		// Every send races the context so an abandoned receiver cannot
		// strand this goroutine on the channel.
		send := func(ev StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		stream, err := chatModel.Stream(ctx, messages)
		if err != nil {
			send(StreamEvent{Err: models.HandleError(err)})
			return
		}
		defer stream.Close()

		var content strings.Builder
		acc := newToolCallAccumulator()

		for {
			chunk, err := stream.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				send(StreamEvent{Err: models.HandleError(err)})
				return
			}
			if chunk == nil {
				continue
			}
			if chunk.Content != "" {
				content.WriteString(chunk.Content)
				if !send(StreamEvent{Delta: chunk.Content}) {
					return
				}
			}
			for _, tc := range chunk.ToolCalls {
				acc.add(tc)
			}
		}

		calls, incomplete := acc.finalize()
		if len(incomplete) > 0 {
			slog.Warn("tool call reassembly incomplete", "tools", incomplete)
		}
		send(StreamEvent{Done: &StreamDone{
			Content:    content.String(),
			ToolCalls:  calls,
			Incomplete: incomplete,
		}})
	}()

	return events, nil
}

// Complete performs a single non-streamed generation, bounded by a 60s
// timeout. Callers pass sampling options such as model.WithTemperature and
// model.WithMaxTokens.
func (g *Gateway) Complete(ctx context.Context, messages []*schema.Message, opts ...model.Option) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, completeTimeout)
	defer cancel()

	resp, err := g.chatModel.Generate(ctx, messages, opts...)
	if err != nil {
		return "", models.HandleError(err)
	}
	return resp.Content, nil
}
