// Package anthropic wraps the official SDK behind the small surface the
// advisor needs: one-shot message creation and a streamed variant exposing
// the reply as a lazy, finite sequence of text chunks.
package anthropic

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Client defines the Anthropic API operations used by the advisor.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
	StreamMessage(ctx context.Context, req MessageRequest) (ChunkStream, error)
}

// ChunkStream delivers reply text incrementally. It is finite and
// non-restartable: iterate with Next, read the chunk with Text, then check
// Err once Next returns false. Close releases the underlying connection.
type ChunkStream interface {
	Next() bool
	Text() string
	Err() error
	Close() error
}

// MessageRequest is our own request type for CreateMessage.
type MessageRequest struct {
	Model       string
	MaxTokens   int64
	System      string
	Messages    []Message
	Temperature *float64
}

// Message represents a single conversational message.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// MessageResponse is our own response type from CreateMessage.
type MessageResponse struct {
	ID         string
	Model      string
	Text       string
	StopReason string
	Usage      TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// Log emits token usage with structured zap fields.
func (u TokenUsage) Log(model string) {
	zap.L().Info("token usage",
		zap.String("model", model),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
	)
}

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client sdk.Client
}

// NewClient creates a new Anthropic client backed by the SDK.
func NewClient(apiKey string) Client {
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
	}
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	msg, err := c.client.Messages.New(ctx, toSDKParams(req))
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}
	return fromSDKMessage(msg), nil
}

func (c *sdkClient) StreamMessage(ctx context.Context, req MessageRequest) (ChunkStream, error) {
	stream := c.client.Messages.NewStreaming(ctx, toSDKParams(req))
	if err := stream.Err(); err != nil {
		return nil, eris.Wrap(err, "anthropic: open stream")
	}
	return &sdkChunkStream{stream: stream}, nil
}

// sdkChunkStream adapts the SDK event stream to text chunks, skipping
// non-delta events.
type sdkChunkStream struct {
	stream interface {
		Next() bool
		Current() sdk.MessageStreamEventUnion
		Err() error
		Close() error
	}
	text string
	err  error
}

func (s *sdkChunkStream) Next() bool {
	for s.stream.Next() {
		event := s.stream.Current()
		if event.Type == "content_block_delta" && event.Delta.Text != "" {
			s.text = event.Delta.Text
			return true
		}
	}
	if err := s.stream.Err(); err != nil {
		s.err = eris.Wrap(err, "anthropic: stream")
	}
	return false
}

func (s *sdkChunkStream) Text() string { return s.text }

func (s *sdkChunkStream) Err() error { return s.err }

func (s *sdkChunkStream) Close() error { return s.stream.Close() }

// --- SDK type conversion helpers ---

func toSDKParams(req MessageRequest) sdk.MessageNewParams {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  toSDKMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	return params
}

func toSDKMessages(msgs []Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, len(msgs))
	for i, m := range msgs {
		block := sdk.NewTextBlock(m.Content)
		switch m.Role {
		case "assistant":
			out[i] = sdk.NewAssistantMessage(block)
		default:
			out[i] = sdk.NewUserMessage(block)
		}
	}
	return out
}

func fromSDKMessage(msg *sdk.Message) *MessageResponse {
	text := ""
	for _, b := range msg.Content {
		if b.Type == "text" {
			text += b.Text
		}
	}

	return &MessageResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Text:       text,
		StopReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}
}
