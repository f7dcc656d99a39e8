// Package generation drives the chat model's token stream.
package generation

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// Streamer is the generation collaborator: each call produces a lazy,
// finite, single-consumption stream of message deltas for one prompt.
type Streamer interface {
	Stream(ctx context.Context, prompt []*schema.Message) (*schema.StreamReader[*schema.Message], error)
}

// Service runs prompts through a compiled eino chain around the configured
// chat model. Sampling parameters such as temperature are fixed at model
// construction.
type Service struct {
	chain compose.Runnable[[]*schema.Message, *schema.Message]
}

// NewService compiles the generation chain for the supplied chat model.
func NewService(ctx context.Context, chatModel model.ChatModel) (*Service, error) {
	chain := compose.NewChain[[]*schema.Message, *schema.Message]()
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile generation chain: %w", err)
	}

	return &Service{chain: runnable}, nil
}

// Stream starts a generation for the prompt. The returned reader must be
// consumed exactly once and closed by the caller; it is not restartable.
func (s *Service) Stream(ctx context.Context, prompt []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
	stream, err := s.chain.Stream(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("stream generation: %w", err)
	}
	return stream, nil
}
