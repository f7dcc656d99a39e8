package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/lumenchat/lumen/backend/internal/model/wire"
)

// relay drives one generation stream and forwards each non-empty delta to
// the client in arrival order: one start marker, one stream frame per delta,
// one end marker. On a mid-stream failure the client receives an error frame
// instead of the end marker and the accumulated text is discarded.
func (h *Handler) relay(ctx context.Context, c *connection, promptMessages []*schema.Message) (string, error) {
	stream, err := h.generator.Stream(ctx, promptMessages)
	if err != nil {
		h.sendError(c, "generation failed")
		return "", fmt.Errorf("start generation: %w", err)
	}
	defer stream.Close()

	if err := c.conn.WriteJSON(wire.NewStartOfStream()); err != nil {
		return "", fmt.Errorf("send start marker: %w", err)
	}

	var full strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			h.sendError(c, "generation failed")
			return "", fmt.Errorf("recv delta: %w", recvErr)
		}
		if chunk == nil || chunk.Content == "" {
			// Empty deltas are dropped, never forwarded.
			continue
		}

		full.WriteString(chunk.Content)
		if err := c.conn.WriteJSON(wire.NewStream(chunk.Content)); err != nil {
			return "", fmt.Errorf("forward delta: %w", err)
		}
	}

	if err := c.conn.WriteJSON(wire.NewEndOfStream()); err != nil {
		return "", fmt.Errorf("send end marker: %w", err)
	}

	return full.String(), nil
}
