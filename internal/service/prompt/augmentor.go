// Package prompt assembles generation prompts, optionally augmented with
// retrieved context.
package prompt

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/lumenchat/lumen/backend/internal/model/chat"
	"github.com/lumenchat/lumen/backend/internal/service/retrieval"
)

// Number of trailing turns included when retrieved context is present. The
// unaugmented path deliberately uses the full history instead; the two
// shapes are a contract, not an approximation.
const contextWindow = 4

const contextTemplate = `You are a helpful assistant. Use the following context from the user's documents to answer their question. If the context is not relevant, answer from the conversation instead.

Context:
%s`

// Augmentor builds prompts for the generation collaborator.
type Augmentor struct {
	retriever retrieval.Retriever
}

// NewAugmentor wraps a retriever. A nil retriever disables augmentation and
// every prompt takes the unaugmented shape.
func NewAugmentor(retriever retrieval.Retriever) *Augmentor {
	return &Augmentor{retriever: retriever}
}

// BuildPrompt composes the ordered message list for one query. history is
// the session view before the current query; the query is always the final
// message. Retrieval failures and missing indexes are recovered locally as
// an empty fragment list and never surface to the client.
func (a *Augmentor) BuildPrompt(ctx context.Context, conversationID, query string, history []chat.TurnView) []*schema.Message {
	fragments := a.retrieve(ctx, conversationID, query)

	if len(fragments) == 0 {
		messages := make([]*schema.Message, 0, len(history)+1)
		messages = append(messages, historyMessages(history)...)
		return append(messages, schema.UserMessage(query))
	}

	texts := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		texts = append(texts, fragment.Text)
	}

	windowed := history
	if len(windowed) > contextWindow {
		windowed = windowed[len(windowed)-contextWindow:]
	}

	messages := make([]*schema.Message, 0, len(windowed)+2)
	messages = append(messages, schema.SystemMessage(fmt.Sprintf(contextTemplate, strings.Join(texts, "\n---\n"))))
	messages = append(messages, historyMessages(windowed)...)
	return append(messages, schema.UserMessage(query))
}

func (a *Augmentor) retrieve(ctx context.Context, conversationID, query string) []retrieval.Fragment {
	if a.retriever == nil {
		return nil
	}

	fragments, err := a.retriever.Retrieve(ctx, query, conversationID)
	if err != nil {
		log.Printf("[prompt] retrieval failed conversation=%s: %v", conversationID, err)
		return nil
	}
	return fragments
}

func historyMessages(turns []chat.TurnView) []*schema.Message {
	messages := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			messages = append(messages, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return messages
}
