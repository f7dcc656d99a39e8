// Package retrieval queries the per-conversation context index.
package retrieval

import "context"

// Fragment is a retrieved snippet judged relevant to the current query.
type Fragment struct {
	Text string
}

// Retriever finds fragments relevant to a query within one conversation's
// index. An empty result means "no relevant context" and is never an error
// to the caller.
type Retriever interface {
	Retrieve(ctx context.Context, query, conversationID string) ([]Fragment, error)
}
