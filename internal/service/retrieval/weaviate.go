package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// WeaviateRetriever serves fragments from a Weaviate class whose objects
// carry a text body and the conversationId they were ingested for.
type WeaviateRetriever struct {
	client *weaviate.Client
	class  string
	topK   int
}

// NewWeaviateRetriever connects to the Weaviate endpoint. rawURL may carry
// an http:// or https:// scheme prefix.
func NewWeaviateRetriever(rawURL, class string, topK int) (*WeaviateRetriever, error) {
	cfg := weaviate.Config{Host: rawURL, Scheme: "http"}
	switch {
	case strings.HasPrefix(rawURL, "https://"):
		cfg.Scheme = "https"
		cfg.Host = strings.TrimPrefix(rawURL, "https://")
	case strings.HasPrefix(rawURL, "http://"):
		cfg.Host = strings.TrimPrefix(rawURL, "http://")
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}

	return &WeaviateRetriever{client: client, class: class, topK: topK}, nil
}

// Retrieve runs a semantic search for the query, scoped to one conversation
// and bounded to topK fragments.
func (r *WeaviateRetriever) Retrieve(ctx context.Context, query, conversationID string) ([]Fragment, error) {
	nearText := r.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{query})

	where := filters.Where().
		WithPath([]string{"conversationId"}).
		WithOperator(filters.Equal).
		WithValueString(conversationID)

	result, err := r.client.GraphQL().Get().
		WithClassName(r.class).
		WithFields(graphql.Field{Name: "text"}).
		WithNearText(nearText).
		WithWhere(where).
		WithLimit(r.topK).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate query: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate query: %s", result.Errors[0].Message)
	}

	return r.parseFragments(result), nil
}

func (r *WeaviateRetriever) parseFragments(result *models.GraphQLResponse) []Fragment {
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}

	objects, ok := data[r.class].([]interface{})
	if !ok {
		return nil
	}

	fragments := make([]Fragment, 0, len(objects))
	for _, obj := range objects {
		fields, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		if text, _ := fields["text"].(string); text != "" {
			fragments = append(fragments, Fragment{Text: text})
		}
	}
	return fragments
}
