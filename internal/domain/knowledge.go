package domain

import "strings"

// SnippetLength bounds article content returned to callers.
const SnippetLength = 200

// KBArticle is a reference solution document.
type KBArticle struct {
	KBID              string   `json:"kb_id" yaml:"kb_id"`
	Title             string   `json:"title" yaml:"title"`
	Category          Category `json:"category" yaml:"category"`
	Content           string   `json:"content" yaml:"content"`
	Keywords          []string `json:"keywords,omitempty" yaml:"keywords"`
	AvgResolutionTime string   `json:"avg_resolution_time,omitempty" yaml:"avg_resolution_time"`
	SuccessRate       string   `json:"success_rate,omitempty" yaml:"success_rate"`
	RelatedArticles   []string `json:"related_articles,omitempty" yaml:"related_articles"`
	Similarity        float64  `json:"similarity" yaml:"-"`
	RerankScore       float64  `json:"rerank_score,omitempty" yaml:"-"`
}

// EmbeddingText is the text embedded for an article when seeding a store.
func (a KBArticle) EmbeddingText() string {
	return "Title: " + a.Title +
		"\nCategory: " + string(a.Category) +
		"\nContent: " + a.Content +
		"\nKeywords: " + strings.Join(a.Keywords, ", ")
}

// Snippet returns a copy of a with Content truncated for display.
func (a KBArticle) Snippet() KBArticle {
	runes := []rune(a.Content)
	if len(runes) > SnippetLength {
		a.Content = string(runes[:SnippetLength]) + "..."
	}
	return a
}
