package knowledge

import (
	"sort"
	"strings"
	"unicode"

	"github.com/spec-kit/ticket-advisor/internal/domain"
)

// Reranker reorders search candidates against the query text.
type Reranker interface {
	Rerank(query string, articles []domain.KBArticle, topK int) []domain.KBArticle
}

// KeywordReranker blends vector similarity with lexical overlap between the
// query and each article's title, keywords and content.
type KeywordReranker struct {
	// SimilarityWeight is the share of the score taken from vector similarity.
	SimilarityWeight float64
}

// NewKeywordReranker returns a reranker weighting similarity and overlap equally.
func NewKeywordReranker() *KeywordReranker {
	return &KeywordReranker{SimilarityWeight: 0.5}
}

// Rerank implements Reranker.
func (r *KeywordReranker) Rerank(query string, articles []domain.KBArticle, topK int) []domain.KBArticle {
	if len(articles) == 0 {
		return []domain.KBArticle{}
	}
	terms := tokenize(query)

	out := make([]domain.KBArticle, len(articles))
	copy(out, articles)
	for i := range out {
		overlap := termOverlap(terms, out[i])
		out[i].RerankScore = r.SimilarityWeight*out[i].Similarity + (1-r.SimilarityWeight)*overlap
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RerankScore > out[j].RerankScore
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

func termOverlap(terms map[string]struct{}, article domain.KBArticle) float64 {
	if len(terms) == 0 {
		return 0
	}
	doc := tokenize(article.Title + " " + strings.Join(article.Keywords, " ") + " " + article.Content)
	hits := 0
	for term := range terms {
		if _, ok := doc[term]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {}, "have": {},
	"from": {}, "but": {}, "not": {}, "are": {}, "was": {}, "can": {}, "you": {},
	"please": {}, "help": {}, "my": {}, "our": {}, "its": {}, "it's": {},
}

func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}
