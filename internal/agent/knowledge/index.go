package knowledge

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"

	"github.com/plan-assist-core/server/internal/agent/model"
	logx "github.com/plan-assist-core/server/pkg/logger"
)

//go:embed data/knowledge.json
var embeddedKnowledge []byte

const (
	defaultTopK         = 3
	defaultChunkSize    = 500
	defaultChunkOverlap = 50

	fieldContent = "content"
	fieldSource  = "source"
	fieldTitle   = "title"
)

// LoadDocuments reads knowledge documents from path, or the embedded set when
// path is empty.
func LoadDocuments(path string) ([]model.KnowledgeDocument, error) {
	raw := embeddedKnowledge
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read knowledge file: %w", err)
		}
		raw = b
	}
	var docs []model.KnowledgeDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("decode knowledge documents: %w", err)
	}
	return docs, nil
}

// chunkDocument is what gets indexed for each chunk.
type chunkDocument struct {
	Content string `json:"content"`
	Source  string `json:"source"`
	Title   string `json:"title"`
	Chunk   int    `json:"chunk_index"`
}

// Index is an in-memory full-text index over chunked knowledge documents.
type Index struct {
	index bleve.Index
	cfg   model.KnowledgeConfig
}

// NewIndex chunks docs and indexes them into a memory-only bleve index.
func NewIndex(ctx context.Context, docs []model.KnowledgeDocument, cfg model.KnowledgeConfig) (*Index, error) {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = defaultChunkOverlap
	}

	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create knowledge index: %w", err)
	}

	batch := idx.NewBatch()
	chunks := 0
	for i, d := range docs {
		title := d.Title
		if title == "" {
			title = "Jio Info"
		}
		for j, c := range SplitText(d.Content, cfg.ChunkSize, cfg.ChunkOverlap) {
			id := fmt.Sprintf("doc_%d_chunk_%d", i, j)
			if err := batch.Index(id, chunkDocument{Content: c, Source: d.URL, Title: title, Chunk: j}); err != nil {
				_ = idx.Close()
				return nil, fmt.Errorf("index chunk %s: %w", id, err)
			}
			chunks++
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("commit knowledge batch: %w", err)
	}

	logx.Info().Int("documents", len(docs)).Int("chunks", chunks).Msg("Knowledge index built")
	return &Index{index: idx, cfg: cfg}, nil
}

func (x *Index) Close() error {
	return x.index.Close()
}

// Search returns up to limit hits for a free-text query.
func (x *Index) Search(ctx context.Context, query string, limit int) ([]model.PlanHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = x.cfg.TopK
	}

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	req.Fields = []string{fieldContent, fieldSource, fieldTitle}

	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search knowledge index: %w", err)
	}

	hits := make([]model.PlanHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, model.PlanHit{
			Content: stringField(h.Fields, fieldContent),
			Source:  stringField(h.Fields, fieldSource),
			Title:   stringField(h.Fields, fieldTitle),
			Score:   h.Score,
		})
	}
	return hits, nil
}

func stringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

// Retrieve implements the eino retriever interface so the index can be used as
// a graph component.
func (x *Index) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	topK := x.cfg.TopK
	o := retriever.GetCommonOptions(&retriever.Options{TopK: &topK}, opts...)
	if o.TopK != nil {
		topK = *o.TopK
	}

	hits, err := x.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	docs := make([]*schema.Document, 0, len(hits))
	for i, h := range hits {
		doc := &schema.Document{
			ID:      fmt.Sprintf("hit_%d", i),
			Content: h.Content,
			MetaData: map[string]any{
				fieldSource: h.Source,
				fieldTitle:  h.Title,
			},
		}
		docs = append(docs, doc.WithScore(h.Score))
	}
	return docs, nil
}

// GetContext renders the top hits as "Source: url\ncontent" blocks separated
// by blank lines. Any failure yields "".
func (x *Index) GetContext(ctx context.Context, query string) string {
	docs, err := x.Retrieve(ctx, query, retriever.WithTopK(x.cfg.TopK))
	if err != nil {
		logx.Warn().Err(err).Msg("Knowledge retrieval failed")
		return ""
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		source, _ := d.MetaData[fieldSource].(string)
		parts = append(parts, fmt.Sprintf("Source: %s\n%s", source, d.Content))
	}
	return strings.Join(parts, "\n\n")
}

var _ retriever.Retriever = (*Index)(nil)
