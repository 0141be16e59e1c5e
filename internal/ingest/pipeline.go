// Package ingest builds the search index from raw HTML sources.
//
// The pipeline loads HTML documents, converts them to markdown,
// applies two-stage chunking (header-aware, then character-bound),
// embeds the chunks, and persists the index together with
// document-level metadata.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kart-io/logger"
	"github.com/oklog/ulid/v2"

	"github.com/tradementor/tradementor/internal/knowledge/store"
	"github.com/tradementor/tradementor/internal/model"
	"github.com/tradementor/tradementor/internal/pkg/htmlutil"
	"github.com/tradementor/tradementor/internal/pkg/textutil"
	"github.com/tradementor/tradementor/pkg/jsonutil"
	"github.com/tradementor/tradementor/pkg/llm"
	"github.com/tradementor/tradementor/pkg/pool"
)

const (
	// embedBatchSize is the number of chunks sent per embedding call.
	embedBatchSize = 16

	// embedWorkers bounds concurrent embedding calls.
	embedWorkers = 4

	documentsFile = "documents.json"
	urlMapFile    = "url_map.json"
)

// urlMapEntry describes one source in url_map.json, keyed by filename.
type urlMapEntry struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// document is one HTML source converted to markdown.
type document struct {
	Filename       string
	SourceURL      string
	SourceCategory string
	Markdown       string
}

// Pipeline builds the vector index from the data directory.
type Pipeline struct {
	dataDir      string
	indexDir     string
	chunkSize    int
	chunkOverlap int
	embedder     llm.EmbeddingProvider
	store        store.VectorStore
}

// Config configures a Pipeline.
type Config struct {
	// DataDir holds url_map.json and the html/ subdirectory.
	DataDir string

	// IndexDir receives documents.json next to the persisted index.
	IndexDir string

	ChunkSize    int
	ChunkOverlap int

	Embedder llm.EmbeddingProvider
	Store    store.VectorStore
}

// New creates an ingestion pipeline.
func New(cfg *Config) *Pipeline {
	return &Pipeline{
		dataDir:      cfg.DataDir,
		indexDir:     cfg.IndexDir,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		embedder:     cfg.Embedder,
		store:        cfg.Store,
	}
}

// Run executes the full pipeline. The store is reset before chunks are
// added; a failed embedding call aborts the run and leaves the previous
// index untouched on disk.
func (p *Pipeline) Run(ctx context.Context) error {
	urlMap, err := p.loadURLMap()
	if err != nil {
		return err
	}

	docs, err := p.loadDocuments(urlMap)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no HTML documents found under %s", filepath.Join(p.dataDir, "html"))
	}
	logger.Infow("documents loaded", "count", len(docs))

	chunks := p.chunkDocuments(docs)
	if len(chunks) == 0 {
		return fmt.Errorf("chunking produced no content")
	}
	logger.Infow("chunks built", "count", len(chunks), "avg_chars", avgChunkChars(chunks))

	if err := p.embedChunks(ctx, chunks); err != nil {
		return err
	}

	if err := p.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	if err := p.store.Add(ctx, chunks); err != nil {
		return fmt.Errorf("add chunks: %w", err)
	}
	if err := p.store.Persist(ctx); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	logger.Infow("index persisted", "chunks", len(chunks))

	if err := p.writeDocumentMeta(docs, chunks); err != nil {
		return err
	}

	logger.Info("ingestion complete")
	return nil
}

// loadURLMap reads url_map.json; a missing file is not an error.
func (p *Pipeline) loadURLMap() (map[string]urlMapEntry, error) {
	path := filepath.Join(p.dataDir, urlMapFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warnw("no url_map.json found, sources will have no URLs", "path", path)
			return map[string]urlMapEntry{}, nil
		}
		return nil, fmt.Errorf("read url map: %w", err)
	}

	urlMap := map[string]urlMapEntry{}
	if err := jsonutil.Unmarshal(data, &urlMap); err != nil {
		return nil, fmt.Errorf("parse url map: %w", err)
	}
	return urlMap, nil
}

// loadDocuments walks DataDir/html recursively and converts every HTML
// file to markdown. Unreadable or empty documents are skipped.
func (p *Pipeline) loadDocuments(urlMap map[string]urlMapEntry) ([]*document, error) {
	htmlRoot := filepath.Join(p.dataDir, "html")

	var paths []string
	err := filepath.WalkDir(htmlRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".html" || ext == ".htm" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", htmlRoot, err)
	}
	sort.Strings(paths)

	docs := make([]*document, 0, len(paths))
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Warnw("skipping unreadable document", "path", path, "error", err)
			continue
		}
		markdown, err := htmlutil.Normalize(string(raw))
		if err != nil {
			logger.Warnw("skipping unparseable document", "path", path, "error", err)
			continue
		}
		if markdown == "" {
			logger.Warnw("skipping empty document", "path", path)
			continue
		}

		filename := filepath.Base(path)
		entry := urlMap[filename]
		docs = append(docs, &document{
			Filename:       filename,
			SourceURL:      entry.URL,
			SourceCategory: entry.Source,
			Markdown:       markdown,
		})
	}
	return docs, nil
}

// chunkDocuments applies the two-stage split: header-aware sections
// first, then character-bound chunks within each section.
func (p *Pipeline) chunkDocuments(docs []*document) []*store.Chunk {
	var chunks []*store.Chunk
	for _, doc := range docs {
		for _, section := range textutil.SplitByHeaders(doc.Markdown, 3) {
			for _, content := range textutil.SplitIntoChunks(section.Content, p.chunkSize, p.chunkOverlap) {
				chunks = append(chunks, &store.Chunk{
					ID:             ulid.Make().String(),
					Filename:       doc.Filename,
					SourceURL:      doc.SourceURL,
					SourceCategory: doc.SourceCategory,
					HeaderPath:     section.HeaderPath,
					Content:        content,
				})
			}
		}
	}
	return chunks
}

// embedChunks fills chunk embeddings in batches over a worker pool.
// The first failed batch cancels the remaining work.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []*store.Chunk) error {
	workers, err := pool.New("ingest-embed", &pool.Config{Capacity: embedWorkers})
	if err != nil {
		return fmt.Errorf("create embed pool: %w", err)
	}
	defer workers.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		wg.Add(1)
		submitErr := workers.Submit(func() {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			default:
			}

			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Content
			}
			vectors, err := p.embedder.Embed(ctx, texts)
			if err != nil {
				fail(fmt.Errorf("embed batch: %w", err))
				return
			}
			if len(vectors) != len(batch) {
				fail(fmt.Errorf("embed batch: got %d vectors for %d texts", len(vectors), len(batch)))
				return
			}
			for i, c := range batch {
				c.Embedding = vectors[i]
			}
		})
		if submitErr != nil {
			wg.Done()
			fail(submitErr)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	for _, c := range chunks {
		if c.Embedding == nil {
			return fmt.Errorf("embedding aborted before chunk %s was processed", c.ID)
		}
	}
	return nil
}

// writeDocumentMeta dumps document-level metadata next to the index.
// The file is replaced atomically.
func (p *Pipeline) writeDocumentMeta(docs []*document, chunks []*store.Chunk) error {
	chunkCounts := make(map[string]int, len(docs))
	for _, c := range chunks {
		chunkCounts[c.Filename]++
	}

	records := make([]*model.DocumentMeta, 0, len(docs))
	for _, doc := range docs {
		records = append(records, &model.DocumentMeta{
			Filename:       doc.Filename,
			SourceURL:      doc.SourceURL,
			SourceCategory: doc.SourceCategory,
			CharCount:      len(doc.Markdown),
			ChunkCount:     chunkCounts[doc.Filename],
		})
	}

	data, err := jsonutil.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document metadata: %w", err)
	}

	if err := os.MkdirAll(p.indexDir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	out := filepath.Join(p.indexDir, documentsFile)
	tmp := out + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write document metadata: %w", err)
	}
	if err := os.Rename(tmp, out); err != nil {
		return fmt.Errorf("replace document metadata: %w", err)
	}

	logger.Infow("document metadata saved", "path", out, "docs", len(records))
	return nil
}

func avgChunkChars(chunks []*store.Chunk) int {
	if len(chunks) == 0 {
		return 0
	}
	total := 0
	for _, c := range chunks {
		total += len(c.Content)
	}
	return total / len(chunks)
}
