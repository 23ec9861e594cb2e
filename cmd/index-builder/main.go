// README: Builds the passage index: chunks the guide corpus, embeds each chunk, writes the SQLite file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"docent/internal/ai"
	"docent/internal/config"
	"docent/internal/modules/answer"
)

const (
	chunkSize    = 300
	chunkOverlap = 50
)

func main() {
	corpusDir := flag.String("corpus", "data/corpus", "directory of .txt/.md guide documents")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.AI.GeminiKey == "" {
		log.Fatal("GEMINI_API_KEY is required to embed the corpus")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey)
	if err != nil {
		log.Fatalf("gemini init: %v", err)
	}
	defer provider.Close()

	chunks, err := collectChunks(*corpusDir)
	if err != nil {
		log.Fatal(err)
	}
	if len(chunks) == 0 {
		log.Fatalf("no corpus documents under %s", *corpusDir)
	}

	// Build into a temp file and rename, so a crash mid-build never leaves
	// the API reading a half-written index.
	tmpPath := cfg.Answer.IndexPath + ".tmp"
	os.Remove(tmpPath)
	if err := os.MkdirAll(filepath.Dir(cfg.Answer.IndexPath), 0o755); err != nil {
		log.Fatal(err)
	}
	index, err := answer.CreateSQLiteIndex(tmpPath, provider)
	if err != nil {
		log.Fatal(err)
	}

	for i, chunk := range chunks {
		if err := index.Add(ctx, chunk); err != nil {
			index.Close()
			log.Fatalf("embed chunk %d/%d: %v", i+1, len(chunks), err)
		}
		if (i+1)%20 == 0 {
			fmt.Printf("embedded %d/%d chunks\n", i+1, len(chunks))
		}
	}
	n, err := index.Count(ctx)
	if err != nil {
		index.Close()
		log.Fatal(err)
	}
	if err := index.Close(); err != nil {
		log.Fatal(err)
	}
	if err := os.Rename(tmpPath, cfg.Answer.IndexPath); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %s with %d passages\n", cfg.Answer.IndexPath, n)
}

// collectChunks reads every text document in dir and splits it into
// overlapping chunks sized for retrieval.
func collectChunks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus dir: %w", err)
	}

	var chunks []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		text := strings.TrimSpace(string(raw))
		if text == "" {
			continue
		}
		chunks = append(chunks, answer.ChunkText(text, chunkSize, chunkOverlap)...)
	}
	return chunks, nil
}
