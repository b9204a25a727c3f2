// Command retrace is the interactive CLI: optionally scrape a site
// into the knowledge base, then chat against it.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/retracehq/retrace/internal/models"
	"github.com/retracehq/retrace/internal/types"
	"github.com/retracehq/retrace/pkg/answer"
	"github.com/retracehq/retrace/pkg/config"
	"github.com/retracehq/retrace/pkg/indexer"
	"github.com/retracehq/retrace/pkg/llm"
	"github.com/retracehq/retrace/pkg/retriever"
	"github.com/retracehq/retrace/pkg/scraper"
	"github.com/retracehq/retrace/pkg/store"
)

type flags struct {
	configPath string
	scrapeURL  string
	mode       string
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.StringVar(&f.scrapeURL, "url", "", "Site to scrape and memorize before chatting")
	flag.StringVar(&f.mode, "mode", "strict", "Answer mode: strict, freeform or legacy")
	flag.Parse()

	if err := run(f); err != nil {
		log.Fatal(err)
	}
}

func run(f flags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("invalid configuration: %s: %s", e.Field, e.Message)
		}
		return fmt.Errorf("configuration is invalid")
	}

	mode, err := models.ParseAnswerMode(f.mode)
	if err != nil {
		return err
	}

	ctx := context.Background()
	chunkStore, closeStore, err := newChunkStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize chunk store: %v", err)
	}
	defer closeStore()

	ix := indexer.New(chunkStore, indexer.Config{
		ChunkSize:    cfg.Chunker.ChunkSize,
		ChunkOverlap: cfg.Chunker.ChunkOverlap,
	})
	rt := retriever.New(chunkStore, retriever.Caps{
		Strict:   cfg.Retrieval.StrictTopK,
		Freeform: cfg.Retrieval.FreeformTopK,
		Legacy:   cfg.Retrieval.LegacyTopK,
	})
	synth := answer.New(newGenerator(cfg), answer.Config{
		PreviewLength: cfg.Answer.PreviewLength,
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
	})

	if f.scrapeURL != "" {
		if err := scrapeAndMemorize(ctx, cfg, ix, f.scrapeURL); err != nil {
			return err
		}
	}

	chatLoop(ctx, rt, synth, mode)
	return nil
}

func scrapeAndMemorize(ctx context.Context, cfg *config.Config, ix *indexer.Indexer, url string) error {
	color.Blue("\nScraping %s\n", url)

	var scrapedCount int32
	scrapingBar := getSpinner("Scraping pages...")
	s, err := scraper.NewWithConfig(scraper.Config{
		BaseURL:        url,
		MaxDepth:       cfg.Scraper.MaxDepth,
		RateLimit:      cfg.Scraper.RateLimit,
		IgnorePatterns: cfg.Scraper.IgnorePatterns,
		Timeout:        cfg.Scraper.Timeout,
		OnProgress: func(string) {
			count := atomic.AddInt32(&scrapedCount, 1)
			scrapingBar.Describe(color.CyanString("Scraping pages... (%d visited)", count))
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize scraper: %v", err)
	}

	pages, err := s.Scrape(ctx, url)
	scrapingBar.Finish()
	fmt.Print("\r")
	if err != nil {
		return fmt.Errorf("failed to scrape %s: %v", url, err)
	}
	color.Green("\n✓ Scraped %d pages\n", len(pages))

	memorizeBar := getProgressBar(len(pages), "Memorizing pages...")
	startTime := time.Now()
	totalChunks := 0
	for i, page := range pages {
		if strings.TrimSpace(page.Content) == "" {
			memorizeBar.Add(1)
			continue
		}
		_, chunkCount, err := ix.Ingest(ctx, page.Title, page.Content)
		if err != nil {
			return fmt.Errorf("failed to memorize %s: %v", page.URL, err)
		}
		totalChunks += chunkCount
		memorizeBar.Add(1)

		elapsed := time.Since(startTime).Seconds()
		memorizeBar.Describe(color.BlueString(
			"Memorizing pages... (%.1f pages/sec)", float64(i+1)/elapsed))
	}
	color.Green("\n✓ Memorized %d pages into %d chunks\n", len(pages), totalChunks)
	return nil
}

func chatLoop(ctx context.Context, rt *retriever.Retriever, synth *answer.Synthesizer, mode models.AnswerMode) {
	color.Cyan("\nChat with your knowledge base (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if strings.ToLower(query) == "exit" {
			break
		}

		spinner := getSpinner("Searching knowledge base...")
		result, err := rt.Retrieve(ctx, query, mode)
		spinner.Finish()
		fmt.Print("\r")
		if err != nil {
			color.Red("Error retrieving chunks: %v\n", err)
			continue
		}

		a := synth.Synthesize(ctx, query, mode, result)
		fmt.Print("\n")
		assistantPrompt("Assistant: %s\n", a.Text)
		if a.Status != answer.StatusSuccess {
			color.Yellow("(status: %s)\n", a.Status)
		}
	}
}

func newChunkStore(ctx context.Context, cfg *config.Config) (types.ChunkStore, func(), error) {
	if cfg.Database.Driver == "pgvector" {
		embedder, err := llm.NewEmbedder(llm.EmbedderConfig{
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
		})
		if err != nil {
			return nil, nil, err
		}
		pg, err := store.NewPgVector(ctx, store.PgVectorConfig{
			ConnString: cfg.Database.URL,
			TableName:  cfg.Database.TableName,
			VectorDim:  cfg.Database.VectorDim,
			BatchSize:  cfg.Database.BatchSize,
		}, embedder)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}
	return store.NewMemory(), func() {}, nil
}

func newGenerator(cfg *config.Config) types.Generator {
	if !cfg.LLM.Configured() {
		color.Yellow("No LLM credential configured; answers degrade to raw snippets.")
		return nil
	}
	engine, err := llm.NewWithConfig(llm.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
	if err != nil {
		color.Yellow("Chat engine unavailable (%v); answers degrade to raw snippets.", err)
		return nil
	}
	return engine
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
