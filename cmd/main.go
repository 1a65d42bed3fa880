package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/safdari/biharrag/pkg/config"
	"github.com/safdari/biharrag/pkg/llm"
	"github.com/safdari/biharrag/pkg/pipeline"
	"github.com/safdari/biharrag/pkg/processor"
	"github.com/safdari/biharrag/pkg/ranker"
	"github.com/safdari/biharrag/pkg/store"
	"github.com/safdari/biharrag/server"
)

type flags struct {
	configPath string
	ingestDir  string
	file       string
	volume     int
	serve      bool
	addr       string
	query      string
	dbURL      string
	ollamaURL  string
}

func main() {
	var f flags

	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.StringVar(&f.ingestDir, "ingest-dir", "", "Folder of volume PDFs to ingest")
	flag.StringVar(&f.file, "file", "", "Single volume PDF to ingest")
	flag.IntVar(&f.volume, "volume", 0, "Volume number for -file (detected from filename if omitted)")
	flag.BoolVar(&f.serve, "serve", false, "Run the HTTP API server")
	flag.StringVar(&f.addr, "addr", "", "Server listen address")
	flag.StringVar(&f.query, "query", "", "Ask one question and exit")
	flag.StringVar(&f.dbURL, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&f.ollamaURL, "ollama-url", os.Getenv("OLLAMA_BASE_URL"), "Ollama server URL")
	flag.Parse()

	if err := run(f); err != nil {
		log.Fatal(err)
	}
}

func run(f flags) error {
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}
	if f.dbURL != "" {
		cfg.Database.URL = f.dbURL
	}
	if f.ollamaURL != "" {
		cfg.LLM.BaseURL = f.ollamaURL
	}
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %s: %s", e.Field, e.Message)
		}
		return fmt.Errorf("invalid configuration")
	}

	ctx := context.Background()

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:      cfg.LLM.EmbedModel,
		BaseURL:    cfg.LLM.BaseURL,
		Dim:        cfg.Database.VectorDim,
		MaxTextLen: cfg.Embedding.MaxTextLen,
		Delay:      time.Duration(cfg.Embedding.DelayMS) * time.Millisecond,
		ErrorDelay: time.Duration(cfg.Embedding.ErrorDelayMS) * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	chatEngine, err := llm.NewChatWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.ChatModel,
		BaseURL:     cfg.LLM.BaseURL,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	chunkStore, err := store.NewWithConfig(ctx, store.StoreConfig{
		ConnString:       cfg.Database.URL,
		TableName:        cfg.Database.TableName,
		VectorDim:        cfg.Database.VectorDim,
		BatchSize:        cfg.Database.BatchSize,
		SimilarityFloor:  cfg.Search.SimilarityFloor,
		MinEnglishLength: cfg.Search.MinEnglishLength,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize store: %v", err)
	}
	defer chunkStore.Close()

	segmenter := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:      cfg.Processor.ChunkSize,
		ChunkOverlap:   cfg.Processor.ChunkOverlap,
		MinChunkLength: cfg.Processor.MinChunkLength,
		PageBatchSize:  cfg.Processor.PageBatchSize,
		MaxPages:       cfg.Processor.MaxPages,
	})

	rk := ranker.New(ranker.PolicyByName(cfg.Ranker.Policy))

	var bar *progressbar.ProgressBar
	pipe := pipeline.New(pipeline.Config{
		MaxPages:          cfg.Processor.MaxPages,
		LargeFileMaxPages: cfg.Processor.LargeFileMaxPages,
		LargeFileMB:       cfg.Processor.LargeFileMB,
		MaxAttempts:       cfg.Retry.MaxAttempts,
		BackoffBase:       time.Duration(cfg.Retry.BackoffBaseSec) * time.Second,
		Oversample:        cfg.Search.Oversample,
		OnProgress: func(done, total int) {
			if bar == nil || bar.GetMax() != total {
				bar = getProgressBar(total, "Embedding passages...")
			}
			bar.Set(done)
		},
	}, embedder, chunkStore, &segmenter, chatEngine, rk)

	switch {
	case f.serve:
		srv := server.New(server.Config{Addr: cfg.Server.Addr}, pipe, chunkStore)
		return srv.ListenAndServe()
	case f.file != "":
		return ingestFile(ctx, pipe, f.file, f.volume)
	case f.ingestDir != "":
		return ingestFolder(ctx, pipe, chunkStore, f.ingestDir)
	case f.query != "":
		return oneShot(ctx, pipe, f.query)
	default:
		return chatLoop(ctx, pipe)
	}
}

func ingestFile(ctx context.Context, pipe *pipeline.Pipeline, path string, volume int) error {
	if volume == 0 {
		volume = pipeline.VolumeNumberFromFilename(path)
	}
	if volume == 0 {
		return fmt.Errorf("could not determine volume number from %q, pass -volume", path)
	}

	color.Blue("\nIngesting volume %d from %s\n", volume, path)
	result, err := pipe.IngestVolume(ctx, path, volume)
	if err != nil {
		return err
	}
	color.Green("\n✓ Volume %d: %d chunks stored (%d/%d pages read)\n",
		result.VolumeNumber, result.Inserted, result.PagesRead, result.TotalPages)
	return nil
}

func ingestFolder(ctx context.Context, pipe *pipeline.Pipeline, chunkStore *store.Store, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read folder %s: %v", dir, err)
	}

	processed := make(map[int]bool)
	if records, err := chunkStore.ProcessedVolumes(ctx); err == nil {
		for _, r := range records {
			processed[r.VolumeNumber] = true
		}
	}

	type job struct {
		path   string
		volume int
	}
	var jobs []job
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		v := pipeline.VolumeNumberFromFilename(e.Name())
		if v == 0 {
			color.Yellow("Skipping %s: no volume number in filename", e.Name())
			continue
		}
		jobs = append(jobs, job{path: filepath.Join(dir, e.Name()), volume: v})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].volume < jobs[j].volume })

	color.Blue("\nFound %d volume PDFs in %s\n", len(jobs), dir)

	succeeded, failed, skipped := 0, 0, 0
	for _, j := range jobs {
		if processed[j.volume] {
			color.Yellow("Volume %d already processed, skipping", j.volume)
			skipped++
			continue
		}

		if err := ingestFile(ctx, pipe, j.path, j.volume); err != nil {
			color.Red("✗ Volume %d failed: %v", j.volume, err)
			failed++
			continue
		}
		succeeded++
	}

	color.Cyan("\nDone: %d ingested, %d skipped, %d failed\n", succeeded, skipped, failed)
	if failed > 0 {
		return fmt.Errorf("%d volumes failed", failed)
	}
	return nil
}

func oneShot(ctx context.Context, pipe *pipeline.Pipeline, query string) error {
	result, err := pipe.Query(ctx, pipeline.QueryRequest{Query: query})
	if err != nil {
		return err
	}

	fmt.Println(result.Answer)
	for _, src := range result.Sources {
		fmt.Printf("  - %s (similarity %.2f)\n", src.Citation, src.Similarity)
	}
	return nil
}

func chatLoop(ctx context.Context, pipe *pipeline.Pipeline) error {
	color.Cyan("\nAsk Bihar ul Anwar (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if strings.ToLower(query) == "exit" {
			break
		}
		if query == "" {
			continue
		}

		spinner := getSpinner("Searching volumes...")
		result, err := pipe.Query(ctx, pipeline.QueryRequest{Query: query})
		spinner.Finish()
		fmt.Print("\r")

		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}

		assistantPrompt("\nAssistant: %s\n", result.Answer)
		for _, src := range result.Sources {
			fmt.Printf("  - %s (similarity %.2f)\n", src.Citation, src.Similarity)
		}
	}

	return nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("chunks"),
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
