package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kdimtricp/vsearch/internal/ai"
	"github.com/kdimtricp/vsearch/internal/api"
	"github.com/kdimtricp/vsearch/internal/database"
	"github.com/kdimtricp/vsearch/internal/index"
	"github.com/kdimtricp/vsearch/internal/ingest"
	"github.com/kdimtricp/vsearch/internal/library"
	"github.com/kdimtricp/vsearch/internal/media"
	"github.com/kdimtricp/vsearch/internal/models"
	"github.com/kdimtricp/vsearch/internal/search"
	"github.com/kdimtricp/vsearch/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	port := getenv("PORT", "8080")
	dataDir := getenv("DATA_DIR", "./data")

	maxSize, err := strconv.ParseInt(getenv("MAX_UPLOAD_SIZE", "2147483648"), 10, 64)
	if err != nil {
		log.Fatal("Invalid MAX_UPLOAD_SIZE:", err)
	}

	var dbConfig database.Config
	dbConfig.Type = getenv("DB_TYPE", "sqlite")
	if dbConfig.Type == "postgres" {
		dbConfig.Host = getenv("DB_HOST", "localhost")
		dbPort, err := strconv.Atoi(getenv("DB_PORT", "5432"))
		if err != nil {
			log.Fatal("Invalid DB_PORT:", err)
		}
		dbConfig.Port = dbPort
		dbConfig.User = getenv("DB_USER", "vsearch")
		dbConfig.Password = getenv("DB_PASSWORD", "vsearch_dev")
		dbConfig.Name = getenv("DB_NAME", "vsearch")
	} else {
		dbConfig.SQLitePath = getenv("DB_PATH", "./vsearch.db")
	}

	store, err := storage.NewLocalStorage(dataDir)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}

	db, err := database.NewDB(dbConfig)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	videoRepo := database.NewVideoRepository(db)
	segmentRepo := database.NewSegmentRepository(db)

	registry := library.NewRegistry(videoRepo, segmentRepo)
	if err := registry.Load(context.Background()); err != nil {
		log.Fatal("Failed to load video library:", err)
	}

	mediaProc, err := media.NewProcessor()
	if err != nil {
		log.Fatal("Failed to initialize media processor:", err)
	}

	apiKey := getenv("OPENAI_API_KEY", "not-needed")
	whisper := ai.NewWhisperClient(getenv("WHISPER_BASE_URL", "http://localhost:8000/v1"), apiKey)
	embedder := ai.NewEmbeddingClient(
		getenv("EMBEDDING_BASE_URL", "http://localhost:8001/v1"),
		apiKey,
		getenv("EMBEDDING_MODEL", "all-MiniLM-L6-v2"),
	)
	visual := ai.NewVisualClient(getenv("VISUAL_BASE_URL", "http://localhost:8002"))

	hasAccelerator := ai.DetectAccelerator()
	llm := ai.NewLLMService(
		getenv("LLM_BASE_URL", "http://localhost:11434/v1"),
		apiKey,
		defaultModelCatalog(),
		hasAccelerator,
		nil,
	)

	indexes := index.NewSet()
	if err := rebuildIndexes(context.Background(), registry, embedder, visual, indexes, store); err != nil {
		log.Printf("Failed to rebuild search indices: %v", err)
	}

	frameRate, err := strconv.ParseFloat(getenv("FRAME_SAMPLE_RATE", "0.5"), 64)
	if err != nil {
		log.Fatal("Invalid FRAME_SAMPLE_RATE:", err)
	}
	workers, err := strconv.Atoi(getenv("INGEST_WORKERS", "2"))
	if err != nil {
		log.Fatal("Invalid INGEST_WORKERS:", err)
	}

	queue := ingest.NewQueue(0)
	pipeline := ingest.NewPipeline(registry, store, mediaProc, whisper, embedder, visual, indexes, frameRate)
	pool := ingest.NewPool(queue, pipeline, registry, workers)
	pool.Start()
	defer pool.Stop()

	svc := library.NewService(registry, store, queue, indexes, mediaProc)
	svc.Resume()

	orchestrator := search.NewOrchestrator(registry, indexes, embedder, visual, llm)

	app := &api.App{
		Library:       svc,
		Search:        orchestrator,
		LLM:           llm,
		Storage:       store,
		MaxUploadSize: maxSize,
	}

	server := &http.Server{
		Addr:    ":" + port,
		Handler: api.NewRouter(app),
	}

	go func() {
		log.Printf("Server starting on port %s", port)
		log.Printf("Data directory: %s", dataDir)
		log.Printf("Database type: %s", dbConfig.Type)
		log.Printf("Accelerator present: %v", hasAccelerator)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func defaultModelCatalog() []ai.ModelInfo {
	return []ai.ModelInfo{
		{ID: "qwen2.5:3b", DisplayName: "Qwen 2.5 3B", RequiresAccelerator: false},
		{ID: "llama3.1:8b", DisplayName: "Llama 3.1 8B", RequiresAccelerator: false},
		{ID: "qwen2.5:32b", DisplayName: "Qwen 2.5 32B", RequiresAccelerator: true},
		{ID: "deepseek-r1:32b", DisplayName: "DeepSeek R1 32B", RequiresAccelerator: true},
	}
}

// rebuildIndexes restores the in-memory search indices for completed videos
// from the persisted transcripts. Frame files on disk are re-embedded so the
// visual index comes back too.
func rebuildIndexes(
	ctx context.Context,
	registry *library.Registry,
	embedder *ai.EmbeddingClient,
	visual *ai.VisualClient,
	indexes *index.Set,
	store storage.Storage,
) error {
	for _, video := range registry.List() {
		if video.Status != models.StatusCompleted {
			continue
		}
		segments, err := registry.Segments(ctx, video.ID)
		if err != nil {
			return err
		}
		if len(segments) == 0 {
			continue
		}

		lexical := make([]index.LexicalEntry, len(segments))
		texts := make([]string, len(segments))
		for i, seg := range segments {
			lexical[i] = index.LexicalEntry{
				SegmentID: seg.ID,
				VideoID:   video.ID,
				Start:     seg.Start,
				End:       seg.End,
				Text:      seg.Text,
			}
			texts[i] = seg.Text
		}
		indexes.Lexical.Put(video.ID, lexical)

		vectors, err := embedder.EmbedTexts(ctx, texts)
		if err != nil {
			log.Printf("Failed to re-embed transcript of video %s: %v", video.ID, err)
			continue
		}
		entries := make([]index.VectorEntry, len(segments))
		for i, seg := range segments {
			entries[i] = index.VectorEntry{
				SegmentID: seg.ID,
				VideoID:   video.ID,
				Start:     seg.Start,
				End:       seg.End,
				Text:      seg.Text,
				Vector:    vectors[i],
			}
		}
		indexes.Semantic.Put(video.ID, entries)

		if frames := rescanFrames(video.ID, store); len(frames) > 0 {
			paths := make([]string, len(frames))
			for i, frame := range frames {
				paths[i] = frame.Path
			}
			frameVectors, err := visual.EmbedImages(ctx, paths)
			if err != nil {
				log.Printf("Failed to re-embed frames of video %s: %v", video.ID, err)
				continue
			}
			for i := range frames {
				frames[i].Vector = frameVectors[i]
			}
			indexes.Visual.Put(video.ID, frames)
		}
	}
	return nil
}

// rescanFrames recovers frame entries from the files SampleFrames left on
// disk, named "<segmentID>_<timestamp>.jpg".
func rescanFrames(videoID string, store storage.Storage) []index.FrameEntry {
	dir := store.FramesDir(videoID)
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var frames []index.FrameEntry
	for _, file := range files {
		name := file.Name()
		if filepath.Ext(name) != ".jpg" {
			continue
		}
		stem := strings.TrimSuffix(name, ".jpg")
		sep := strings.LastIndex(stem, "_")
		if sep <= 0 {
			continue
		}
		ts, err := strconv.ParseFloat(stem[sep+1:], 64)
		if err != nil {
			continue
		}
		frames = append(frames, index.FrameEntry{
			FrameID:   stem,
			SegmentID: stem[:sep],
			VideoID:   videoID,
			Timestamp: ts,
			Path:      filepath.Join(dir, name),
		})
	}
	return frames
}
