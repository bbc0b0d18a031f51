package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"timeline-pipeline/assets"
	"timeline-pipeline/compose"
	"timeline-pipeline/config"
	"timeline-pipeline/media"
	"timeline-pipeline/music"
	"timeline-pipeline/pipeline"
	"timeline-pipeline/planner"
	"timeline-pipeline/publish"
	"timeline-pipeline/research"
	"timeline-pipeline/speech"
	"timeline-pipeline/store"
	"timeline-pipeline/visuals"
)

func main() {
	// Load .env for local dev; production runs use real env vars.
	_ = godotenv.Load()

	var (
		topic      = flag.String("topic", "", "topic for the timeline video (discovered from reddit when empty)")
		language   = flag.String("language", "en", "video language (en or es)")
		configPath = flag.String("config", "config.yaml", "path to config file")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("Failed to load config: %v", err)
		}
		log.Printf("No config at %s — using defaults", *configPath)
		cfg = config.Default()
	}

	for _, dir := range []string{cfg.Paths.MediaRoot, cfg.Paths.Logs} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create dir %s: %v", dir, err)
		}
	}

	ctx := context.Background()

	if *topic == "" {
		discoverer, err := research.New(cfg)
		if err != nil {
			log.Fatalf("No topic given and topic discovery unavailable: %v", err)
		}
		suggested, err := discoverer.SuggestTopic(ctx)
		if err != nil {
			log.Fatalf("No topic given and discovery failed: %v", err)
		}
		*topic = suggested
	}

	st := store.New(cfg.Paths.MediaRoot)
	tool := media.NewTool(cfg)

	speechClient, err := speech.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to init speech client: %v", err)
	}
	imageClient := visuals.NewImagenClient(cfg)

	orch := pipeline.New(
		cfg,
		st,
		planner.New(cfg),
		assets.New(cfg, st, speechClient, imageClient, tool),
		compose.New(cfg, st, tool),
		music.New(cfg),
	)

	state, err := orch.Run(ctx, *topic, *language)
	if err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}
	log.Printf("Video ready: %s", state.VideoFile)

	if cfg.Publish.Enabled {
		pub := publish.New(cfg)
		id, url, err := pub.Run(ctx, state.VideoFile, state.Plan)
		if err != nil {
			log.Printf("Warning: publish failed: %v", err)
		} else {
			log.Printf("Published %s: %s", id, url)
		}
	}
}
