package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"reddit-video-maker/internal"
	"reddit-video-maker/internal/logging"
	"reddit-video-maker/internal/s3"
	"reddit-video-maker/internal/store"
	"reddit-video-maker/internal/textproc"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	var (
		configPath   = flag.String("config", "config.toml", "Path to config.toml")
		syncHistory  = flag.Bool("sync-history", false, "Merge videos.json with the copy in S3")
		checkArchive = flag.Bool("check-archive", false, "List recorded videos missing from the S3 archive")
		syncAll      = flag.Bool("sync-all", false, "Do both")
	)
	flag.Parse()

	if !*syncHistory && !*checkArchive && !*syncAll {
		fmt.Println("Usage: sync [-config path] [-sync-history] [-check-archive] [-sync-all]")
		fmt.Println()
		fmt.Println("Options:")
		fmt.Println("  -sync-history     Merge videos.json with the copy in S3")
		fmt.Println("  -check-archive    List recorded videos missing from the S3 archive")
		fmt.Println("  -sync-all         Do both")
		os.Exit(1)
	}

	cfg, err := internal.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New("sync.log")
	if err != nil {
		fmt.Printf("Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	s3Client, err := s3.New(cfg.S3)
	if err != nil {
		log.Errorf("Error creating S3 client: %v", err)
		os.Exit(1)
	}

	ctx := context.Background()
	history := store.NewHistory(store.LocalStore{}, cfg.Paths.VideosJSON, log).WithMirror(s3Client, cfg.S3.VideosKey)
	failed := false

	if *syncAll || *syncHistory {
		fmt.Println("=== Synchronizing videos.json with S3 ===")
		local, remote, err := history.Sync(ctx)
		if err != nil {
			log.Errorf("Error syncing history: %v", err)
			fmt.Printf("❌ Error syncing history: %v\n", err)
			failed = true
		} else {
			fmt.Printf("✅ History synchronized (local +%d, S3 +%d)\n", local, remote)
		}
	}

	if *syncAll || *checkArchive {
		fmt.Println("=== Checking the S3 video archive ===")
		missing, err := missingFromArchive(ctx, history, s3Client, cfg.S3.Prefix)
		if err != nil {
			log.Errorf("Error checking archive: %v", err)
			fmt.Printf("❌ Error checking archive: %v\n", err)
			failed = true
		} else if len(missing) == 0 {
			fmt.Println("✅ Every recorded video is archived")
		} else {
			fmt.Printf("⚠️ %d recorded video(s) are not archived:\n", len(missing))
			for _, id := range missing {
				fmt.Printf("  - %s\n", id)
			}
		}
	}

	if failed {
		os.Exit(1)
	}
}

// missingFromArchive returns the IDs of recorded videos that have no object
// under prefix/<id>/ in the bucket.
func missingFromArchive(ctx context.Context, history *store.History, c s3.Client, prefix string) ([]string, error) {
	idx, err := history.Load(ctx)
	if err != nil {
		return nil, err
	}
	objects, err := c.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	archived := lo.Associate(objects, func(o s3.ObjectInfo) (string, struct{}) {
		id, _, _ := strings.Cut(strings.TrimPrefix(o.Key, prefix), "/")
		return id, struct{}{}
	})
	var missing []string
	for _, v := range idx.Items {
		if _, ok := archived[textproc.SafeID(v.ID)]; !ok {
			missing = append(missing, v.ID)
		}
	}
	return missing, nil
}
