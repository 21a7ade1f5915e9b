package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/yiblet/clipped/internal/actions"
	"github.com/yiblet/clipped/internal/capture"
	"github.com/yiblet/clipped/internal/classify"
	"github.com/yiblet/clipped/internal/clipboard"
	"github.com/yiblet/clipped/internal/clipboard/mockboard"
	"github.com/yiblet/clipped/internal/history"
	"github.com/yiblet/clipped/internal/logging"
	"github.com/yiblet/clipped/internal/monitor"
	"github.com/yiblet/clipped/internal/snapshot"
	"github.com/yiblet/clipped/internal/storage"
	"github.com/yiblet/clipped/internal/store/memstore"
)

const interval = 20 * time.Millisecond

func main() {
	fmt.Println("clipped capture pipeline demo")

	logger := logging.Setup(logging.FormatText, slog.LevelInfo)

	dataDir, err := os.MkdirTemp("", "clipped-demo-")
	if err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}
	defer os.RemoveAll(dataDir)

	pfs, err := storage.NewFS(dataDir)
	if err != nil {
		log.Fatalf("Failed to create payload dir: %v", err)
	}

	// Spill anything over 64 KiB so the image below lands on disk.
	policy := storage.DefaultPolicy()
	policy.InlineThreshold = 64 << 10

	engine := storage.NewEngine(pfs, policy, logger)
	repo := history.New(memstore.NewMemoryStore(), engine, 0, logger)
	defer repo.Close()

	board := mockboard.New()
	classifier := classify.New(logger)
	builder := capture.NewBuilder(engine, logger)
	mon := monitor.New(board, classifier, builder, repo,
		monitor.WithInterval(interval),
		monitor.WithLogger(logger),
	)
	act := actions.New(repo, board, classifier, builder,
		actions.WithMonitor(mon),
		actions.WithLogger(logger),
	)

	ctx := context.Background()
	if err := mon.Start(ctx); err != nil {
		log.Fatalf("Failed to start monitor: %v", err)
	}
	defer mon.Stop()

	fmt.Printf("Payload directory: %s\n\n", engine.Dir())

	// Simulate other applications copying things.
	copies := [][]clipboard.Item{
		{{Type: snapshot.TypeString, Data: []byte("Hello, World! This is the first clipboard entry.")}},
		{{Type: snapshot.TypeString, Data: []byte("https://www.example.com/docs")}},
		{
			{Type: snapshot.TypeHTML, Data: []byte("<h1>Notes</h1><p>Some <b>bold</b> text</p>")},
			{Type: snapshot.TypeString, Data: []byte("Notes\nSome bold text")},
		},
		{{Type: snapshot.TypePNG, Data: gradientPNG(640, 480)}},
		{{Type: snapshot.TypeString, Data: []byte("https://www.example.com/docs")}},
	}

	fmt.Println("Copying from other applications:")
	for i, items := range copies {
		board.Set(items...)
		time.Sleep(4 * interval)
		fmt.Printf("%d. offered %d representation(s), first %s\n", i+1, len(items), items[0].Type)
	}

	printHistory(repo)

	// Copy the oldest entry back; the monitor must not record it again.
	recent, err := repo.Recent(0)
	if err != nil {
		log.Fatalf("Failed to list history: %v", err)
	}
	oldest := recent[len(recent)-1]
	if err := act.CopyToClipboard(ctx, oldest); err != nil {
		log.Fatalf("Failed to copy: %v", err)
	}
	time.Sleep(4 * interval)
	fmt.Printf("\nCopied back to clipboard: %s\n", oldest.Preview())

	count, _ := repo.Count()
	fmt.Printf("Entries after copy: %d (unchanged)\n", count)

	stats := mon.Stats()
	fmt.Printf("Monitor: %d captures, %d duplicates, %d misses, %d failures\n",
		stats.Captures, stats.Duplicates, stats.Misses, stats.Failures)

	if err := act.ClearHistory(); err != nil {
		log.Fatalf("Failed to clear: %v", err)
	}
	spilled, _ := engine.Spilled()
	fmt.Printf("After clear: %d spilled payload(s) left\n", len(spilled))
}

func printHistory(repo *history.Repository) {
	snaps, err := repo.Recent(0)
	if err != nil {
		log.Fatalf("Failed to list history: %v", err)
	}

	fmt.Printf("\nHistory (%d entries, newest first):\n", len(snaps))
	for i, s := range snaps {
		where := "inline"
		if s.Spilled() {
			where = fmt.Sprintf("spilled %s (%d bytes, preview %d bytes)", s.FileName, s.FileSize, len(s.PreviewData))
		}
		fmt.Printf("%d. [%s] %-7s %s  <%s>\n", i, s.Timestamp.Format("15:04:05"), s.Category, s.Preview(), where)
	}
}

// gradientPNG encodes an uncompressible-enough test image.
func gradientPNG(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: uint8((x ^ y) & 0xff), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		log.Fatalf("Failed to encode image: %v", err)
	}
	return buf.Bytes()
}
