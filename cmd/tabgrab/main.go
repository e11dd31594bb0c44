package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/tabgrab/tabgrab/internal/config"
	"github.com/tabgrab/tabgrab/internal/services"
)

func main() {
	flags := pflag.NewFlagSet("tabgrab", pflag.ExitOnError)
	flags.StringP("output", "o", "", "output directory (defaults to <artist>_<title>)")
	flags.Bool("force", false, "write into a non-empty output directory")
	flags.Bool("pdf", false, "render a PDF tab for each downloaded track")
	flags.Bool("headless", true, "run the browser headless")
	flags.Int("concurrency", 4, "number of parallel track downloads")
	flags.String("user-agent", "", "override the browser user agent")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tabgrab [flags] <song-url>\n\nFlags:\n")
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	if flags.NArg() != 1 {
		flags.Usage()
		os.Exit(2)
	}
	songURL := flags.Arg(0)

	cfg, err := config.LoadConfig(flags)
	logger := config.GetLogger()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("url", songURL).
		Bool("headless", cfg.Browser.Headless).
		Int("concurrency", cfg.Fetch.Concurrency).
		Msg("Starting tab download")

	downloader := services.NewSongDownloader(cfg)
	report, err := downloader.Download(ctx, songURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Download failed")
	}

	fmt.Printf("%s - %s\n", report.SongInfo.Artist, report.SongInfo.Title)
	fmt.Printf("Saved %d track file(s), %d bytes, to %s\n", len(report.Files), report.TotalBytes, report.OutputDir)
	if report.PDFCount > 0 {
		fmt.Printf("Rendered %d PDF tab(s)\n", report.PDFCount)
	}
	if len(report.FailedTracks) > 0 {
		for _, name := range report.FailedTracks {
			fmt.Fprintf(os.Stderr, "Failed to download %s\n", name)
		}
		os.Exit(1)
	}
}
