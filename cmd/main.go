package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"reddit-video-maker/internal"
	"reddit-video-maker/internal/bot"
	"reddit-video-maker/internal/logging"
	"reddit-video-maker/internal/scheduler"
	"reddit-video-maker/internal/uploaders"
	"reddit-video-maker/internal/video"
)

type makeFlags struct {
	postID    string
	debug     bool
	shorts    bool
	subtitles bool
	story     string
	times     int
}

func main() {
	// Load .env file if it exists (try multiple paths)
	for _, path := range []string{".env", "../.env", "../../.env"} {
		_ = godotenv.Load(path)
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	mf := &makeFlags{}

	makeCmd := &cobra.Command{
		Use:   "make",
		Short: "Make videos from Reddit threads",
		Long: `Fetch a Reddit thread, narrate it, cut a background, render the video and
upload it to the configured platforms.

Several post IDs may be joined with "+", each becomes its own video.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMake(cmd, configPath, mf)
		},
	}
	makeCmd.Flags().StringVarP(&mf.postID, "post-id", "p", "", "Reddit post ID(s), joined with +")
	makeCmd.Flags().BoolVar(&mf.debug, "debug", false, "Cheap voice, no upload and no history")
	makeCmd.Flags().BoolVar(&mf.shorts, "shorts", true, "Vertical short instead of a long form video")
	makeCmd.Flags().BoolVar(&mf.subtitles, "subtitles", true, "Burn word subtitles into the video")
	makeCmd.Flags().StringVar(&mf.story, "generate-story", "", "Narrate an AI story about SUBJECT instead of Reddit")
	makeCmd.Flags().IntVarP(&mf.times, "times", "n", 1, "How many times to run")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Make a video on the configured cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	var code string
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Authorize YouTube uploads and save the OAuth token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(cmd, configPath, code)
		},
	}
	tokenCmd.Flags().StringVar(&code, "code", "", "Authorization code, asked for when empty")

	root := &cobra.Command{
		Use:           "reddit-video-maker",
		Short:         "Turn Reddit threads into narrated videos",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          makeCmd.RunE,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "Path to config.toml")
	root.Flags().AddFlagSet(makeCmd.Flags())
	root.AddCommand(makeCmd, serveCmd, tokenCmd)
	return root
}

func loadConfig(path string) (internal.Config, error) {
	cfg, err := internal.LoadConfig(path)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyMode(cfg.Settings.Shorts, cfg.Settings.Debug)
	return cfg, nil
}

// applyFlags lets explicitly set flags win over config.toml.
func applyFlags(cmd *cobra.Command, cfg *internal.Config, mf *makeFlags) {
	flags := cmd.Flags()
	shorts, debug := cfg.Settings.Shorts, cfg.Settings.Debug
	if flags.Changed("shorts") {
		shorts = mf.shorts
	}
	if flags.Changed("debug") {
		debug = mf.debug
	}
	cfg.ApplyMode(shorts, debug)

	if flags.Changed("subtitles") {
		cfg.Settings.Subtitles = mf.subtitles
	}
	if mf.story != "" {
		cfg.AI.GenerateStory = true
		cfg.AI.StorySubject = mf.story
	}
	if mf.postID != "" {
		cfg.Reddit.Thread.PostID = mf.postID
	}
}

// postIDs splits the "+" separated list. An empty list yields one empty ID
// so the source picks a thread.
func postIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, "+") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []string{""}
	}
	return ids
}

func signalContext(log *logging.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	// Stop on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Infof("shutdown signal received, cleaning up")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func runMake(cmd *cobra.Command, configPath string, mf *makeFlags) error {
	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg, mf)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logging.New(cfg.Paths.ErrorsLog)
	if err != nil {
		return err
	}
	defer log.Close()
	log.SetDebug(cfg.Settings.Debug)

	ctx, cancel := signalContext(log)
	defer cancel()

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		log.Errorf("build: %v", err)
		return err
	}

	ids := postIDs(cfg.Reddit.Thread.PostID)
	var failed int
	for run := 1; run <= max(1, mf.times); run++ {
		for i, id := range ids {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if len(ids) > 1 {
				log.Infof("on post %d/%d", i+1, len(ids))
			}
			if _, err := a.gen.Make(ctx, video.Options{PostID: id, Debug: cfg.Settings.Debug}); err != nil {
				failed++
				reportFailure(log, cfg, err)
			}
		}
		if mf.times > 1 {
			log.Infof("finished run %d/%d", run, mf.times)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d video(s) failed, see %s", failed, cfg.Paths.ErrorsLog)
	}
	return nil
}

// reportFailure logs err together with the configuration, secrets removed.
func reportFailure(log *logging.Logger, cfg internal.Config, err error) {
	if errors.Is(err, context.Canceled) {
		log.Warnf("make: interrupted")
		return
	}
	log.Errorf("make: %v", err)
	dump, mErr := toml.Marshal(cfg.Redacted())
	if mErr != nil {
		return
	}
	log.Errorf("make: config was:\n%s", dump)
}

func runServe(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logging.New(cfg.Paths.ErrorsLog)
	if err != nil {
		return err
	}
	defer log.Close()
	log.SetDebug(cfg.Settings.Debug)

	ctx, cancel := signalContext(log)
	defer cancel()

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		log.Errorf("build: %v", err)
		return err
	}

	svc, err := scheduler.New(cfg.Scheduling.Cron, a.gen, cfg.Settings.Debug, log)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.Scheduling.Cron, err)
	}
	go func() {
		if err := svc.Run(ctx); err != nil {
			log.Errorf("scheduler stopped: %v", err)
			cancel()
		}
	}()

	if cfg.Bot.Enabled {
		b, err := bot.NewTelegramBot(cfg.Upload.TelegramToken, "", cfg.Bot.AdminChatID, svc, log, cfg.Paths.ErrorsLog)
		if err != nil {
			log.Errorf("bot init: %v", err)
			return err
		}
		b.SetCancelFunc(cancel)
		b.AcceptCredentials(cfg.Upload.ClientSecrets, cfg.Upload.TokenFile)
		go func() {
			if err := b.Run(ctx); err != nil {
				log.Errorf("bot run: %v", err)
			}
		}()
	}

	<-ctx.Done()
	time.Sleep(300 * time.Millisecond)
	return nil
}

func runToken(cmd *cobra.Command, configPath, code string) error {
	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		return err
	}
	secrets, tokenPath := cfg.Upload.ClientSecrets, cfg.Upload.TokenFile
	out := cmd.OutOrStdout()

	if _, err := os.Stat(secrets); err != nil {
		fmt.Fprintf(out, "❌ Credentials file not found: %s\n", secrets)
		fmt.Fprintln(out, "   Create OAuth 2.0 desktop credentials in the Google Cloud Console and save the JSON there.")
		return err
	}

	if code == "" {
		url, err := uploaders.YouTubeAuthURL(secrets)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "📱 Open this URL in your browser:")
		fmt.Fprintf(out, "   %s\n\n", url)
		fmt.Fprint(out, "👉 Paste the authorization code: ")

		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read auth code: %w", err)
		}
		code = strings.TrimSpace(line)
	}

	if err := uploaders.ExchangeYouTubeCode(cmd.Context(), secrets, tokenPath, code); err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Token saved to %s\n", tokenPath)
	return nil
}
