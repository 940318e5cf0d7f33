package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"reddit-video-maker/internal/logging"
	"reddit-video-maker/internal/scheduler"
	"reddit-video-maker/internal/video"
)

const (
	defaultTailLines = 20
	maxTailLines     = 100
)

// Controller runs videos on demand and reports the scheduler state.
type Controller interface {
	RunOnce(ctx context.Context, postID string) (*video.Result, error)
	Status() scheduler.Status
}

// TelegramBot is the control bot for serve mode: it starts videos, reports
// status and errors, and accepts YouTube credential files.
type TelegramBot struct {
	tg         *tgbotapi.BotAPI
	ctl        Controller
	log        *logging.Logger
	errorsPath string
	adminChat  int64

	// file name accepted by handleDocument -> local path
	credentials map[string]string
	httpClient  *http.Client
	cancelFunc  context.CancelFunc
}

// NewTelegramBot connects to the Bot API at endpoint (tgbotapi.APIEndpoint
// when empty). Only adminChat may run commands that change state; zero
// allows every chat.
func NewTelegramBot(token, endpoint string, adminChat int64, ctl Controller, log *logging.Logger, errorsPath string) (*TelegramBot, error) {
	if token == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN is empty")
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, err
	}
	api.Debug = false
	return &TelegramBot{
		tg:          api,
		ctl:         ctl,
		log:         log,
		errorsPath:  errorsPath,
		adminChat:   adminChat,
		credentials: map[string]string{},
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// SetCancelFunc lets the memory watcher stop the application.
func (b *TelegramBot) SetCancelFunc(cancel context.CancelFunc) {
	b.cancelFunc = cancel
}

// AcceptCredentials lets the admin replace the YouTube client secrets and
// token by sending them as documents.
func (b *TelegramBot) AcceptCredentials(clientSecrets, tokenFile string) {
	for _, p := range []string{clientSecrets, tokenFile} {
		if p != "" {
			b.credentials[strings.ToLower(filepath.Base(p))] = p
		}
	}
}

func (b *TelegramBot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.tg.GetUpdatesChan(u)
	b.log.Infof("telegram bot started as @%s", b.tg.Self.UserName)
	if b.adminChat == 0 {
		b.log.Warnf("telegram bot: ADMIN_CHAT_ID is not set, /make and credential uploads are disabled (use /chatid to find it)")
	}

	go b.runMemoryWatcher(ctx)

	for {
		select {
		case <-ctx.Done():
			b.tg.StopReceivingUpdates()
			return nil
		case upd := <-updates:
			switch {
			case upd.Message == nil:
			case upd.Message.IsCommand():
				b.handleCommand(ctx, upd.Message)
			case upd.Message.Document != nil:
				b.handleDocument(ctx, upd.Message)
			}
		}
	}
}

func (b *TelegramBot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.replyText(chatID, "👋 Reddit video maker bot. /help lists the commands.")
	case "help":
		b.cmdHelp(chatID)
	case "make":
		if !b.allowed(chatID) {
			b.replyText(chatID, "⛔ Only the admin chat can start videos")
			return
		}
		go b.cmdMake(ctx, chatID, args)
	case "status":
		b.cmdStatus(chatID)
	case "errors":
		b.cmdErrors(chatID)
	case "lasterrors":
		b.cmdLastErrors(chatID, args)
	case "chatid":
		b.replyText(chatID, fmt.Sprintf("Chat ID: %d", chatID))
	default:
		b.replyText(chatID, "Unknown command. /help lists the commands.")
	}
}

// allowed reports whether chatID may start videos or replace credentials.
// Without an admin chat nobody may.
func (b *TelegramBot) allowed(chatID int64) bool {
	return b.adminChat != 0 && chatID == b.adminChat
}

func (b *TelegramBot) cmdHelp(chatID int64) {
	help := `Commands:
/start - greeting
/help - this help
/make [post_id] - make a video now, from post_id or from a thread picked by the bot
/status - scheduler state, last run and memory usage
/errors - download errors.log
/lasterrors [n] - show the last n lines of errors.log (default 20)
/chatid - show this chat's ID

📎 Send client_secrets.json or the YouTube token file as a document to replace it.`
	b.replyText(chatID, help)
}

func (b *TelegramBot) cmdMake(ctx context.Context, chatID int64, postID string) {
	if postID != "" {
		b.replyText(chatID, fmt.Sprintf("🎬 Making a video for %s...", postID))
	} else {
		b.replyText(chatID, "🎬 Making a video...")
	}

	res, err := b.ctl.RunOnce(ctx, postID)
	switch {
	case errors.Is(err, scheduler.ErrBusy):
		b.replyText(chatID, "⏳ A video is already being made, try again later")
		return
	case err != nil:
		b.log.Errorf("bot make video: %v", err)
		b.replyText(chatID, fmt.Sprintf("❌ Video failed: %v", err))
		return
	}
	b.replyText(chatID, formatResult(res))
}

func formatResult(res *video.Result) string {
	var sb strings.Builder
	sb.WriteString("✅ Video ready")
	if res.Thread != nil {
		fmt.Fprintf(&sb, ": %s", res.Thread.Title)
	}
	fmt.Fprintf(&sb, "\n📁 %s", res.Video)

	platforms := make([]string, 0, len(res.Uploads))
	for p := range res.Uploads {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	for _, p := range platforms {
		r := res.Uploads[p]
		switch {
		case r == nil:
		case r.Success && r.URL != "":
			fmt.Fprintf(&sb, "\n✓ %s: %s", p, r.URL)
		case r.Success:
			fmt.Fprintf(&sb, "\n✓ %s", p)
		default:
			fmt.Fprintf(&sb, "\n✗ %s: %s", p, r.Error)
		}
	}
	if !res.Recorded {
		sb.WriteString("\n(not recorded in history)")
	}
	return sb.String()
}

func (b *TelegramBot) cmdStatus(chatID int64) {
	st := b.ctl.Status()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	var sb strings.Builder
	sb.WriteString("📊 Status:\n\n")
	if st.Running {
		fmt.Fprintf(&sb, "🎬 Making a video since %s\n", st.LastStart.Format(time.RFC3339))
	} else {
		sb.WriteString("💤 Idle\n")
	}
	if !st.Next.IsZero() {
		fmt.Fprintf(&sb, "⏰ Next scheduled video: %s\n", st.Next.Format(time.RFC3339))
	}
	fmt.Fprintf(&sb, "🔁 Runs: %d (failed: %d)\n", st.Runs, st.Failures)
	if st.LastVideo != "" {
		fmt.Fprintf(&sb, "🎥 Last video: %s\n", st.LastVideo)
	}
	if st.LastError != "" {
		fmt.Fprintf(&sb, "❌ Last error: %s\n", st.LastError)
	}
	fmt.Fprintf(&sb, "🧠 Heap: %d MB, goroutines: %d", ms.HeapAlloc/(1024*1024), runtime.NumGoroutine())
	b.replyText(chatID, sb.String())
}

func (b *TelegramBot) cmdErrors(chatID int64) {
	f, err := os.Open(b.errorsPath)
	if err != nil {
		b.log.Errorf("open errors.log: %v", err)
		b.replyText(chatID, "❌ Could not open errors.log")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		b.log.Errorf("stat errors.log: %v", err)
		b.replyText(chatID, "❌ Could not read errors.log")
		return
	}
	if info.Size() == 0 {
		b.replyText(chatID, "📋 errors.log is empty")
		return
	}

	msg := tgbotapi.NewDocument(chatID, tgbotapi.FileReader{Name: "errors.log", Reader: f})
	msg.Caption = fmt.Sprintf("📋 errors.log (%d bytes)", info.Size())
	if _, err := b.tg.Send(msg); err != nil {
		b.log.Errorf("send errors.log: %v", err)
		b.replyText(chatID, "❌ Could not send the file")
	}
}

func (b *TelegramBot) cmdLastErrors(chatID int64, args string) {
	n := defaultTailLines
	if args != "" {
		v, err := strconv.Atoi(args)
		if err != nil || v <= 0 {
			b.replyText(chatID, "Usage: /lasterrors [n]")
			return
		}
		n = min(v, maxTailLines)
	}

	lines, err := TailLastNLines(b.errorsPath, n)
	if err != nil {
		b.log.Errorf("tail errors.log: %v", err)
		b.replyText(chatID, "❌ Could not read errors.log")
		return
	}
	if len(lines) == 0 {
		b.replyText(chatID, "📋 errors.log is empty")
		return
	}
	b.replyText(chatID, strings.Join(lines, "\n"))
}

// handleDocument stores a credential file sent by the admin at its
// configured path.
func (b *TelegramBot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	doc := msg.Document
	if !b.allowed(chatID) {
		b.replyText(chatID, "⛔ Only the admin chat can upload files")
		return
	}

	target, ok := b.credentials[strings.ToLower(filepath.Base(doc.FileName))]
	if !ok {
		names := make([]string, 0, len(b.credentials))
		for name := range b.credentials {
			names = append(names, name)
		}
		sort.Strings(names)
		b.replyText(chatID, fmt.Sprintf("❌ Unknown file. Expected one of: %s", strings.Join(names, ", ")))
		return
	}

	link, err := b.tg.GetFileDirectURL(doc.FileID)
	if err != nil {
		b.log.Errorf("get file %s: %v", doc.FileName, err)
		b.replyText(chatID, fmt.Sprintf("❌ Download failed: %v", err))
		return
	}
	if err := b.download(ctx, link, target); err != nil {
		b.log.Errorf("save %s: %v", target, err)
		b.replyText(chatID, fmt.Sprintf("❌ Could not save %s: %v", target, err))
		return
	}
	b.log.Infof("bot: saved %s to %s", doc.FileName, target)
	b.replyText(chatID, fmt.Sprintf("✅ Saved %s", target))
}

func (b *TelegramBot) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func (b *TelegramBot) replyText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.tg.Send(msg); err != nil {
		b.log.Errorf("telegram send: %v", err)
	}
}
