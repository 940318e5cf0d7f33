package uploaders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"reddit-video-maker/internal/logging"
)

const (
	maxUploadRetries = 10
	maxTitleRunes    = 100
)

var (
	ErrRetriesExhausted = errors.New("youtube: no longer attempting to retry")
	ErrNotAuthorized    = errors.New("youtube: token not found, run the token command first")

	retriableStatus = []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout}
	youtubeScopes   = []string{youtube.YoutubeUploadScope, youtube.YoutubeScope, youtube.YoutubepartnerScope}
)

// YouTubeUploader uploads through the Data API with the OAuth token stored
// next to the client secrets. Refreshed tokens are written back.
type YouTubeUploader struct {
	credentialsPath string
	tokenPath       string
	category        string
	log             *logging.Logger

	// endpoint overrides the API base URL.
	endpoint  string
	sleep     func(time.Duration)
	jitter    func() float64
	publishAt func() string
}

// NewYouTubeUploader creates a new YouTube uploader
func NewYouTubeUploader(credentialsPath, tokenPath, category string, log *logging.Logger) *YouTubeUploader {
	if credentialsPath == "" {
		credentialsPath = "client_secrets.json"
	}
	if tokenPath == "" {
		tokenPath = "token.json"
	}
	if category == "" {
		category = "24"
	}
	return &YouTubeUploader{
		credentialsPath: credentialsPath,
		tokenPath:       tokenPath,
		category:        category,
		log:             log,
		sleep:           time.Sleep,
		jitter:          rand.Float64,
		publishAt:       func() string { return PublishAt(time.Now(), 15) },
	}
}

// Platform returns the platform name
func (y *YouTubeUploader) Platform() string {
	return "youtube"
}

// PublishAt is tomorrow at hour:00 UTC, formatted the way the Data API
// expects it.
func PublishAt(now time.Time, hour int) string {
	t := now.UTC().AddDate(0, 0, 1)
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, time.UTC).Format("2006-01-02T15:04:05Z")
}

// Upload uploads a video to YouTube
func (y *YouTubeUploader) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	session, err := y.authenticate(ctx, false)
	if err != nil {
		return failed(y.Platform(), "Authentication failed", err), err
	}

	var channels *youtube.ChannelListResponse
	err = y.call(ctx, &session, func(s *youtube.Service) (err error) {
		channels, err = s.Channels.List([]string{"id"}).Mine(true).Context(ctx).Do()
		return err
	})
	if err != nil {
		return failed(y.Platform(), "Channel lookup failed", err), err
	}
	ids := lo.Map(channels.Items, func(c *youtube.Channel, _ int) string { return c.Id })
	y.log.Infof("uploaders: youtube channel ids: %s", strings.Join(ids, ", "))

	video := y.videoResource(req)
	var inserted *youtube.Video
	err = y.call(ctx, &session, func(s *youtube.Service) error {
		f, err := os.Open(req.VideoPath)
		if err != nil {
			return permanent{err}
		}
		defer f.Close()
		y.log.Infof("uploaders: uploading %s to youtube", filepath.Base(req.VideoPath))
		inserted, err = s.Videos.Insert([]string{"snippet", "status"}, video).Media(f).Context(ctx).Do()
		return err
	})
	if err != nil {
		return failed(y.Platform(), "Upload failed", err), err
	}
	y.log.Infof("uploaders: ✓ video id %q was successfully uploaded", inserted.Id)

	result := &UploadResult{
		Success:  true,
		Platform: y.Platform(),
		URL:      "https://youtu.be/" + inserted.Id,
		Details:  map[string]string{"video_id": inserted.Id, "title": video.Snippet.Title},
	}

	if req.ThumbnailPath != "" {
		if err := y.setThumbnail(ctx, &session, inserted.Id, req.ThumbnailPath); err != nil {
			y.log.Warnf("uploaders: thumbnail for %s not set: %v", inserted.Id, err)
			result.Details["thumbnail_error"] = err.Error()
		} else {
			y.log.Infof("uploaders: ✓ thumbnail set for %s", inserted.Id)
		}
	}

	if err := session.saveIfRefreshed(y.tokenPath); err != nil {
		y.log.Warnf("uploaders: could not save refreshed youtube token: %v", err)
	}
	return result, nil
}

func (y *YouTubeUploader) videoResource(req *UploadRequest) *youtube.Video {
	title := truncateRunes(req.Title, maxTitleRunes)
	description := req.Description
	if description == "" {
		description = title
	}
	privacy := req.Privacy
	if privacy == "" {
		privacy = "private"
	}

	status := &youtube.VideoStatus{
		PrivacyStatus:           privacy,
		SelfDeclaredMadeForKids: false,
		ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
	}
	if privacy == "private" {
		status.PublishAt = req.PublishAt
		if status.PublishAt == "" {
			status.PublishAt = y.publishAt()
		}
	}

	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: description,
			Tags:        req.Tags,
			CategoryId:  y.category,
		},
		Status: status,
	}
}

func (y *YouTubeUploader) setThumbnail(ctx context.Context, session **youtubeSession, videoID, path string) error {
	return y.call(ctx, session, func(s *youtube.Service) error {
		f, err := os.Open(path)
		if err != nil {
			return permanent{err}
		}
		defer f.Close()
		_, err = s.Thumbnails.Set(videoID).Media(f).Context(ctx).Do()
		return err
	})
}

// permanent marks an error that must not be retried.
type permanent struct{ error }

func (p permanent) Unwrap() error { return p.error }

// call runs op, retrying 5xx answers and transport failures with a random
// exponential backoff and re-authenticating once on 401/403.
func (y *YouTubeUploader) call(ctx context.Context, session **youtubeSession, op func(*youtube.Service) error) error {
	reauthed := false
	for retry := 0; ; {
		err := op((*session).service)
		if err == nil {
			return nil
		}

		var p permanent
		if errors.As(err, &p) {
			return p.error
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var apiErr *googleapi.Error
		switch {
		case errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden):
			if reauthed {
				return err
			}
			reauthed = true
			y.log.Warnf("uploaders: youtube answered %d, refreshing credentials", apiErr.Code)
			fresh, aerr := y.authenticate(ctx, true)
			if aerr != nil {
				return fmt.Errorf("re-authenticate: %w (after %v)", aerr, err)
			}
			*session = fresh
			continue
		case errors.As(err, &apiErr) && !lo.Contains(retriableStatus, apiErr.Code):
			return err
		}

		retry++
		if retry > maxUploadRetries {
			return fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
		}
		wait := time.Duration(y.jitter() * math.Pow(2, float64(retry)) * float64(time.Second))
		y.log.Warnf("uploaders: retriable youtube error (%v), sleeping %s before retry %d", err, wait.Round(time.Millisecond), retry)
		y.sleep(wait)
	}
}

type youtubeSession struct {
	service *youtube.Service
	source  oauth2.TokenSource
	initial *oauth2.Token
}

// saveIfRefreshed writes the current token to path when it differs from the
// one loaded at authentication.
func (s *youtubeSession) saveIfRefreshed(path string) error {
	tok, err := s.source.Token()
	if err != nil {
		return err
	}
	if s.initial != nil && tok.AccessToken == s.initial.AccessToken {
		return nil
	}
	return saveToken(path, tok)
}

func (y *YouTubeUploader) oauthConfig() (*oauth2.Config, error) {
	credBytes, err := os.ReadFile(y.credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}
	config, err := google.ConfigFromJSON(credBytes, youtubeScopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials file: %w", err)
	}
	return config, nil
}

// authenticate builds a service from the stored token. force expires the
// token first so the next call refreshes it.
func (y *YouTubeUploader) authenticate(ctx context.Context, force bool) (*youtubeSession, error) {
	config, err := y.oauthConfig()
	if err != nil {
		return nil, err
	}
	token, err := loadToken(y.tokenPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotAuthorized
		}
		return nil, fmt.Errorf("load token: %w", err)
	}
	if token.RefreshToken == "" && !token.Valid() {
		return nil, ErrNotAuthorized
	}

	initial := *token
	if force {
		token.Expiry = time.Now().Add(-time.Minute)
	}
	source := oauth2.ReuseTokenSource(nil, config.TokenSource(ctx, token))
	if force {
		fresh, err := source.Token()
		if err != nil {
			return nil, fmt.Errorf("refresh token: %w", err)
		}
		if err := saveToken(y.tokenPath, fresh); err != nil {
			y.log.Warnf("uploaders: could not save refreshed youtube token: %v", err)
		}
		initial = *fresh
	}

	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, source))}
	if y.endpoint != "" {
		opts = append(opts, option.WithEndpoint(y.endpoint))
	}
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create YouTube service: %w", err)
	}
	return &youtubeSession{service: service, source: source, initial: &initial}, nil
}

// YouTubeAuthURL is the consent page for the client in credentialsPath.
func YouTubeAuthURL(credentialsPath string) (string, error) {
	y := &YouTubeUploader{credentialsPath: credentialsPath}
	config, err := y.oauthConfig()
	if err != nil {
		return "", err
	}
	return config.AuthCodeURL("state", oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// ExchangeYouTubeCode trades an authorization code for a token and stores
// it at tokenPath.
func ExchangeYouTubeCode(ctx context.Context, credentialsPath, tokenPath, code string) error {
	y := &YouTubeUploader{credentialsPath: credentialsPath}
	config, err := y.oauthConfig()
	if err != nil {
		return err
	}
	token, err := config.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}
	return saveToken(tokenPath, token)
}

// loadToken loads OAuth token from file
func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(token)
	return token, err
}

// saveToken saves OAuth token to file
func saveToken(path string, token *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(token); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
