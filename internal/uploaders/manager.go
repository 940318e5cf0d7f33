package uploaders

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"reddit-video-maker/internal"
	"reddit-video-maker/internal/logging"
)

// Manager manages all uploaders
type Manager struct {
	uploaders map[string]Uploader
	log       *logging.Logger
}

// NewManager builds the uploaders enabled in cfg. A platform whose
// credentials are missing is skipped with a warning.
func NewManager(cfg internal.UploadConfig, log *logging.Logger) *Manager {
	m := &Manager{
		uploaders: make(map[string]Uploader),
		log:       log,
	}

	if cfg.YouTube {
		m.uploaders["youtube"] = NewYouTubeUploader(cfg.ClientSecrets, cfg.TokenFile, cfg.Category, log)
	}

	if cfg.Telegram {
		tg, err := NewTelegramUploader(cfg.TelegramToken, cfg.TelegramChatID, "")
		if err != nil {
			log.Warnf("uploaders: telegram disabled: %v", err)
		} else {
			m.uploaders["telegram"] = tg
		}
	}

	if cfg.X {
		x := NewXUploader(cfg.XConsumerKey, cfg.XConsumerSecret, cfg.XAccessToken, cfg.XAccessTokenSecret, log)
		if x.configured {
			m.uploaders["x"] = x
		} else {
			log.Warnf("uploaders: x disabled: credentials not set")
		}
	}

	return m
}

// GetUploader returns an uploader for the specified platform
func (m *Manager) GetUploader(platform string) (Uploader, error) {
	uploader, ok := m.uploaders[platform]
	if !ok {
		return nil, fmt.Errorf("uploader not found for platform: %s", platform)
	}
	return uploader, nil
}

// Upload uploads to the specified platform
func (m *Manager) Upload(ctx context.Context, platform string, req *UploadRequest) (*UploadResult, error) {
	uploader, err := m.GetUploader(platform)
	if err != nil {
		return &UploadResult{
			Success:  false,
			Platform: platform,
			Error:    err.Error(),
		}, err
	}

	return uploader.Upload(ctx, req)
}

// UploadToAll uploads to all configured platforms. A failing platform does
// not stop the others.
func (m *Manager) UploadToAll(ctx context.Context, req *UploadRequest) map[string]*UploadResult {
	results := make(map[string]*UploadResult)

	for _, platform := range m.AvailablePlatforms() {
		result, err := m.Upload(ctx, platform, req)
		if err != nil {
			m.log.Errorf("uploaders: %s upload failed: %v", platform, err)
		}
		if result == nil {
			result = &UploadResult{Platform: platform}
			if err != nil {
				result.Error = err.Error()
			}
		}
		results[platform] = result
	}

	return results
}

// AvailablePlatforms returns list of available platforms
func (m *Manager) AvailablePlatforms() []string {
	platforms := lo.Keys(m.uploaders)
	sort.Strings(platforms)
	return platforms
}

// UpdateTelegramChatID updates the chat ID for Telegram uploader
func (m *Manager) UpdateTelegramChatID(chatID int64) {
	if uploader, ok := m.uploaders["telegram"]; ok {
		if tgUploader, ok := uploader.(*TelegramUploader); ok {
			tgUploader.SetChatID(chatID)
		}
	}
}

// AddUploader adds or replaces an uploader for a platform
func (m *Manager) AddUploader(platform string, uploader Uploader) {
	m.uploaders[platform] = uploader
}
