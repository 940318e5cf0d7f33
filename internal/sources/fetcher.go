package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"reddit-video-maker/internal"
	"reddit-video-maker/internal/ai"
	"reddit-video-maker/internal/logging"
	"reddit-video-maker/internal/model"
	"reddit-video-maker/internal/textproc"
)

// HistoryReader exposes the rendered videos so done threads can be skipped.
type HistoryReader interface {
	Load(ctx context.Context) (model.DoneVideosIndex, error)
}

type StoryWriter interface {
	Write(ctx context.Context, subject string, paragraphs int, language string) (*ai.Story, error)
}

type Translator interface {
	Translate(ctx context.Context, text, lang string) (string, error)
}

// Fetcher finds the next thread to narrate.
type Fetcher struct {
	cfg        internal.Config
	api        RedditAPI
	history    HistoryReader
	embedder   ai.Embedder
	story      StoryWriter
	translator Translator
	log        *logging.Logger
}

func NewFetcher(cfg internal.Config, api RedditAPI, history HistoryReader, log *logging.Logger) *Fetcher {
	return &Fetcher{cfg: cfg, api: api, history: history, log: log}
}

// WithEmbedder enables similarity ranking of the hot listing.
func (f *Fetcher) WithEmbedder(e ai.Embedder) *Fetcher {
	f.embedder = e
	return f
}

func (f *Fetcher) WithStoryWriter(w StoryWriter) *Fetcher {
	f.story = w
	return f
}

func (f *Fetcher) WithTranslator(t Translator) *Fetcher {
	f.translator = t
	return f
}

// Fetch returns the thread for this run. postID, when set, wins over every
// other source.
func (f *Fetcher) Fetch(ctx context.Context, postID string) (*model.Thread, error) {
	if f.cfg.AI.GenerateStory && postID == "" {
		return f.Generate(ctx, f.cfg.AI.StorySubject, f.cfg.AI.StoryParagraphs, f.cfg.AI.StoryLanguage)
	}
	if f.api == nil {
		return nil, errors.New("sources: reddit client is not configured")
	}

	idx, err := f.history.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	if postID == "" {
		if cfgID := strings.TrimSpace(f.cfg.Reddit.Thread.PostID); cfgID != "" && !strings.Contains(cfgID, "+") {
			postID = cfgID
		}
	}

	var (
		post     Post
		comments []RawComment
	)
	if postID != "" {
		post, comments, err = f.api.Get(ctx, postID)
		if err != nil {
			return nil, err
		}
		if idx.Contains(post.ID) {
			f.log.Warnf("sources: %s was already made into a video, continuing because it was requested explicitly", post.ID)
		}
	} else {
		post, err = f.pick(ctx, &idx)
		if err != nil {
			return nil, err
		}
		if !f.cfg.Settings.Storymode {
			if _, comments, err = f.api.Get(ctx, post.ID); err != nil {
				return nil, err
			}
		}
	}

	f.log.Infof("sources: video will be %q :thumbsup:", post.Title)
	f.log.Infof("sources: thread %s has %d upvotes (%.0f%%) and %d comments", post.URL(), post.Score, post.UpvoteRatio*100, post.NumComments)

	thread, err := f.build(post, comments)
	if err != nil {
		return nil, err
	}
	if err := f.translate(ctx, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

func (f *Fetcher) pick(ctx context.Context, idx *model.DoneVideosIndex) (Post, error) {
	sr := f.cfg.Subreddit()
	f.log.Infof("sources: using subreddit r/%s", sr)

	var (
		posts []Post
		err   error
	)
	keywords := ai.SplitKeywords(f.cfg.AI.SimilarityKeywords)
	if f.cfg.AI.SimilarityEnabled && f.embedder != nil && len(keywords) > 0 {
		f.log.Infof("sources: sorting threads by similarity to %v", keywords)
		if posts, err = f.api.Hot(ctx, sr, 50); err != nil {
			return Post{}, err
		}
		var scores []float64
		posts, scores, err = ai.SortBySimilarity(ctx, f.embedder, posts, func(p Post) string {
			return p.Title + " " + p.Body
		}, keywords)
		if err != nil {
			return Post{}, fmt.Errorf("similarity: %w", err)
		}
		if len(scores) > 0 {
			f.log.Debugf("sources: best similarity score %.3f", scores[0])
		}
	} else if posts, err = f.api.Hot(ctx, sr, 25); err != nil {
		return Post{}, err
	}

	isDone := func(id string) bool { return idx.Contains(id) }
	opts := f.selectOptions()
	if p, ok := SelectUndone(posts, isDone, opts); ok {
		return p, nil
	}
	return f.escalate(ctx, sr, isDone, opts)
}

func (f *Fetcher) selectOptions() SelectOptions {
	t := f.cfg.Reddit.Thread
	return SelectOptions{
		AllowNSFW:   f.cfg.Settings.AllowNSFW,
		Storymode:   f.cfg.Settings.Storymode,
		MinComments: t.MinComments,
		MinLength:   t.StorymodeMinLength,
		MaxLength:   t.StorymodeMaxLength,
	}
}

func (f *Fetcher) build(post Post, comments []RawComment) (*model.Thread, error) {
	thread := &model.Thread{
		ID:          post.ID,
		URL:         post.URL(),
		Title:       post.Title,
		Subreddit:   post.Subreddit,
		NSFW:        post.NSFW,
		Score:       post.Score,
		UpvoteRatio: post.UpvoteRatio,
		NumComments: post.NumComments,
	}

	if f.cfg.Settings.Storymode {
		body := strings.TrimSpace(post.Body)
		if body == "" {
			return nil, fmt.Errorf("%w: story mode needs a post with text, %s has none", ErrNoThread, post.ID)
		}
		if f.cfg.Settings.StorymodeMethod == 0 {
			thread.Content = []string{body}
		} else {
			thread.Content = textproc.Paragraphs(body, 0)
		}
		return thread, nil
	}

	thread.Comments = f.usableComments(comments)
	if len(thread.Comments) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoComments, post.ID)
	}
	return thread, nil
}

func (f *Fetcher) usableComments(raw []RawComment) []model.Comment {
	t := f.cfg.Reddit.Thread
	var out []model.Comment
	for _, c := range raw {
		body := strings.TrimSpace(c.Body)
		if c.Stickied || body == "[deleted]" || body == "[removed]" {
			continue
		}
		if textproc.SanitizeText(body) == "" {
			continue
		}
		n := utf8.RuneCountInString(body)
		if n > t.MaxCommentLength || n < t.MinCommentLength {
			continue
		}
		out = append(out, model.Comment{ID: c.ID, Body: body, URL: Post{Permalink: c.Permalink}.URL()})
	}
	return out
}

func (f *Fetcher) translate(ctx context.Context, thread *model.Thread) error {
	lang := f.cfg.Reddit.Thread.PostLang
	if lang == "" || f.translator == nil {
		return nil
	}
	f.log.Infof("sources: translating thread %s to %s", thread.ID, lang)

	var err error
	if thread.Title, err = f.translator.Translate(ctx, thread.Title, lang); err != nil {
		return err
	}
	for i := range thread.Content {
		if thread.Content[i], err = f.translator.Translate(ctx, thread.Content[i], lang); err != nil {
			return err
		}
	}
	for i := range thread.Comments {
		if thread.Comments[i].Body, err = f.translator.Translate(ctx, thread.Comments[i].Body, lang); err != nil {
			return err
		}
	}
	return nil
}

// Generate writes a fresh story with the AI backend instead of reading Reddit.
func (f *Fetcher) Generate(ctx context.Context, subject string, paragraphs int, language string) (*model.Thread, error) {
	if f.story == nil {
		return nil, errors.New("sources: story generation requested but no AI backend is configured")
	}
	story, err := f.story.Write(ctx, subject, paragraphs, language)
	if err != nil {
		return nil, fmt.Errorf("generate story: %w", err)
	}

	thread := &model.Thread{
		ID:             uuid.NewString(),
		Title:          story.Title,
		Subreddit:      f.cfg.Subreddit(),
		Generated:      true,
		SEOTitle:       story.SEOTitle,
		SEODescription: story.SEODescription,
		SEOKeywords:    story.SEOKeywords,
	}
	if f.cfg.Settings.StorymodeMethod == 0 {
		thread.Content = []string{textproc.SanitizeText(strings.ReplaceAll(story.Script, "\n\n", " "))}
	} else {
		thread.Content = textproc.Paragraphs(story.Script, 0)
	}
	f.log.Infof("sources: generated story %s %q with %d paragraphs", thread.ID, thread.Title, len(thread.Content))
	return thread, nil
}
