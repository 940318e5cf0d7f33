package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"reddit-video-maker/internal"
)

// Post is the subset of a Reddit submission the pipeline cares about.
type Post struct {
	ID          string
	Title       string
	Body        string
	Permalink   string
	Subreddit   string
	Score       int
	UpvoteRatio float64
	NumComments int
	NSFW        bool
	Stickied    bool
	IsSelf      bool
}

func (p Post) URL() string {
	if strings.HasPrefix(p.Permalink, "http") {
		return p.Permalink
	}
	return "https://reddit.com" + p.Permalink
}

// RawComment is a top level comment as returned by Reddit.
type RawComment struct {
	ID        string
	Body      string
	Permalink string
	Stickied  bool
}

// RedditAPI is the part of the Reddit API used to find threads.
type RedditAPI interface {
	Hot(ctx context.Context, subreddit string, limit int) ([]Post, error)
	Top(ctx context.Context, subreddit, timeFilter string, limit int) ([]Post, error)
	Get(ctx context.Context, id string) (Post, []RawComment, error)
}

type goReddit struct {
	client *reddit.Client
}

// NewRedditAPI logs in with script-app credentials.
func NewRedditAPI(creds internal.RedditCreds) (RedditAPI, error) {
	client, err := reddit.NewClient(reddit.Credentials{
		ID:       creds.ClientID,
		Secret:   creds.ClientSecret,
		Username: creds.Username,
		Password: creds.Password,
	}, reddit.WithUserAgent(creds.UserAgent))
	if err != nil {
		return nil, fmt.Errorf("reddit client: %w", err)
	}
	return &goReddit{client: client}, nil
}

func (g *goReddit) Hot(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	posts, _, err := g.client.Subreddit.HotPosts(ctx, subreddit, &reddit.ListOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("hot r/%s: %w", subreddit, err)
	}
	return convertPosts(posts), nil
}

func (g *goReddit) Top(ctx context.Context, subreddit, timeFilter string, limit int) ([]Post, error) {
	posts, _, err := g.client.Subreddit.TopPosts(ctx, subreddit, &reddit.ListPostOptions{
		ListOptions: reddit.ListOptions{Limit: limit},
		Time:        timeFilter,
	})
	if err != nil {
		return nil, fmt.Errorf("top(%s) r/%s: %w", timeFilter, subreddit, err)
	}
	return convertPosts(posts), nil
}

func (g *goReddit) Get(ctx context.Context, id string) (Post, []RawComment, error) {
	pc, _, err := g.client.Post.Get(ctx, id)
	if err != nil {
		return Post{}, nil, fmt.Errorf("get post %s: %w", id, err)
	}
	comments := make([]RawComment, 0, len(pc.Comments))
	for _, c := range pc.Comments {
		if c == nil {
			continue
		}
		comments = append(comments, RawComment{ID: c.ID, Body: c.Body, Permalink: c.Permalink, Stickied: c.Stickied})
	}
	return convertPost(pc.Post), comments, nil
}

func convertPosts(in []*reddit.Post) []Post {
	out := make([]Post, 0, len(in))
	for _, p := range in {
		if p != nil {
			out = append(out, convertPost(p))
		}
	}
	return out
}

func convertPost(p *reddit.Post) Post {
	if p == nil {
		return Post{}
	}
	return Post{
		ID:          p.ID,
		Title:       p.Title,
		Body:        p.Body,
		Permalink:   p.Permalink,
		Subreddit:   p.SubredditName,
		Score:       p.Score,
		UpvoteRatio: float64(p.UpvoteRatio),
		NumComments: p.NumberOfComments,
		NSFW:        p.NSFW,
		Stickied:    p.Stickied,
		IsSelf:      p.IsSelfPost,
	}
}
