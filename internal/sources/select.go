package sources

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

var (
	ErrNoThread   = errors.New("sources: no suitable thread found")
	ErrNoComments = errors.New("sources: thread has no usable comments")
)

// timeFilters is walked in order when the hot listing has nothing usable.
var timeFilters = []string{"day", "hour", "month", "week", "year", "all"}

type SelectOptions struct {
	AllowNSFW   bool
	Storymode   bool
	MinComments int
	MinLength   int
	MaxLength   int
}

// SelectUndone returns the first post that passes the filters and is not done.
func SelectUndone(posts []Post, isDone func(id string) bool, opts SelectOptions) (Post, bool) {
	return lo.Find(posts, func(p Post) bool {
		if isDone(p.ID) || p.Stickied {
			return false
		}
		if p.NSFW && !opts.AllowNSFW {
			return false
		}
		if !opts.Storymode {
			return p.NumComments > opts.MinComments
		}
		if !p.IsSelf || strings.TrimSpace(p.Body) == "" {
			return false
		}
		n := utf8.RuneCountInString(p.Body)
		return n >= opts.MinLength && n <= opts.MaxLength
	})
}

// escalate walks the top listings from the narrowest time filter to "all".
func (f *Fetcher) escalate(ctx context.Context, subreddit string, isDone func(string) bool, opts SelectOptions) (Post, error) {
	for i, tf := range timeFilters {
		limit := 50 + i
		f.log.Infof("sources: all hot posts are done or unsuitable, trying top(%s) limit %d", tf, limit)
		posts, err := f.api.Top(ctx, subreddit, tf, limit)
		if err != nil {
			return Post{}, err
		}
		if p, ok := SelectUndone(posts, isDone, opts); ok {
			return p, nil
		}
	}
	return Post{}, ErrNoThread
}
