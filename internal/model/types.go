package model

import "encoding/json"

// Thread is the narration source: a Reddit post or an AI generated story.
type Thread struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Subreddit   string    `json:"subreddit"`
	NSFW        bool      `json:"nsfw"`
	Score       int       `json:"score"`
	UpvoteRatio float64   `json:"upvote_ratio"`
	NumComments int       `json:"num_comments"`
	Content     []string  `json:"content"`
	Comments    []Comment `json:"comments,omitempty"`
	Generated   bool      `json:"generated"`

	SEOTitle       string   `json:"seo_title,omitempty"`
	SEODescription string   `json:"seo_description,omitempty"`
	SEOKeywords    []string `json:"seo_keywords,omitempty"`
}

type Comment struct {
	ID   string `json:"id"`
	Body string `json:"body"`
	URL  string `json:"url"`
}

// Word is a single transcribed word with its timing in seconds.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// BackgroundOption is one catalog entry for a stock background clip.
type BackgroundOption struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	Filename string `json:"filename"`
	Credit   string `json:"credit"`
	// Position is "center" or a horizontal pixel offset.
	Position string `json:"position"`
}

// DoneVideo is one entry of the history of rendered videos.
type DoneVideo struct {
	ID               string `json:"id"`
	Time             string `json:"time"`
	BackgroundCredit string `json:"background_credit"`
	RedditTitle      string `json:"reddit_title"`
	Filename         string `json:"filename"`
}

// DoneVideosIndex is stored as a plain JSON array so videos.json stays
// readable by hand.
type DoneVideosIndex struct {
	Items []DoneVideo
}

func (idx DoneVideosIndex) MarshalJSON() ([]byte, error) {
	items := idx.Items
	if items == nil {
		items = []DoneVideo{}
	}
	return json.Marshal(items)
}

func (idx *DoneVideosIndex) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &idx.Items)
}
