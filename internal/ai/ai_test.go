package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddit-video-maker/internal"
	"reddit-video-maker/internal/logging"
)

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) internal.AIConfig {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return internal.AIConfig{Provider: "openai", OpenAIAPIKey: "sk-test", OpenAIBaseURL: srv.URL + "/v1"}
}

func chatReply(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
}

func TestNewPicksBackend(t *testing.T) {
	c, err := New(internal.AIConfig{Provider: "OpenAI", OpenAIAPIKey: "k"}, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	c, err = New(internal.AIConfig{Provider: "gemini", GeminiAPIKey: "k"}, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &GeminiClient{}, c)

	_, err = New(internal.AIConfig{Provider: "gemini"}, logging.Discard())
	assert.Error(t, err)
	_, err = New(internal.AIConfig{Provider: "llama", OpenAIAPIKey: "k"}, logging.Discard())
	assert.Error(t, err)
}

func TestOpenAIComplete(t *testing.T) {
	var gotFormat string
	cfg := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req struct {
			Model          string `json:"model"`
			ResponseFormat *struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		if req.ResponseFormat != nil {
			gotFormat = req.ResponseFormat.Type
		}
		chatReply(w, "  hello  ")
	})

	c := NewOpenAIClient(NewOpenAI(cfg), "gpt-4o-mini", logging.Discard())
	out, err := c.Complete(context.Background(), "hi", true)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, "json_object", gotFormat)
}

func TestOpenAICompleteEmpty(t *testing.T) {
	cfg := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) { chatReply(w, " ") })
	c := NewOpenAIClient(NewOpenAI(cfg), "", logging.Discard())
	_, err := c.Complete(context.Background(), "hi", false)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

type scriptedClient struct {
	replies map[string]string
	prompts []string
}

func (s *scriptedClient) Complete(_ context.Context, prompt string, _ bool) (string, error) {
	s.prompts = append(s.prompts, prompt)
	for marker, reply := range s.replies {
		if strings.Contains(prompt, marker) {
			return reply, nil
		}
	}
	return "", errors.New("unexpected prompt")
}

func TestStoryWriter(t *testing.T) {
	client := &scriptedClient{replies: map[string]string{
		"Generate a script":             "**Intro**\n\nOne (first).\n\n\n## Two\n\nThree\n\nFour",
		"Generate a title":              `"My Story"`,
		"search engine optimised title": "SEO title",
		"Generate a description":        "A description",
		"Generate 5 search terms":       `{"terms": ["a b", "c"]}`,
	}}
	w := NewStoryWriter(client, logging.Discard())

	s, err := w.Write(context.Background(), "cats", 3, "English")
	require.NoError(t, err)
	assert.Equal(t, "Intro\n\nOne first.\n\nTwo", s.Script)
	assert.Equal(t, "My Story", s.Title)
	assert.Equal(t, "SEO title", s.SEOTitle)
	assert.Equal(t, "A description", s.SEODescription)
	assert.Equal(t, []string{"a b", "c"}, s.SEOKeywords)
	assert.Len(t, client.prompts, 5)
}

func TestStoryWriterEmptyScript(t *testing.T) {
	client := &scriptedClient{replies: map[string]string{"Generate a script": "## ()"}}
	_, err := NewStoryWriter(client, logging.Discard()).Write(context.Background(), "cats", 2, "English")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestParseKeywords(t *testing.T) {
	assert.Equal(t, []string{"x", "y"}, ParseKeywords(`["x","y"]`))
	assert.Equal(t, []string{"x"}, ParseKeywords("Sure! Here you go: [\"x\"] enjoy"))
	assert.Nil(t, ParseKeywords("no array here"))
	assert.Nil(t, ParseKeywords("[not json]"))
}

func TestCleanScript(t *testing.T) {
	assert.Equal(t, "a\n\nb", CleanScript("a\r\n\r\nb\n\nc", 2))
	assert.Equal(t, "a\n\nb\n\nc", CleanScript("a\n\nb\n\nc", 0))
}

func TestTranslator(t *testing.T) {
	client := &scriptedClient{replies: map[string]string{"Translate": "hola"}}
	tr := NewTranslator(client)

	out, err := tr.Translate(context.Background(), "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Empty(t, client.prompts)

	out, err = tr.Translate(context.Background(), "hello", "es")
	require.NoError(t, err)
	assert.Equal(t, "hola", out)
	assert.Contains(t, client.prompts[0], `"es"`)
}

func TestTranscriberWords(t *testing.T) {
	cfg := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		b, _ := io.ReadAll(f)
		assert.Equal(t, "mp3", string(b))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"task":"transcribe","language":"english","duration":1.2,"text":"hi there",
			"words":[{"word":" hi","start":0,"end":0.4},{"word":"  ","start":0.4,"end":0.5},{"word":"there","start":0.5,"end":1.2}]}`)
	})
	path := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(path, []byte("mp3"), 0o644))

	words, err := NewTranscriber(NewOpenAI(cfg), "", logging.Discard()).Words(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, words, 2)
	assert.Equal(t, "hi", words[0].Text)
	assert.InDelta(t, 0.5, words[1].Start, 1e-9)
	assert.InDelta(t, 1.2, words[1].End, 1e-9)
}

func TestTranscriberNoWords(t *testing.T) {
	cfg := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"","words":[]}`)
	})
	path := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(path, []byte("mp3"), 0o644))

	_, err := NewTranscriber(NewOpenAI(cfg), "", logging.Discard()).Words(context.Background(), path)
	assert.ErrorIs(t, err, ErrNoWords)
}

func TestOpenAIEmbedder(t *testing.T) {
	cfg := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		// Out of order on purpose.
		_, _ = io.WriteString(w, `{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}]}`)
	})
	vecs, err := NewOpenAIEmbedder(NewOpenAI(cfg), "").Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

type fakeEmbedder map[string][]float32

func (f fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f[t]
	}
	return out, nil
}

func TestSortBySimilarity(t *testing.T) {
	e := fakeEmbedder{
		"cats": {1, 0}, "dogs": {1, 0.2},
		"about dogs": {1, 0.1}, "about cars": {0, 1}, "about cats": {1, 0},
	}
	items := []string{"about cars", "about dogs", "about cats"}

	sorted, scores, err := SortBySimilarity(context.Background(), e, items, func(s string) string { return s }, []string{"cats", "dogs"})
	require.NoError(t, err)
	assert.Equal(t, []string{"about dogs", "about cats", "about cars"}, sorted)
	require.Len(t, scores, 3)
	assert.GreaterOrEqual(t, scores[0], scores[1])
	assert.Greater(t, scores[1], scores[2])
}

func TestSplitKeywords(t *testing.T) {
	assert.Equal(t, []string{"funny", "wholesome story"}, SplitKeywords(" funny, ,wholesome story,"))
}
