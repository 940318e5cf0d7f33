package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddit-video-maker/internal"
)

func TestPostIDs(t *testing.T) {
	assert.Equal(t, []string{""}, postIDs(""))
	assert.Equal(t, []string{"abc"}, postIDs("abc"))
	assert.Equal(t, []string{"abc", "def"}, postIDs(" abc + def +"))
}

func TestApplyFlagsOverridesConfig(t *testing.T) {
	root := newRootCmd()
	makeCmd, _, err := root.Find([]string{"make"})
	require.NoError(t, err)
	require.NoError(t, makeCmd.ParseFlags([]string{"--shorts=false", "--debug", "--generate-story", "a haunted house", "-p", "x1+x2"}))

	mf := &makeFlags{}
	mf.shorts, _ = makeCmd.Flags().GetBool("shorts")
	mf.debug, _ = makeCmd.Flags().GetBool("debug")
	mf.story, _ = makeCmd.Flags().GetString("generate-story")
	mf.postID, _ = makeCmd.Flags().GetString("post-id")

	cfg := internal.Default()
	cfg.Settings.Subtitles = false
	applyFlags(makeCmd, &cfg, mf)

	assert.False(t, cfg.Settings.Shorts)
	assert.Equal(t, 1920, cfg.Settings.ResolutionW)
	assert.True(t, cfg.Settings.Debug)
	assert.Equal(t, "streamlabspolly", cfg.Settings.TTS.VoiceChoice)
	assert.True(t, cfg.AI.GenerateStory)
	assert.Equal(t, "a haunted house", cfg.AI.StorySubject)
	assert.Equal(t, "x1+x2", cfg.Reddit.Thread.PostID)
	assert.False(t, cfg.Settings.Subtitles, "unset flags keep the config value")
}

func TestApplyFlagsKeepsConfigWhenUnset(t *testing.T) {
	root := newRootCmd()
	makeCmd, _, err := root.Find([]string{"make"})
	require.NoError(t, err)
	require.NoError(t, makeCmd.ParseFlags(nil))

	cfg := internal.Default()
	cfg.Reddit.Thread.PostID = "cfg1"
	applyFlags(makeCmd, &cfg, &makeFlags{shorts: true, subtitles: true})

	assert.True(t, cfg.Settings.Shorts)
	assert.False(t, cfg.Settings.Debug)
	assert.Equal(t, "gpt", cfg.Settings.TTS.VoiceChoice)
	assert.Equal(t, "cfg1", cfg.Reddit.Thread.PostID)
}
