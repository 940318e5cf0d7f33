package model

import (
	"encoding/json"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoneVideosIndexAdd(t *testing.T) {
	var idx DoneVideosIndex

	assert.True(t, idx.Add(DoneVideo{ID: "abc", Filename: "a.mp4"}))
	assert.False(t, idx.Add(DoneVideo{ID: "abc", Filename: "other.mp4"}))

	assert.Len(t, idx.Items, 1)
	v, ok := idx.Find("abc")
	assert.True(t, ok)
	assert.Equal(t, "a.mp4", v.Filename)
	assert.True(t, idx.Contains("abc"))
	assert.False(t, idx.Contains("zzz"))
}

func TestDoneVideosIndexMerge(t *testing.T) {
	local := DoneVideosIndex{Items: []DoneVideo{{ID: "a"}, {ID: "b"}}}
	remote := DoneVideosIndex{Items: []DoneVideo{{ID: "b"}, {ID: "c"}, {ID: "d"}}}

	added := local.Merge(remote)

	assert.Equal(t, 2, added)
	assert.Equal(t, []string{"a", "b", "c", "d"}, lo.Map(local.Items, func(v DoneVideo, _ int) string { return v.ID }))
}

func TestDoneVideosIndexJSONIsArray(t *testing.T) {
	b, err := json.Marshal(DoneVideosIndex{})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))

	in := `[{"id":"x1","time":"1700000000","background_credit":"bbswitzer","reddit_title":"T","filename":"T.mp4"}]`
	var idx DoneVideosIndex
	require.NoError(t, json.Unmarshal([]byte(in), &idx))
	require.Len(t, idx.Items, 1)
	assert.Equal(t, "bbswitzer", idx.Items[0].BackgroundCredit)

	out, err := json.Marshal(idx)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}
