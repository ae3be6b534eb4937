package handoff

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gallerygrab/pkg/models"
)

func TestWriteAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handoff.jsonl")
	w, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, w.Write(models.MediaCandidate{
		SourceURL:  "https://host/clip.mp4",
		Kind:       models.KindVideo,
		OriginPage: "https://host/topic/1/",
		Title:      "trailer",
	}))
	require.NoError(t, w.Write(models.MediaCandidate{
		SourceURL:  "https://host/track.mp3",
		Kind:       models.KindAudio,
		OriginPage: "https://host/topic/1/",
	}))
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, records, 2)
	assert.Equal(t, "https://host/clip.mp4", records[0].URL)
	assert.Equal(t, models.KindVideo, records[0].Kind)
	assert.Equal(t, "trailer", records[0].Title)
	assert.Equal(t, models.KindAudio, records[1].Kind)
	assert.Equal(t, "https://host/topic/1/", records[1].SourcePage)
}

func TestCountOnlyWriterWithEmptyPath(t *testing.T) {
	w, err := Open("")
	require.NoError(t, err)

	require.NoError(t, w.Write(models.MediaCandidate{SourceURL: "https://host/clip.mp4", Kind: models.KindVideo}))
	require.NoError(t, w.Write(models.MediaCandidate{SourceURL: "https://host/clip2.mp4", Kind: models.KindVideo}))
	assert.Equal(t, 2, w.Count())
	assert.NoError(t, w.Close())
}

func TestOpenAppendsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handoff.jsonl")

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(models.MediaCandidate{SourceURL: "https://host/a.mp4", Kind: models.KindVideo}))
	require.NoError(t, w.Close())

	w2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w2.Write(models.MediaCandidate{SourceURL: "https://host/b.mp4", Kind: models.KindVideo}))
	require.NoError(t, w2.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://host/a.mp4")
	assert.Contains(t, string(data), "https://host/b.mp4")
}
