package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopMode_CycleRoundTrip(t *testing.T) {
	m := LoopOff
	seen := []string{}
	for i := 0; i < 4; i++ {
		seen = append(seen, m.String())
		m = m.Next()
	}
	assert.Equal(t, []string{"OFF", "SINGLE", "ALL", "RANDOM"}, seen)
	// Cycling by exactly the list length is the identity.
	assert.Equal(t, LoopOff, m)
}

func TestParseLoopMode(t *testing.T) {
	assert.Equal(t, LoopAll, ParseLoopMode("all"))
	assert.Equal(t, LoopRandom, ParseLoopMode(" RANDOM "))
	assert.Equal(t, LoopOff, ParseLoopMode("whatever"))
}

func TestScanVideos_FiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mp4", "a.MKV", "notes.txt", "c.webm", "clip.en.srt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.mp4"), 0755))

	got := ScanVideos(dir)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.MKV"),
		filepath.Join(dir, "b.mp4"),
		filepath.Join(dir, "c.webm"),
	}, got)
}

func TestScanVideos_MissingDir(t *testing.T) {
	assert.Empty(t, ScanVideos(filepath.Join(t.TempDir(), "nope")))
}

func TestScanSubtitles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"movie.en.srt", "movie.nl.vtt", "movie.mp4"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	got := ScanSubtitles(dir)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "movie.en.srt")
}

func TestPresetTable_ResolveBuiltin(t *testing.T) {
	tbl := NewPresetTable(nil)
	p := tbl.Resolve("vivid", ColorPreset{})
	assert.InDelta(t, 1.35, p.Saturation, 1e-9)
	assert.InDelta(t, 1.05, p.Contrast, 1e-9)
}

func TestPresetTable_CustomPassesThrough(t *testing.T) {
	tbl := NewPresetTable(nil)
	want := ColorPreset{Saturation: 0.8, Brightness: 0.1, Contrast: 1.2, Gamma: 0.9}
	assert.Equal(t, want, tbl.Resolve("CUSTOM", want))
	// Unknown names behave like CUSTOM rather than erroring.
	assert.Equal(t, want, tbl.Resolve("NO-SUCH", want))
}

func TestPresetTable_Overrides(t *testing.T) {
	tbl := NewPresetTable(map[string]map[string]any{
		"gallery": {"saturation": 1.1, "brightness": 0.02, "contrast": 1.0, "gamma": 1.0},
		"broken":  {"saturation": "not-a-number"},
	})
	require.True(t, tbl.Has("GALLERY"))
	p := tbl.Resolve("GALLERY", ColorPreset{})
	assert.InDelta(t, 1.1, p.Saturation, 1e-9)
	assert.False(t, tbl.Has("BROKEN"))

	names := tbl.Names()
	assert.Equal(t, CustomPreset, names[len(names)-1])
}
