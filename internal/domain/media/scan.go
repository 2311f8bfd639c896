package media

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	zlog "github.com/rs/zerolog/log"
)

// File extension sets the render engine can display.
var (
	VideoExts    = []string{".mp4", ".mkv", ".avi", ".mov", ".webm"}
	ImageExts    = []string{".png", ".jpg", ".jpeg", ".bmp", ".gif", ".webp"}
	SubtitleExts = []string{".srt", ".vtt", ".ass", ".ssa"}
)

// ScanVideos returns the sorted playable video files directly under dir.
// A missing or unreadable directory yields an empty list, never an error:
// the kiosk keeps running and shows the idle screen instead.
func ScanVideos(dir string) []string {
	return scanByExt(dir, VideoExts)
}

// ScanImages returns the sorted image files directly under dir.
func ScanImages(dir string) []string {
	return scanByExt(dir, ImageExts)
}

// ScanSubtitles returns the sorted subtitle sidecar files directly under dir.
func ScanSubtitles(dir string) []string {
	return scanByExt(dir, SubtitleExts)
}

func scanByExt(dir string, exts []string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		zlog.Debug().Msgf("media: scan %s failed: %v", dir, err)
		return nil
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range exts {
			if ext == want {
				out = append(out, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
