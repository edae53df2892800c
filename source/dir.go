package source

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/cvloop/video"
)

// Dir reads a frame sequence from numbered image files in a directory,
// in lexical filename order.
type Dir struct {
	paths []string
	next  int
}

// NewDir scans a directory for PNG, JPEG, and GIF files. An empty or
// missing directory is a configuration error.
func NewDir(path string) (*Dir, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("frame directory %q: %w", path, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg", ".gif":
			paths = append(paths, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("frame directory %q contains no image files", path)
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewDir",
		"path":     path,
		"frames":   len(paths),
	}).Info("Directory frame source created")

	return &Dir{paths: paths}, nil
}

// Read decodes the next image file into an RGB frame. Files that fail
// to decode are skipped with a warning. Returns ok=false after the last
// file.
func (d *Dir) Read() (*video.Frame, bool) {
	for d.next < len(d.paths) {
		path := d.paths[d.next]
		d.next++

		frame, err := decodeFile(path)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Dir.Read",
				"path":     path,
				"error":    err.Error(),
			}).Warn("Skipping undecodable frame file")
			continue
		}
		return frame, true
	}
	return nil, false
}

// Len returns the number of image files found.
func (d *Dir) Len() int {
	return len(d.paths)
}

func decodeFile(path string) (*video.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return video.FromImage(img), nil
}
