// Package dataset builds in-memory image tables from directory trees and
// turns image files into normalized tensors.
package dataset

import (
	"fmt"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Sample is one image file in a dataset table.
type Sample struct {
	Path  string
	ID    string // filename without extension, used as submission Id
	Class string // raw class name, empty for unlabeled data
	Label int    // encoded class index, -1 for unlabeled data
}

// Table is an in-memory path/label table.
type Table struct {
	Samples []Sample
	Classes []string // sorted class names; Label indexes into this
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Scan walks dir for image files and builds a table. When labeled is true,
// the class is taken from the filename prefix before the first dot
// ("cat.437.jpg" -> "cat"). Files whose headers fail to decode are skipped
// with a warning rather than aborting the scan.
func Scan(dir string, labeled bool) (*Table, error) {
	var samples []Sample
	skipped := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if err := validateImage(path); err != nil {
			log.WithFields(log.Fields{"path": path, "error": err}).Warn("skipping unreadable image")
			skipped++
			return nil
		}
		name := filepath.Base(path)
		id := strings.TrimSuffix(name, filepath.Ext(name))
		s := Sample{Path: path, ID: id, Label: -1}
		if labeled {
			if i := strings.IndexByte(name, '.'); i > 0 {
				s.Class = name[:i]
			} else {
				s.Class = id
			}
		}
		samples = append(samples, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("scan %s: no decodable images found", dir)
	}
	if skipped > 0 {
		log.WithFields(log.Fields{"dir": dir, "skipped": skipped}).Warn("some images were skipped")
	}

	t := &Table{Samples: samples}
	// Deterministic order regardless of filesystem iteration.
	sort.Slice(t.Samples, func(i, j int) bool { return t.Samples[i].Path < t.Samples[j].Path })
	if labeled {
		t.encodeLabels()
	}
	return t, nil
}

// validateImage decodes just the image header.
func validateImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, _, err = image.DecodeConfig(f)
	return err
}

// encodeLabels assigns contiguous indices to the sorted class names.
func (t *Table) encodeLabels() {
	seen := map[string]bool{}
	for _, s := range t.Samples {
		if s.Class != "" {
			seen[s.Class] = true
		}
	}
	t.Classes = make([]string, 0, len(seen))
	for c := range seen {
		t.Classes = append(t.Classes, c)
	}
	sort.Strings(t.Classes)
	index := make(map[string]int, len(t.Classes))
	for i, c := range t.Classes {
		index[c] = i
	}
	for i := range t.Samples {
		t.Samples[i].Label = index[t.Samples[i].Class]
	}
}

// Shuffle permutes the samples in place using the given source.
func (t *Table) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(t.Samples), func(i, j int) {
		t.Samples[i], t.Samples[j] = t.Samples[j], t.Samples[i]
	})
}

// Split divides the table into train and validation parts; valFrac is the
// fraction held out at the end. Shuffle first for a random split.
func (t *Table) Split(valFrac float64) (*Table, *Table) {
	n := len(t.Samples)
	cut := n - int(float64(n)*valFrac)
	if cut < 1 {
		cut = 1
	}
	train := &Table{Samples: t.Samples[:cut], Classes: t.Classes}
	val := &Table{Samples: t.Samples[cut:], Classes: t.Classes}
	return train, val
}
