package engine

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/h2non/filetype"

	"salvage/internal/classify"
)

// quickHashLen is how much of a file the duplicate hint reads. Enough
// to separate files that merely share a name and size, cheap enough to
// run over an entire scan before the user commits to a copy.
const quickHashLen = 64 << 10

// dupKey pairs files that could be copies of one another.
type dupKey struct {
	name string
	size int64
}

// FolderCount is one entry of a per-category folder ranking.
type FolderCount struct {
	Folder string
	Count  int
}

// CategorySummary aggregates one category of a scan.
type CategorySummary struct {
	Category   classify.Category
	Files      int
	Bytes      int64
	TopFolders []FolderCount // at most five, largest first
}

// ExtCount is one entry of the extension frequency table.
type ExtCount struct {
	Ext   string
	Count int
	Bytes int64
}

// Mismatch flags a file whose content does not agree with its
// extension, e.g. a .jpg that is actually an MP4.
type Mismatch struct {
	Path     string
	Ext      string
	Detected string
}

// Summary is the read-only pre-analysis of a scanned tree: what is
// there, where it clusters, and how much of it looks duplicated.
type Summary struct {
	Files      int
	Bytes      int64
	Hidden     int
	Categories []CategorySummary
	Extensions []ExtCount // most frequent first
	DupGroups  int        // groups of probable duplicates
	DupFiles   int        // files beyond the first of each group
	DupBytes   int64      // bytes recoverable if each group kept one copy
	Mismatches []Mismatch
}

// Analyzer builds a Summary from scanned records. SniffContent enables
// magic-number detection of extension mismatches, which costs one small
// read per candidate file.
type Analyzer struct {
	SniffContent bool
}

// Summarize walks the records once and aggregates them. The duplicate
// hint pairs files by (name, size) and confirms each pair with a quick
// hash of the leading bytes; it deliberately trades certainty for
// speed, the copy phase does the full-digest job.
func (a *Analyzer) Summarize(ctx context.Context, records []FileRecord) (*Summary, error) {
	sum := &Summary{}

	type catAgg struct {
		files   int
		bytes   int64
		folders map[string]int
	}
	cats := make(map[classify.Category]*catAgg)
	exts := make(map[string]*ExtCount)
	byKey := make(map[dupKey][]FileRecord)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sum.Files++
		sum.Bytes += rec.Size
		if rec.Hidden {
			sum.Hidden++
		}

		agg := cats[rec.Category]
		if agg == nil {
			agg = &catAgg{folders: make(map[string]int)}
			cats[rec.Category] = agg
		}
		agg.files++
		agg.bytes += rec.Size
		agg.folders[filepath.Dir(rec.Path)]++

		ext := strings.ToLower(filepath.Ext(rec.Path))
		if ext == "" {
			ext = "(none)"
		}
		ec := exts[ext]
		if ec == nil {
			ec = &ExtCount{Ext: ext}
			exts[ext] = ec
		}
		ec.Count++
		ec.Bytes += rec.Size

		key := dupKey{name: filepath.Base(rec.Path), size: rec.Size}
		byKey[key] = append(byKey[key], rec)
	}

	for _, cat := range classify.All() {
		agg := cats[cat]
		if agg == nil {
			continue
		}
		sum.Categories = append(sum.Categories, CategorySummary{
			Category:   cat,
			Files:      agg.files,
			Bytes:      agg.bytes,
			TopFolders: topFolders(agg.folders, 5),
		})
	}

	for _, ec := range exts {
		sum.Extensions = append(sum.Extensions, *ec)
	}
	sort.Slice(sum.Extensions, func(i, j int) bool {
		a, b := sum.Extensions[i], sum.Extensions[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Ext < b.Ext
	})

	if err := a.dupHint(ctx, byKey, sum); err != nil {
		return nil, err
	}
	if a.SniffContent {
		if err := a.sniff(ctx, records, sum); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

func topFolders(counts map[string]int, n int) []FolderCount {
	out := make([]FolderCount, 0, len(counts))
	for folder, count := range counts {
		out = append(out, FolderCount{Folder: folder, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Folder < out[j].Folder
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// dupHint confirms same-name-same-size candidates by quick hash and
// folds the confirmed groups into the summary.
func (a *Analyzer) dupHint(ctx context.Context, byKey map[dupKey][]FileRecord, sum *Summary) error {
	for _, group := range byKey {
		if len(group) < 2 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		byHash := make(map[uint64][]FileRecord)
		for _, rec := range group {
			h, err := quickHash(rec.Path)
			if err != nil {
				continue // unreadable files drop out of the hint
			}
			byHash[h] = append(byHash[h], rec)
		}
		for _, same := range byHash {
			if len(same) < 2 {
				continue
			}
			sum.DupGroups++
			sum.DupFiles += len(same) - 1
			for _, rec := range same[1:] {
				sum.DupBytes += rec.Size
			}
		}
	}
	return nil
}

func quickHash(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, io.LimitReader(f, quickHashLen)); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// sniff reads the magic-number header of every record that has an
// extension and reports the ones whose detected type disagrees.
func (a *Analyzer) sniff(ctx context.Context, records []FileRecord, sum *Summary) error {
	buf := make([]byte, 262) // filetype needs at most 262 bytes
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(rec.Path)), ".")
		if ext == "" {
			continue
		}
		f, err := os.Open(rec.Path)
		if err != nil {
			continue
		}
		n, _ := io.ReadFull(f, buf)
		f.Close()
		if n == 0 {
			continue
		}
		kind, err := filetype.Match(buf[:n])
		if err != nil || kind == filetype.Unknown {
			continue
		}
		if kind.Extension != ext && !sameFormat(kind.Extension, ext) {
			sum.Mismatches = append(sum.Mismatches, Mismatch{
				Path:     rec.Path,
				Ext:      ext,
				Detected: kind.Extension,
			})
		}
	}
	return nil
}

// sameFormat papers over extension aliases the matcher does not know.
var formatAliases = map[string]string{
	"jpeg": "jpg", "tif": "tiff", "mpeg": "mpg", "htm": "html",
}

func sameFormat(detected, ext string) bool {
	if formatAliases[ext] == detected || formatAliases[detected] == ext {
		return true
	}
	return false
}
