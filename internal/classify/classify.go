// Package classify maps file names to rescue categories. Classification
// is a pure function of the file name: no I/O, no configuration.
package classify

import (
	"path/filepath"
	"strings"
)

// Category is the logical bucket a file is sorted into at the destination.
type Category int

const (
	Other Category = iota
	Images
	Videos
	Audio
	Documents
	Installers
	Torrents
)

var categoryNames = [...]string{
	Other:      "Other",
	Images:     "Images",
	Videos:     "Videos",
	Audio:      "Audio",
	Documents:  "Documents",
	Installers: "Installers",
	Torrents:   "Torrents",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "Other"
}

// All lists every category in display order.
func All() []Category {
	return []Category{Images, Videos, Audio, Documents, Installers, Torrents, Other}
}

// extTable maps a lowercase extension (with leading dot) to its category.
var extTable = map[string]Category{
	// Videos
	".mp4": Videos, ".avi": Videos, ".mov": Videos, ".mpg": Videos,
	".mpeg": Videos, ".wmv": Videos, ".flv": Videos, ".mkv": Videos,
	".qt": Videos,

	// Images, including common camera raw formats
	".jpg": Images, ".jpeg": Images, ".bmp": Images, ".gif": Images,
	".png": Images, ".tiff": Images, ".cr2": Images, ".cr3": Images,
	".nef": Images, ".arw": Images, ".orf": Images, ".rw2": Images,
	".dng": Images,

	// Audio
	".mp3": Audio, ".wav": Audio, ".wma": Audio, ".aac": Audio,
	".ogg": Audio, ".mid": Audio,

	// Documents
	".doc": Documents, ".docx": Documents, ".xls": Documents,
	".xlsx": Documents, ".ppt": Documents, ".pptx": Documents,
	".pdf": Documents, ".txt": Documents, ".rtf": Documents,
	".odt": Documents, ".csv": Documents,

	// Installers and archives
	".exe": Installers, ".msi": Installers, ".iso": Installers,
	".zip": Installers, ".rar": Installers, ".7z": Installers,
	".tar": Installers, ".gz": Installers,

	".torrent": Torrents,
}

// Classify returns the category for a file name. Extension matching is
// case-insensitive; unknown or missing extensions map to Other.
func Classify(name string) Category {
	return ByExt(filepath.Ext(name))
}

// ByExt returns the category for an extension like ".JPG".
func ByExt(ext string) Category {
	if ext == "" {
		return Other
	}
	if c, ok := extTable[strings.ToLower(ext)]; ok {
		return c
	}
	return Other
}

// NormalizeExt lowercases an extension and ensures a leading dot, so
// "JPG" and ".jpg" compare equal in exclusion sets.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
