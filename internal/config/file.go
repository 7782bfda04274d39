package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// File represents the optional salvage configuration file. Every field
// is a pointer so "not set" is distinguishable from a zero value.
type File struct {
	Defaults FileDefaults `toml:"defaults"`
}

// FileDefaults holds persistent flag defaults.
type FileDefaults struct {
	Workers         *int    `toml:"workers"`
	HashDedup       *bool   `toml:"hash_dedup"`
	DateFolders     *bool   `toml:"date_folders"`
	DateGranularity *string `toml:"date_granularity"`
	CategoryFolders *bool   `toml:"category_folders"`
	SourcePrefix    *bool   `toml:"source_prefix"`
	SmartFilter     *bool   `toml:"smart_filter"`
	PreserveTimes   *bool   `toml:"preserve_times"`
	MaxSize         *string `toml:"max_size"`
	ExcludeExts     *string `toml:"exclude_exts"`
	BWLimit         *string `toml:"bwlimit"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "salvage", "config.toml")
}

// LoadFile reads the config file from the XDG path. Returns a zero File
// (no error) if the file does not exist; the file is always optional.
func LoadFile() (File, error) {
	return loadFrom(Path())
}

func loadFrom(path string) (File, error) {
	if path == "" {
		return File{}, nil
	}

	var f File
	_, err := toml.DecodeFile(path, &f)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return File{}, nil
		}
		return File{}, err
	}
	return f, nil
}
