package config

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// FindFilesByExtension walks rootPath and returns every file whose name ends
// with extension, in walk order. The scenario loader feeds it a directory of
// .hcl definitions; profile loading reads fixed filenames and does not
// need it.
func FindFilesByExtension(rootPath, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	}
	if err := filepath.WalkDir(rootPath, walk); err != nil {
		return nil, err
	}
	return files, nil
}
