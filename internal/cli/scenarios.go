package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// findScenarioFiles returns the YAML files under dir in lexical order.
// filter, if set, is a glob matched against the file name without extension.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// expandPaths turns a mix of files and directories into scenario files.
// A path that does not exist is returned as missing.
func expandPaths(paths []string) (files []string, missing string, err error) {
	for _, p := range paths {
		info, statErr := os.Stat(p)
		if os.IsNotExist(statErr) {
			return nil, p, nil
		}
		if statErr != nil {
			return nil, "", statErr
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := findScenarioFiles(p, "")
		if err != nil {
			return nil, "", err
		}
		files = append(files, found...)
	}
	return files, "", nil
}
