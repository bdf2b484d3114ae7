package dbgraph

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/boyter/gocodewalker"
)

// schemaExtensions are the file extensions treated as schema files inside directories.
var schemaExtensions = []string{"yaml", "yml"}

// CollectSchemaFiles expands paths into schema files. Files are taken as given;
// directories are walked honouring .gitignore and .ignore files. Results from a
// directory are sorted so the load order is stable. Config files are skipped.
func CollectSchemaFiles(paths []string) ([]string, error) {
	var files []string

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		found, err := walkSchemaDir(p)
		if err != nil {
			return nil, err
		}

		files = append(files, found...)
	}

	return files, nil
}

func walkSchemaDir(dir string) ([]string, error) {
	queue := make(chan *gocodewalker.File, 100)

	walker := gocodewalker.NewFileWalker(dir, queue)
	walker.AllowListExtensions = schemaExtensions

	var walkErr error
	walker.SetErrorHandler(func(e error) bool {
		walkErr = e
		return true
	})

	var (
		found []string
		wg    sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for f := range queue {
			if slices.Contains(DefaultConfigNames, filepath.Base(f.Location)) {
				continue
			}

			found = append(found, f.Location)
		}
	}()

	if err := walker.Start(); err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}

	wg.Wait()

	if walkErr != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, walkErr)
	}

	slices.Sort(found)

	return found, nil
}

// LoadSchemas applies every schema file found under paths to db, in order.
func LoadSchemas(db *Database, paths []string) error {
	files, err := CollectSchemaFiles(paths)
	if err != nil {
		return err
	}

	for _, file := range files {
		sf, err := LoadSchemaFile(file)
		if err != nil {
			return err
		}

		if err := sf.Apply(db); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}

	return nil
}
