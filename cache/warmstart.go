package cache

import (
	"os"

	"github.com/karrick/godirwalk"
)

// WarmStart populates s from files already present under dir, stopping
// once the cache's bounds are reached. godirwalk avoids the extra stat
// syscall per entry that filepath.Walk costs on Linux, worthwhile here
// since a large www_dir is exactly the case a warm start exists for.
func WarmStart(s *State, dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return err
	}
	return godirwalk.Walk(dir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			if s.FileCount() >= s.MaxFiles {
				return godirwalk.SkipThis
			}
			contents, err := os.ReadFile(path)
			if err != nil {
				// an unreadable file during warm start is skipped, not
				// fatal: the cache just serves it cold on first request.
				return nil
			}
			_, _ = s.Store(path, contents)
			return nil
		},
	})
}
