package timeutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// zoneDirs are the places a tzdata tree usually lives, tried in order.
var zoneDirs = []string{
	"/usr/share/zoneinfo",
	"/usr/share/lib/zoneinfo",
	"/usr/lib/locale/TZ",
}

// ListZones returns the IANA zone names the host tzdata knows, sorted.
// These are exactly the names time.LoadLocation accepts, so the list
// doubles as the help text for an invalid --timezone value.
func ListZones() ([]string, error) {
	var lastErr error
	for _, dir := range zoneDirs {
		names, err := listZonesIn(dir)
		if err != nil {
			lastErr = err
			continue
		}
		return names, nil
	}
	return nil, lastErr
}

func listZonesIn(root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}

	var names []string
	err := fs.WalkDir(os.DirFS(root), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == "." {
			return nil
		}
		// Zone names start with an uppercase letter (Europe/Berlin, UTC).
		// Everything else is tzdata plumbing: posix/ and right/ variants,
		// posixrules, leap-second tables.
		first := path[0]
		if first < 'A' || first > 'Z' {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.Contains(filepath.Base(path), ".") {
			return nil
		}
		names = append(names, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
