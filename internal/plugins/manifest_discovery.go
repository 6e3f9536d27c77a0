package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/astrarelay/astra/pkg/pluginsdk"
)

// ManifestInfo pairs a decoded manifest with the directory it was found in,
// so callers can resolve a plugin binary relative to its manifest.
type ManifestInfo struct {
	Manifest *pluginsdk.Manifest
	Dir      string
}

// DiscoverManifests scans each directory in paths for immediate
// subdirectories carrying a plugin manifest, indexing the result by
// manifest ID (falling back to the subdirectory name if the manifest omits
// one).
func DiscoverManifests(paths []string) (map[string]ManifestInfo, error) {
	index := make(map[string]ManifestInfo)
	for _, root := range paths {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("scan plugin directory %q: %w", root, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			dir := filepath.Join(root, entry.Name())
			info, err := LoadManifestForPath(dir)
			if err != nil {
				continue
			}
			id := info.Manifest.ID
			if strings.TrimSpace(id) == "" {
				id = entry.Name()
			}
			index[id] = info
		}
	}
	return index, nil
}

// LoadManifestForPath resolves and decodes a plugin manifest from path,
// which may point directly at a manifest file, or at a plugin directory
// containing one.
func LoadManifestForPath(path string) (ManifestInfo, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return ManifestInfo{}, fmt.Errorf("plugin path is required")
	}

	stat, err := os.Stat(path)
	if err != nil {
		return ManifestInfo{}, fmt.Errorf("stat plugin path %q: %w", path, err)
	}

	manifestPath := path
	dir := filepath.Dir(path)
	if stat.IsDir() {
		dir = path
		manifestPath = filepath.Join(dir, pluginsdk.ManifestFilename)
		if _, err := os.Stat(manifestPath); err != nil {
			legacy := filepath.Join(dir, pluginsdk.LegacyManifestFilename)
			if _, legacyErr := os.Stat(legacy); legacyErr == nil {
				manifestPath = legacy
			}
		}
	}

	manifest, err := pluginsdk.DecodeManifestFile(manifestPath)
	if err != nil {
		return ManifestInfo{}, err
	}
	return ManifestInfo{Manifest: manifest, Dir: dir}, nil
}
