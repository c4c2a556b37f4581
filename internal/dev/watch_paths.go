package dev

import (
	"path/filepath"

	"github.com/vango-dev/transit/internal/config"
)

// CollectWatchPaths returns the directories whose changes affect the route
// manifest: the route tree, compiled route sources, and the directory of a
// local asset manifest.
func CollectWatchPaths(cfg *config.Config) []string {
	paths := []string{
		cfg.RoutesPath(),
		cfg.GeneratedPath(),
	}
	if p := cfg.AssetsPath(); p != "" && !config.IsS3URL(p) {
		paths = append(paths, filepath.Dir(p))
	}

	unique := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		if path == "" {
			continue
		}
		clean := filepath.Clean(path)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		unique = append(unique, clean)
	}

	return unique
}
