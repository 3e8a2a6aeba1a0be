package sandbox

import (
	"os"
	"sort"
)

// RankByRecentMTime returns paths sorted oldest-modified-first. This package
// defines only how to rank candidates for eviction, never when or whether to
// evict them; pruning policy belongs to the host application. A
// path that cannot be stat'd sorts before (is treated as older than) every
// stat-able path, so a pruning loop built on top of this naturally considers
// it first.
func RankByRecentMTime(paths []string) []string {
	ranked := append([]string(nil), paths...)

	modTime := make(map[string]int64, len(ranked))

	for _, p := range ranked {
		info, err := os.Stat(p)
		if err != nil {
			modTime[p] = 0

			continue
		}

		modTime[p] = info.ModTime().UnixNano()
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return modTime[ranked[i]] < modTime[ranked[j]]
	})

	return ranked
}
