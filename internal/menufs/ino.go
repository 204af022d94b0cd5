package menufs

import (
	"hash/fnv"

	"github.com/snapetech/tv4play/internal/menu"
)

// Stable inode numbers from link keys so the same entry keeps its inode
// across listings.
func inoFromString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

func linkIno(l menu.Link) uint64 {
	return inoFromString("tv4play:" + l.Path(""))
}
