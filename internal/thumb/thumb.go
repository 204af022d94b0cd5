// Package thumb maps category and program names to the site's icons.
package thumb

import (
	"sort"

	"github.com/snapetech/tv4play/internal/config"
)

// Resolve returns the icon for name from the site's icon table. Unknown
// names take the icon of parent (looked up once, without its own parent);
// with no parent the site's default icon is used.
func Resolve(s config.Site, name, parent string) string {
	if icon, ok := s.Icons[name]; ok {
		return icon
	}
	if parent != "" {
		return Resolve(s, parent, "")
	}
	return s.IconDefault
}

// Icons returns every icon file the site refers to: the default and
// "More…" icons first, then the table's files in name order.
func Icons(s config.Site) []string {
	seen := map[string]bool{s.IconDefault: true, s.IconMore: true}
	out := []string{s.IconDefault, s.IconMore}
	var files []string
	for _, icon := range s.Icons {
		if !seen[icon] {
			seen[icon] = true
			files = append(files, icon)
		}
	}
	sort.Strings(files)
	return append(out, files...)
}
