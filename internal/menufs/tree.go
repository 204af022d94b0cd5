// Package menufs presents the navigation tree as a read-only filesystem:
// directories for menu directories and one .strm file per video holding
// its play URL.
package menufs

import (
	"context"
	"fmt"
	"strings"

	"github.com/snapetech/tv4play/internal/menu"
)

// Entry is one name in a directory listing.
type Entry struct {
	Name    string
	Dir     bool
	Link    *menu.Link // directories
	Content []byte     // files
}

// Opener renders the menu a link points at.
type Opener interface {
	Open(ctx context.Context, l menu.Link) (*menu.Menu, error)
}

// Tree lists directories by opening their links. Video lists are flattened
// across up to MaxPages pages instead of showing a "More…" directory.
type Tree struct {
	Menus    Opener
	MaxPages int
}

// List returns the entries under l.
func (t *Tree) List(ctx context.Context, l menu.Link) ([]Entry, error) {
	m, err := t.Menus.Open(ctx, l)
	if err != nil {
		return nil, err
	}
	items := m.Items
	if l.Action == menu.ActionVideos {
		items, err = t.flatten(ctx, l, m)
		if err != nil {
			return nil, err
		}
	}
	return entries(items), nil
}

func (t *Tree) flatten(ctx context.Context, l menu.Link, m *menu.Menu) ([]menu.Item, error) {
	maxPages := t.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}
	out := m.Videos()
	next := continuation(l, m)
	for pages := 1; next != nil && pages < maxPages; pages++ {
		nm, err := t.Menus.Open(ctx, *next)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", next.Page, err)
		}
		out = append(out, nm.Videos()...)
		next = continuation(*next, nm)
	}
	return out, nil
}

// continuation returns the link to the page after l, if m offers one.
func continuation(l menu.Link, m *menu.Menu) *menu.Link {
	for _, d := range m.Directories() {
		if d.Link != nil && d.Link.Action == menu.ActionVideos && d.Link.URL == l.URL && d.Link.Page > l.Page {
			return d.Link
		}
	}
	return nil
}

func entries(items []menu.Item) []Entry {
	seen := make(map[string]int, len(items))
	out := make([]Entry, 0, len(items))
	for _, it := range items {
		var e Entry
		switch it.Kind {
		case menu.KindVideo:
			e = Entry{Name: VideoFileName(it.Title, it.Info), Content: []byte(it.PlayURL + "\n")}
		default:
			if it.Link == nil {
				continue
			}
			e = Entry{Name: DirName(it.Title), Dir: true, Link: it.Link}
		}
		seen[e.Name]++
		if n := seen[e.Name]; n > 1 {
			e.Name = uniqueName(e.Name, n, e.Dir)
		}
		out = append(out, e)
	}
	return out
}

// DirName returns a filesystem-safe directory name for a menu title.
func DirName(title string) string {
	title = strings.TrimSpace(strings.NewReplacer("/", " - ", "\x00", "").Replace(title))
	switch title {
	case "", ".", "..":
		return "_"
	}
	return title
}

// VideoFileName returns "Title (DD-MM-YYYY).strm"; the date is left out
// when info is empty.
func VideoFileName(title, info string) string {
	name := DirName(title)
	if info = strings.TrimSpace(info); info != "" {
		name += " (" + strings.ReplaceAll(info, "/", "-") + ")"
	}
	return name + ".strm"
}

func uniqueName(name string, n int, dir bool) string {
	if dir {
		return fmt.Sprintf("%s [%d]", name, n)
	}
	base := strings.TrimSuffix(name, ".strm")
	return fmt.Sprintf("%s [%d].strm", base, n)
}
