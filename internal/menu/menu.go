// Package menu is the host-facing navigation tree: menus of directories
// and playable videos, links between navigation levels, and their Plex
// MediaContainer rendering.
package menu

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrBadLink is returned by ParseLink for missing or malformed parameters.
var ErrBadLink = errors.New("menu: bad link")

// Action names a navigation level.
type Action string

const (
	ActionCategories   Action = "categories"
	ActionPrograms     Action = "programs"
	ActionProgramsHTML Action = "programs-html"
	ActionViews        Action = "views"
	ActionVideos       Action = "videos"
)

// Actions lists every navigation level below the root.
var Actions = []Action{ActionPrograms, ActionProgramsHTML, ActionViews, ActionVideos}

// Link points at the next navigation level. Thumb carries the name used
// for icon lookup further down (the category name), not an icon file.
type Link struct {
	Action    Action
	Title     string
	URL       string
	Thumb     string
	ProgramID string
	LookupID  bool
	Page      int
}

// Query encodes the link parameters.
func (l Link) Query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("title", l.Title)
	set("thumb", l.Thumb)
	switch l.Action {
	case ActionProgramsHTML:
		set("program_id", l.ProgramID)
	case ActionViews:
		set("url", l.URL)
		if l.LookupID {
			q.Set("lookup_id", "1")
		} else {
			q.Set("lookup_id", "0")
		}
	case ActionVideos:
		set("url", l.URL)
		if l.Page > 1 {
			q.Set("page", strconv.Itoa(l.Page))
		}
	}
	return q
}

// Path returns the request path of the link under prefix.
func (l Link) Path(prefix string) string {
	if l.Action == ActionCategories || l.Action == "" {
		return prefix
	}
	p := prefix + "/" + string(l.Action)
	if q := l.Query().Encode(); q != "" {
		p += "?" + q
	}
	return p
}

// ParseLink decodes the parameters of action.
func ParseLink(action Action, q url.Values) (Link, error) {
	l := Link{
		Action: action,
		Title:  q.Get("title"),
		Thumb:  q.Get("thumb"),
	}
	switch action {
	case ActionCategories:
		return Link{Action: action}, nil
	case ActionPrograms:
		if l.Title == "" {
			return l, fmt.Errorf("%w: programs needs title", ErrBadLink)
		}
	case ActionProgramsHTML:
		l.ProgramID = q.Get("program_id")
		if l.ProgramID == "" {
			return l, fmt.Errorf("%w: programs-html needs program_id", ErrBadLink)
		}
	case ActionViews:
		l.URL = q.Get("url")
		if l.URL == "" {
			return l, fmt.Errorf("%w: views needs url", ErrBadLink)
		}
		l.LookupID = true
		if v := q.Get("lookup_id"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return l, fmt.Errorf("%w: lookup_id %q", ErrBadLink, v)
			}
			l.LookupID = b
		}
	case ActionVideos:
		l.URL = q.Get("url")
		if l.URL == "" {
			return l, fmt.Errorf("%w: videos needs url", ErrBadLink)
		}
		l.Page = 1
		if v := q.Get("page"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return l, fmt.Errorf("%w: page %q", ErrBadLink, v)
			}
			if n > 1 {
				l.Page = n
			}
		}
	default:
		return l, fmt.Errorf("%w: unknown action %q", ErrBadLink, action)
	}
	return l, nil
}

// Kind distinguishes navigable entries from playable ones.
type Kind string

const (
	KindDirectory Kind = "directory"
	KindVideo     Kind = "video"
)

// Item is one menu entry. Directories carry a Link; videos a PlayURL.
// Thumb is an icon file name or an absolute image URL.
type Item struct {
	Kind    Kind
	Title   string
	Thumb   string
	Info    string
	Link    *Link
	PlayURL string
}

// Menu is one navigation level.
type Menu struct {
	Title1    string
	Title2    string
	ViewGroup string
	Art       string
	Items     []Item
}

// Directories returns the directory entries of m.
func (m *Menu) Directories() []Item {
	var out []Item
	for _, it := range m.Items {
		if it.Kind == KindDirectory {
			out = append(out, it)
		}
	}
	return out
}

// Videos returns the playable entries of m.
func (m *Menu) Videos() []Item {
	var out []Item
	for _, it := range m.Items {
		if it.Kind == KindVideo {
			out = append(out, it)
		}
	}
	return out
}

func isAbsolute(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
