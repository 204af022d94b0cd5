// Package tv4 walks the TV4 Play catalog: categories, the programs of a
// category, the views of a program and the videos of a view.
//
// Nothing is kept between calls except what the Fetcher caches; every
// navigation re-reads the documents it needs.
package tv4

import (
	"errors"
)

var (
	// ErrProgramIDNotFound is returned when a program home page has no
	// breadcrumb carrying the program id, or when an empty-shell view
	// document needs a program id that is not known.
	ErrProgramIDNotFound = errors.New("tv4: program id not found")
	// ErrUnexpectedDocument is returned for documents of the wrong shape.
	ErrUnexpectedDocument = errors.New("tv4: unexpected document")
)

// Category is a top-level catalog category.
type Category struct {
	Name string
}

// Program is a program listed under a category or in an HTML listing.
// URL is the home page when LookupID is set, otherwise the view XML document.
type Program struct {
	Name     string
	ID       string
	URL      string
	LookupID bool
}

// ViewKind is the closed set of view kinds the navigator understands.
type ViewKind int

const (
	KindUnknown ViewKind = iota
	KindClipList
	KindCategoryList
)

// ParseViewKind maps the kind attribute of a view.
func ParseViewKind(s string) ViewKind {
	switch s {
	case "cliplist":
		return KindClipList
	case "categorylist":
		return KindCategoryList
	}
	return KindUnknown
}

func (k ViewKind) String() string {
	switch k {
	case KindClipList:
		return "cliplist"
	case KindCategoryList:
		return "categorylist"
	}
	return "unknown"
}

// View is one tab of a program: a clip list or a nested category list.
type View struct {
	Name string
	Kind ViewKind
	URL  string
}

// ViewListing is the result of resolving a program. When the view document
// is an empty shell, Fallback is set and Programs holds the sub-programs
// from the HTML listing instead of Views.
type ViewListing struct {
	ProgramID string
	Views     []View
	Fallback  bool
	Programs  []Program
}

// Video is a free content entry of a clip list.
type Video struct {
	ContentID       string
	Title           string
	ImageURL        string
	PublishedDate   string // as published upstream
	RequiresPayment string
}

// DateLabel is the published date as DD/MM/YYYY, or the raw value when it
// cannot be parsed.
func (v Video) DateLabel() string { return FormatDate(v.PublishedDate) }

// Free reports whether the entry is playable without payment. Only the
// literal "false" counts.
func (v Video) Free() bool { return v.RequiresPayment == "false" }

// Pagination is the "Page X of Y" marker of a content list.
type Pagination struct {
	Current int
	Total   int
}

// HasNext reports whether a further page exists.
func (p Pagination) HasNext() bool { return p.Current < p.Total }

// VideoPage is one page of a clip list.
type VideoPage struct {
	URL        string // list URL without the page parameter
	Page       int
	Videos     []Video
	Pagination *Pagination // nil when the document carries no marker
}

// NextPage returns the page to request for the continuation entry.
func (p *VideoPage) NextPage() (int, bool) {
	if p.Pagination == nil || !p.Pagination.HasNext() {
		return 0, false
	}
	return p.Page + 1, true
}
