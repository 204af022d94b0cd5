package tv4

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/snapetech/tv4play/internal/config"
)

// Fetcher returns the body of a URL, served from cache when younger than ttl.
type Fetcher interface {
	Fetch(ctx context.Context, url string, ttl time.Duration) ([]byte, error)
}

// Navigator is safe for concurrent use.
type Navigator struct {
	site  config.Site
	fetch Fetcher
	log   logrus.FieldLogger
}

// NewNavigator returns a Navigator reading site through f. log may be nil.
func NewNavigator(site config.Site, f Fetcher, log logrus.FieldLogger) *Navigator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Navigator{site: site, fetch: f, log: log.WithField("component", "tv4")}
}

// Site returns the site the navigator reads.
func (n *Navigator) Site() config.Site { return n.site }

func (n *Navigator) catalog(ctx context.Context) (*videoAPIDoc, error) {
	body, err := n.fetch.Fetch(ctx, n.site.CatalogURL, n.site.TTL)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	var doc videoAPIDoc
	if err := decodeXML(body, n.site.NSVideoAPI, &doc); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return &doc, nil
}

// Categories lists the top-level categories in document order.
func (n *Navigator) Categories(ctx context.Context) ([]Category, error) {
	doc, err := n.catalog(ctx)
	if err != nil {
		return nil, err
	}
	var out []Category
	for _, c := range doc.levelOne() {
		out = append(out, Category{Name: c.Name})
	}
	return out, nil
}

// Programs lists the programs of the named top-level category. The name
// must match exactly. Programs without a view URL are skipped.
func (n *Navigator) Programs(ctx context.Context, category string) ([]Program, error) {
	doc, err := n.catalog(ctx)
	if err != nil {
		return nil, err
	}
	var out []Program
	for _, c := range doc.levelOne() {
		if c.Name != category {
			continue
		}
		for _, p := range filterLevel(c.Subcategories, "2") {
			var viewURL string
			for _, v := range p.Views {
				if viewURL = v.firstURL(); viewURL != "" {
					break
				}
			}
			home, ok := HomeURL(viewURL)
			if !ok {
				n.log.WithFields(logrus.Fields{"program": p.Name, "url": viewURL}).Debug("program without view url; skipped")
				continue
			}
			out = append(out, Program{Name: p.Name, URL: home, LookupID: true})
		}
	}
	return out, nil
}

// ProgramsFromHTML lists the sub-programs on the HTML listing page of
// programID. Their URLs point straight at the view documents.
func (n *Navigator) ProgramsFromHTML(ctx context.Context, programID string) ([]Program, error) {
	u := n.site.ProgramHTMLURL(programID)
	body, err := n.fetch.Fetch(ctx, u, n.site.TTL)
	if err != nil {
		return nil, fmt.Errorf("fetch program listing: %w", err)
	}
	listed, err := scrapeProgramList(body)
	if err != nil {
		return nil, fmt.Errorf("program listing %s: %w", programID, err)
	}
	out := make([]Program, 0, len(listed))
	for _, p := range listed {
		out = append(out, Program{Name: p.name, ID: p.id, URL: n.site.ProgramViewsURL(p.id)})
	}
	return out, nil
}

// ResolveProgramID reads the program id from the breadcrumb of a program
// home page.
func (n *Navigator) ResolveProgramID(ctx context.Context, homeURL string) (string, error) {
	body, err := n.fetch.Fetch(ctx, homeURL, n.site.TTLLong)
	if err != nil {
		return "", fmt.Errorf("fetch program home: %w", err)
	}
	id, err := scrapeProgramID(body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", homeURL, err)
	}
	return id, nil
}

// Views resolves the views of a program. With lookupID, programURL is the
// home page and the id is scraped from it; otherwise programURL is the
// view document itself.
func (n *Navigator) Views(ctx context.Context, programURL string, lookupID bool) (*ViewListing, error) {
	var programID string
	if lookupID {
		id, err := n.ResolveProgramID(ctx, programURL)
		if err != nil {
			return nil, err
		}
		programID = id
		programURL = n.site.ProgramViewsURL(id)
	} else {
		programID = ProgramIDFromURL(programURL)
	}
	out := &ViewListing{ProgramID: programID}

	body, err := n.fetch.Fetch(ctx, programURL, n.site.TTLLong)
	if err != nil {
		return nil, fmt.Errorf("fetch views: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}
	var doc videoAPIDoc
	if err := decodeXML(body, n.site.NSVideoAPI, &doc); err != nil {
		return nil, fmt.Errorf("views %s: %w", programURL, err)
	}
	views := doc.Category.Views
	if len(views) == 0 {
		return out, nil
	}

	if views[0].empty() {
		if programID == "" {
			return nil, fmt.Errorf("%w: empty view document %s", ErrProgramIDNotFound, programURL)
		}
		progs, err := n.ProgramsFromHTML(ctx, programID)
		if err != nil {
			return nil, err
		}
		out.Fallback = true
		out.Programs = progs
		return out, nil
	}

	for _, v := range views {
		kind := ParseViewKind(v.Kind)
		u := v.firstURL()
		if kind == KindUnknown || u == "" {
			n.log.WithFields(logrus.Fields{"view": v.Name, "kind": v.Kind}).Debug("view dropped")
			continue
		}
		out.Views = append(out.Views, View{Name: normalizeViewName(v.Name, u), Kind: kind, URL: u})
	}
	return out, nil
}

// Videos returns one page of free videos from a clip list. page < 1 means 1.
func (n *Navigator) Videos(ctx context.Context, listURL string, page int) (*VideoPage, error) {
	if page < 1 {
		page = 1
	}
	body, err := n.fetch.Fetch(ctx, PageURL(listURL, page), n.site.TTL)
	if err != nil {
		return nil, fmt.Errorf("fetch videos: %w", err)
	}
	var doc contentDoc
	if err := decodeXML(body, n.site.NSContentInfo, &doc); err != nil {
		return nil, fmt.Errorf("videos %s: %w", listURL, err)
	}
	out := &VideoPage{URL: listURL, Page: page}
	if doc.List == nil {
		return out, nil
	}
	for _, c := range doc.List.Content {
		v := Video{
			ContentID:       c.ContentID,
			Title:           c.Title,
			ImageURL:        c.ImageURL,
			PublishedDate:   c.PublishedDate,
			RequiresPayment: c.RequiresPayment,
		}
		if !v.Free() {
			continue
		}
		out.Videos = append(out.Videos, v)
	}
	if p, ok := ParsePagination(doc.List.Page); ok {
		out.Pagination = &p
	}
	return out, nil
}
