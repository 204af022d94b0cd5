package menu

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/snapetech/tv4play/internal/config"
	"github.com/snapetech/tv4play/internal/metrics"
	"github.com/snapetech/tv4play/internal/thumb"
	"github.com/snapetech/tv4play/internal/tv4"
)

// Builder turns navigator results into menus.
type Builder struct {
	nav  *tv4.Navigator
	site config.Site
	log  logrus.FieldLogger
}

// NewBuilder returns a Builder over nav. log may be nil.
func NewBuilder(nav *tv4.Navigator, log logrus.FieldLogger) *Builder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Builder{nav: nav, site: nav.Site(), log: log.WithField("component", "menu")}
}

func (b *Builder) newMenu(title2 string) *Menu {
	return &Menu{
		Title1:    b.site.Title,
		Title2:    title2,
		ViewGroup: b.site.ViewGroup,
		Art:       b.site.Art,
	}
}

func (b *Builder) done(action Action, m *Menu) *Menu {
	metrics.MenuItems.WithLabelValues(string(action)).Add(float64(len(m.Items)))
	return m
}

// Open renders the navigation level l points at.
func (b *Builder) Open(ctx context.Context, l Link) (*Menu, error) {
	switch l.Action {
	case ActionCategories, "":
		return b.Categories(ctx)
	case ActionPrograms:
		return b.Programs(ctx, l.Title, l.Thumb)
	case ActionProgramsHTML:
		return b.ProgramsFromHTML(ctx, l.Title, l.Thumb, l.ProgramID)
	case ActionViews:
		return b.Views(ctx, l.Title, l.URL, l.Thumb, l.LookupID)
	case ActionVideos:
		return b.Videos(ctx, l.Title, l.URL, l.Page)
	}
	return nil, fmt.Errorf("%w: unknown action %q", ErrBadLink, l.Action)
}

// Categories is the root menu: one directory per top-level category.
func (b *Builder) Categories(ctx context.Context) (*Menu, error) {
	cats, err := b.nav.Categories(ctx)
	if err != nil {
		return nil, err
	}
	m := b.newMenu("")
	for _, c := range cats {
		m.Items = append(m.Items, Item{
			Kind:  KindDirectory,
			Title: c.Name,
			Thumb: thumb.Resolve(b.site, c.Name, ""),
			Link:  &Link{Action: ActionPrograms, Title: c.Name, Thumb: c.Name},
		})
	}
	return b.done(ActionCategories, m), nil
}

// Programs lists the programs of a category. parentThumb is the category
// name used for icon fallback.
func (b *Builder) Programs(ctx context.Context, title, parentThumb string) (*Menu, error) {
	progs, err := b.nav.Programs(ctx, title)
	if err != nil {
		return nil, err
	}
	m := b.newMenu(title)
	b.appendPrograms(m, progs, parentThumb)
	return b.done(ActionPrograms, m), nil
}

// ProgramsFromHTML lists the sub-programs of programID from its HTML page.
func (b *Builder) ProgramsFromHTML(ctx context.Context, title, parentThumb, programID string) (*Menu, error) {
	progs, err := b.nav.ProgramsFromHTML(ctx, programID)
	if err != nil {
		return nil, err
	}
	m := b.newMenu(title)
	b.appendPrograms(m, progs, parentThumb)
	return b.done(ActionProgramsHTML, m), nil
}

func (b *Builder) appendPrograms(m *Menu, progs []tv4.Program, parentThumb string) {
	for _, p := range progs {
		m.Items = append(m.Items, Item{
			Kind:  KindDirectory,
			Title: p.Name,
			Thumb: thumb.Resolve(b.site, p.Name, parentThumb),
			Link: &Link{
				Action:   ActionViews,
				Title:    p.Name,
				URL:      p.URL,
				Thumb:    parentThumb,
				LookupID: p.LookupID,
			},
		})
	}
}

// Views lists the views of a program, or its sub-programs when the view
// document is an empty shell.
func (b *Builder) Views(ctx context.Context, title, programURL, parentThumb string, lookupID bool) (*Menu, error) {
	res, err := b.nav.Views(ctx, programURL, lookupID)
	if err != nil {
		return nil, err
	}
	m := b.newMenu(title)
	if res.Fallback {
		b.log.WithFields(logrus.Fields{"program": title, "program_id": res.ProgramID}).Debug("empty view document; using program listing")
		b.appendPrograms(m, res.Programs, parentThumb)
		return b.done(ActionViews, m), nil
	}
	for _, v := range res.Views {
		it := Item{
			Kind:  KindDirectory,
			Title: v.Name,
			Thumb: thumb.Resolve(b.site, v.Name, parentThumb),
		}
		switch v.Kind {
		case tv4.KindClipList:
			it.Link = &Link{Action: ActionVideos, Title: v.Name, URL: v.URL, Page: 1}
		case tv4.KindCategoryList:
			it.Link = &Link{Action: ActionViews, Title: v.Name, URL: v.URL, Thumb: parentThumb}
		default:
			continue
		}
		m.Items = append(m.Items, it)
	}
	return b.done(ActionViews, m), nil
}

// Videos lists one page of a clip list, followed by a "More…" entry when
// further pages exist.
func (b *Builder) Videos(ctx context.Context, title, listURL string, page int) (*Menu, error) {
	vp, err := b.nav.Videos(ctx, listURL, page)
	if err != nil {
		return nil, err
	}
	m := b.newMenu(title)
	for _, v := range vp.Videos {
		m.Items = append(m.Items, Item{
			Kind:    KindVideo,
			Title:   v.Title,
			Thumb:   v.ImageURL,
			Info:    v.DateLabel(),
			PlayURL: b.site.PlayURL(v.ContentID),
		})
	}
	if next, ok := vp.NextPage(); ok {
		m.Items = append(m.Items, Item{
			Kind:  KindDirectory,
			Title: b.site.MoreLabel,
			Thumb: b.site.IconMore,
			Link:  &Link{Action: ActionVideos, Title: title, URL: listURL, Page: next},
		})
	}
	return b.done(ActionVideos, m), nil
}
