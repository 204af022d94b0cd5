package menufs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/snapetech/tv4play/internal/menu"
)

// pagedOpener serves a clip list of total pages with one video each.
type pagedOpener struct {
	total  int
	opened []int
	failAt int
}

func (p *pagedOpener) Open(_ context.Context, l menu.Link) (*menu.Menu, error) {
	if l.Action != menu.ActionVideos {
		return &menu.Menu{Items: []menu.Item{
			{Kind: menu.KindDirectory, Title: "Klipp", Link: &menu.Link{Action: menu.ActionVideos, URL: "http://x/v?id=1", Page: 1}},
			{Kind: menu.KindDirectory, Title: "A/B", Link: &menu.Link{Action: menu.ActionViews, URL: "http://x/1?view=xml"}},
			{Kind: menu.KindDirectory, Title: "Klipp", Link: &menu.Link{Action: menu.ActionVideos, URL: "http://x/v?id=2", Page: 1}},
		}}, nil
	}
	p.opened = append(p.opened, l.Page)
	if l.Page == p.failAt {
		return nil, errors.New("upstream down")
	}
	m := &menu.Menu{Items: []menu.Item{{
		Kind:    menu.KindVideo,
		Title:   fmt.Sprintf("Avsnitt %d", l.Page),
		Info:    "28/11/2009",
		PlayURL: fmt.Sprintf("http://player/?id=%d", l.Page),
	}}}
	if l.Page < p.total {
		m.Items = append(m.Items, menu.Item{Kind: menu.KindDirectory, Title: "More…", Link: &menu.Link{Action: menu.ActionVideos, URL: l.URL, Page: l.Page + 1}})
	}
	return m, nil
}

func TestTree_flattensPages(t *testing.T) {
	op := &pagedOpener{total: 5}
	tree := &Tree{Menus: op, MaxPages: 3}
	got, err := tree.List(context.Background(), menu.Link{Action: menu.ActionVideos, URL: "http://x/v?id=1", Page: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("List = %+v, want 3 videos", got)
	}
	for i, e := range got {
		if e.Dir {
			t.Errorf("entry %d is a directory", i)
		}
	}
	if got[0].Name != "Avsnitt 1 (28-11-2009).strm" || string(got[0].Content) != "http://player/?id=1\n" {
		t.Errorf("entry 0 = %q %q", got[0].Name, got[0].Content)
	}
	if fmt.Sprint(op.opened) != "[1 2 3]" {
		t.Errorf("opened pages %v, want [1 2 3]", op.opened)
	}
}

func TestTree_lastPageStops(t *testing.T) {
	op := &pagedOpener{total: 2}
	got, err := (&Tree{Menus: op, MaxPages: 10}).List(context.Background(), menu.Link{Action: menu.ActionVideos, URL: "u", Page: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || fmt.Sprint(op.opened) != "[1 2]" {
		t.Errorf("got %d entries, opened %v", len(got), op.opened)
	}
}

func TestTree_pageFailure(t *testing.T) {
	op := &pagedOpener{total: 5, failAt: 2}
	if _, err := (&Tree{Menus: op, MaxPages: 5}).List(context.Background(), menu.Link{Action: menu.ActionVideos, URL: "u", Page: 1}); err == nil {
		t.Error("expected error from page 2")
	}
}

func TestTree_directoriesUnique(t *testing.T) {
	got, err := (&Tree{Menus: &pagedOpener{}}).List(context.Background(), menu.Link{Action: menu.ActionCategories})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Klipp", "A - B", "Klipp [2]"}
	if len(got) != len(want) {
		t.Fatalf("List = %+v", got)
	}
	for i, w := range want {
		if got[i].Name != w || !got[i].Dir || got[i].Link == nil {
			t.Errorf("entry %d = %+v, want dir %q", i, got[i], w)
		}
	}
}

func TestNames(t *testing.T) {
	tests := []struct{ title, info, dir, file string }{
		{"Rapport", "28/11/2009", "Rapport", "Rapport (28-11-2009).strm"},
		{"AC/DC", "", "AC - DC", "AC - DC.strm"},
		{"..", "", "_", "_.strm"},
		{"  ", "igår", "_", "_ (igår).strm"},
	}
	for _, tt := range tests {
		if got := DirName(tt.title); got != tt.dir {
			t.Errorf("DirName(%q) = %q, want %q", tt.title, got, tt.dir)
		}
		if got := VideoFileName(tt.title, tt.info); got != tt.file {
			t.Errorf("VideoFileName(%q, %q) = %q, want %q", tt.title, tt.info, got, tt.file)
		}
	}
	if got := uniqueName("Rapport.strm", 2, false); got != "Rapport [2].strm" {
		t.Errorf("uniqueName = %q", got)
	}
}

func TestLinkIno_stable(t *testing.T) {
	a := menu.Link{Action: menu.ActionViews, URL: "http://x/1", Title: "T"}
	if linkIno(a) != linkIno(a) {
		t.Error("linkIno not stable")
	}
	b := a
	b.URL = "http://x/2"
	if linkIno(a) == linkIno(b) {
		t.Error("distinct links share an inode")
	}
}
