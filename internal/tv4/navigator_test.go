package tv4

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/snapetech/tv4play/internal/config"
)

type fakeFetcher struct {
	docs  map[string]string
	calls map[string]int
	ttls  map[string]time.Duration
}

func newFakeFetcher(docs map[string]string) *fakeFetcher {
	return &fakeFetcher{docs: docs, calls: map[string]int{}, ttls: map[string]time.Duration{}}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, ttl time.Duration) ([]byte, error) {
	f.calls[url]++
	f.ttls[url] = ttl
	body, ok := f.docs[url]
	if !ok {
		return nil, fmt.Errorf("unexpected fetch %s", url)
	}
	return []byte(body), nil
}

const testBase = "http://tv4.test"

func testSite() config.Site {
	c := &config.Config{
		SiteURL:      testBase,
		PlayerURL:    config.DefaultPlayerURL,
		CacheTTL:     time.Hour,
		CacheTTLLong: 30 * 24 * time.Hour,
		MoreLabel:    "More…",
	}
	return c.Site()
}

const catalogXML = `<?xml version="1.0" encoding="UTF-8"?>
<xml xmlns="http://www.tv4.se/xml/videoapi">
  <category name="root">
    <subcategories>
      <category name="Nyheter" level="1">
        <subcategories>
          <category name="Rapport" level="2">
            <views><view name="Rapport" kind="cliplist"><url>http://tv4.test/nyheter/rapport?view=xml</url></view></views>
          </category>
          <category name="Utan vy" level="2"><views/></category>
          <category name="Nivå tre" level="3">
            <views><view name="x" kind="cliplist"><url>http://tv4.test/x?view=xml</url></view></views>
          </category>
        </subcategories>
      </category>
      <category name="Sport" level="1">
        <subcategories>
          <category name="Fotboll" level="2">
            <views><view name="Fotboll" kind="cliplist"><url>http://tv4.test/sport/fotboll?view=xml</url></view></views>
          </category>
        </subcategories>
      </category>
      <category name="Barn &amp; &quot;Ungdom&quot;" level="1">
        <subcategories>
          <category name="Bolibompa" level="2">
            <views><view name="Bolibompa" kind="cliplist"><url>http://tv4.test/barn/bolibompa?view=xml</url></view></views>
          </category>
        </subcategories>
      </category>
      <category name="Gömd" level="2"/>
    </subcategories>
  </category>
</xml>`

func TestCategories_documentOrder(t *testing.T) {
	f := newFakeFetcher(map[string]string{testBase + "/?view=xml": catalogXML})
	n := NewNavigator(testSite(), f, nil)
	cats, err := n.Categories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Nyheter", "Sport", `Barn & "Ungdom"`}
	if len(cats) != len(want) {
		t.Fatalf("Categories() = %v, want %v", cats, want)
	}
	for i, c := range cats {
		if c.Name != want[i] {
			t.Errorf("cats[%d] = %q, want %q", i, c.Name, want[i])
		}
	}
	if ttl := f.ttls[testBase+"/?view=xml"]; ttl != time.Hour {
		t.Errorf("catalog ttl = %v, want 1h", ttl)
	}
}

func TestCategories_empty(t *testing.T) {
	f := newFakeFetcher(map[string]string{testBase + "/?view=xml": `<xml xmlns="http://www.tv4.se/xml/videoapi"><category/></xml>`})
	cats, err := NewNavigator(testSite(), f, nil).Categories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 0 {
		t.Errorf("Categories() = %v, want none", cats)
	}
}

func TestCategories_wrongNamespace(t *testing.T) {
	f := newFakeFetcher(map[string]string{testBase + "/?view=xml": `<xml xmlns="urn:other"><category/></xml>`})
	_, err := NewNavigator(testSite(), f, nil).Categories(context.Background())
	if !errors.Is(err, ErrUnexpectedDocument) {
		t.Errorf("err = %v, want ErrUnexpectedDocument", err)
	}
}

func TestCategories_fetchError(t *testing.T) {
	f := newFakeFetcher(nil)
	if _, err := NewNavigator(testSite(), f, nil).Categories(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestCategories_latin1(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<xml xmlns=\"http://www.tv4.se/xml/videoapi\"><category><subcategories>" +
		"<category name=\"N\xf6je &amp; humor\" level=\"1\"/></subcategories></category></xml>"
	f := newFakeFetcher(map[string]string{testBase + "/?view=xml": doc})
	cats, err := NewNavigator(testSite(), f, nil).Categories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 || cats[0].Name != "Nöje & humor" {
		t.Errorf("Categories() = %v, want [Nöje & humor]", cats)
	}
}

func TestPrograms(t *testing.T) {
	f := newFakeFetcher(map[string]string{testBase + "/?view=xml": catalogXML})
	n := NewNavigator(testSite(), f, nil)
	progs, err := n.Programs(context.Background(), "Nyheter")
	if err != nil {
		t.Fatal(err)
	}
	if len(progs) != 1 {
		t.Fatalf("Programs(Nyheter) = %v, want 1 program", progs)
	}
	p := progs[0]
	if p.Name != "Rapport" || p.URL != "http://tv4.test/nyheter/rapport" || !p.LookupID {
		t.Errorf("Programs(Nyheter)[0] = %+v", p)
	}
}

func TestPrograms_quotedCategoryName(t *testing.T) {
	f := newFakeFetcher(map[string]string{testBase + "/?view=xml": catalogXML})
	progs, err := NewNavigator(testSite(), f, nil).Programs(context.Background(), `Barn & "Ungdom"`)
	if err != nil {
		t.Fatal(err)
	}
	if len(progs) != 1 || progs[0].Name != "Bolibompa" {
		t.Errorf("Programs = %v, want [Bolibompa]", progs)
	}
}

func TestPrograms_unknownCategory(t *testing.T) {
	f := newFakeFetcher(map[string]string{testBase + "/?view=xml": catalogXML})
	progs, err := NewNavigator(testSite(), f, nil).Programs(context.Background(), "Gömd")
	if err != nil {
		t.Fatal(err)
	}
	if len(progs) != 0 {
		t.Errorf("Programs(Gömd) = %v, want none", progs)
	}
}

const listingHTML = `<html><body>
<ul>
  <li><div><p><a href="/1.111?ajax=true">  LOKALA NYHETER STOCKHOLM </a></p></div></li>
  <li><div><p><a href="/1.222?ajax=true">lokala nyheter göteborg</a></p></div></li>
  <li><div><p><a href="/broken">Trasig</a></p></div></li>
</ul>
<ul><li><a href="/1.333?ajax=true">not in a paragraph</a></li></ul>
</body></html>`

func TestProgramsFromHTML(t *testing.T) {
	f := newFakeFetcher(map[string]string{testBase + "/1.100": listingHTML})
	progs, err := NewNavigator(testSite(), f, nil).ProgramsFromHTML(context.Background(), "1.100")
	if err != nil {
		t.Fatal(err)
	}
	want := []Program{
		{Name: "Lokala Nyheter Stockholm", ID: "1.111", URL: testBase + "/1.111?view=xml"},
		{Name: "Lokala Nyheter Göteborg", ID: "1.222", URL: testBase + "/1.222?view=xml"},
	}
	if len(progs) != len(want) {
		t.Fatalf("ProgramsFromHTML = %+v, want %+v", progs, want)
	}
	for i := range want {
		if progs[i] != want[i] {
			t.Errorf("progs[%d] = %+v, want %+v", i, progs[i], want[i])
		}
	}
}

const homeHTML = `<html><body>
<div id="browser"><div class="inner">
  <ul class="breadcrumbs">
    <li><h3><a href="/?browser=1.100">Nyheter</a></h3></li>
    <li><h3><a href="/nyheter/rapport?browser=1.2345">Rapport</a></h3></li>
  </ul>
</div></div>
</body></html>`

const viewsXML = `<xml xmlns="http://www.tv4.se/xml/videoapi">
  <category name="Rapport">
    <views>
      <view name="Senaste" kind="cliplist"><url>http://tv4.test/videos?id=1.2345</url></view>
      <view name="VÄDER" kind="cliplist"><url>http://tv4.test/videos?keywords=vader</url></view>
      <view name="INRIKES" kind="cliplist"><url>http://tv4.test/videos?id=9</url></view>
      <view name="Avsnitt" kind="categorylist"><url>http://tv4.test/1.2346?view=xml</url></view>
      <view name="Live" kind="livestream"><url>http://tv4.test/live</url></view>
    </views>
  </category>
</xml>`

func TestViews_lookupID(t *testing.T) {
	home := testBase + "/nyheter/rapport"
	f := newFakeFetcher(map[string]string{
		home:                          homeHTML,
		testBase + "/1.2345?view=xml": viewsXML,
	})
	res, err := NewNavigator(testSite(), f, nil).Views(context.Background(), home, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.ProgramID != "1.2345" {
		t.Errorf("ProgramID = %q, want 1.2345", res.ProgramID)
	}
	if res.Fallback {
		t.Error("unexpected fallback")
	}
	want := []View{
		{Name: "Senaste", Kind: KindClipList, URL: "http://tv4.test/videos?id=1.2345"},
		{Name: "Väder", Kind: KindClipList, URL: "http://tv4.test/videos?keywords=vader"},
		{Name: "INRIKES", Kind: KindClipList, URL: "http://tv4.test/videos?id=9"},
		{Name: "Avsnitt", Kind: KindCategoryList, URL: "http://tv4.test/1.2346?view=xml"},
	}
	if len(res.Views) != len(want) {
		t.Fatalf("Views = %+v, want %+v", res.Views, want)
	}
	for i := range want {
		if res.Views[i] != want[i] {
			t.Errorf("Views[%d] = %+v, want %+v", i, res.Views[i], want[i])
		}
	}
	long := 30 * 24 * time.Hour
	if f.ttls[home] != long || f.ttls[testBase+"/1.2345?view=xml"] != long {
		t.Errorf("ttls = %v, want %v for home and views", f.ttls, long)
	}
}

func TestViews_missingBreadcrumb(t *testing.T) {
	home := testBase + "/nyheter/rapport"
	f := newFakeFetcher(map[string]string{home: `<html><body><div id="browser"></div></body></html>`})
	_, err := NewNavigator(testSite(), f, nil).Views(context.Background(), home, true)
	if !errors.Is(err, ErrProgramIDNotFound) {
		t.Errorf("err = %v, want ErrProgramIDNotFound", err)
	}
}

func TestViews_breadcrumbWithoutID(t *testing.T) {
	home := testBase + "/nyheter/rapport"
	f := newFakeFetcher(map[string]string{home: `<html><body><div id="browser"><ul class="breadcrumbs">
<li><h3><a href="/nyheter">Nyheter</a></h3></li></ul></div></body></html>`})
	_, err := NewNavigator(testSite(), f, nil).Views(context.Background(), home, true)
	if !errors.Is(err, ErrProgramIDNotFound) {
		t.Errorf("err = %v, want ErrProgramIDNotFound", err)
	}
}

func TestViews_emptyShellFallsBackToListing(t *testing.T) {
	views := testBase + "/1.100?view=xml"
	f := newFakeFetcher(map[string]string{
		views: `<xml xmlns="http://www.tv4.se/xml/videoapi"><category><views>
<view name="Lokalt" kind="categorylist"/><view name="Annat" kind="cliplist"/></views></category></xml>`,
		testBase + "/1.100": listingHTML,
	})
	res, err := NewNavigator(testSite(), f, nil).Views(context.Background(), views, false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Fallback {
		t.Fatal("expected fallback")
	}
	if len(res.Views) != 0 || len(res.Programs) != 2 {
		t.Errorf("res = %+v, want 2 programs and no views", res)
	}
	if f.calls[testBase+"/1.100"] != 1 {
		t.Errorf("listing fetched %d times, want 1", f.calls[testBase+"/1.100"])
	}
}

func TestViews_emptyShellUsesBreadcrumbID(t *testing.T) {
	home := testBase + "/nyheter/rapport"
	f := newFakeFetcher(map[string]string{
		home: homeHTML,
		testBase + "/1.2345?view=xml": `<xml xmlns="http://www.tv4.se/xml/videoapi"><category><views>
<view name="Lokalt" kind="categorylist"/></views></category></xml>`,
		testBase + "/1.2345": listingHTML,
	})
	res, err := NewNavigator(testSite(), f, nil).Views(context.Background(), home, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.ProgramID != "1.2345" {
		t.Errorf("ProgramID = %q, want 1.2345", res.ProgramID)
	}
	if !res.Fallback || len(res.Programs) != 2 {
		t.Errorf("res = %+v, want fallback with 2 programs", res)
	}
	if f.calls[testBase+"/1.2345"] != 1 {
		t.Errorf("listing fetched %d times, want 1", f.calls[testBase+"/1.2345"])
	}
	if f.calls[testBase+"/nyheter"] != 0 {
		t.Errorf("listing fetched from the URL path instead of the breadcrumb id")
	}
}

func TestViews_emptyContent(t *testing.T) {
	views := testBase + "/1.100?view=xml"
	f := newFakeFetcher(map[string]string{views: " \n\t"})
	res, err := NewNavigator(testSite(), f, nil).Views(context.Background(), views, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Views) != 0 || res.Fallback {
		t.Errorf("res = %+v, want empty", res)
	}
}

func TestViews_noViews(t *testing.T) {
	views := testBase + "/1.100?view=xml"
	f := newFakeFetcher(map[string]string{views: `<xml xmlns="http://www.tv4.se/xml/videoapi"><category><views/></category></xml>`})
	res, err := NewNavigator(testSite(), f, nil).Views(context.Background(), views, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Views) != 0 || res.Fallback {
		t.Errorf("res = %+v, want empty", res)
	}
}

const videosXML = `<xml xmlns="http://www.tv4.se/xml/contentinfo">
  <contentList page="Page %d of %d">
    <content contentID="101">
      <title>Rapport 19.30</title>
      <imageURL>http://img.test/101.jpg</imageURL>
      <publishedDate>2009-11-28</publishedDate>
      <requiresPayment>false</requiresPayment>
    </content>
    <content contentID="102">
      <title>Premium</title>
      <imageURL>http://img.test/102.jpg</imageURL>
      <publishedDate>2009-11-28</publishedDate>
      <requiresPayment>true</requiresPayment>
    </content>
    <content contentID="103">
      <title>Okänt datum</title>
      <imageURL>http://img.test/103.jpg</imageURL>
      <publishedDate>igår</publishedDate>
      <requiresPayment>false</requiresPayment>
    </content>
    <content contentID="104">
      <title>Saknar flagga</title>
    </content>
  </contentList>
</xml>`

func TestVideos(t *testing.T) {
	list := "http://tv4.test/videos?id=1.2345"
	f := newFakeFetcher(map[string]string{list + "&page=2": fmt.Sprintf(videosXML, 2, 5)})
	page, err := NewNavigator(testSite(), f, nil).Videos(context.Background(), list, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Videos) != 2 {
		t.Fatalf("Videos = %+v, want 2 free entries", page.Videos)
	}
	v := page.Videos[0]
	if v.ContentID != "101" || v.Title != "Rapport 19.30" || v.ImageURL != "http://img.test/101.jpg" {
		t.Errorf("Videos[0] = %+v", v)
	}
	if got := v.DateLabel(); got != "28/11/2009" {
		t.Errorf("DateLabel() = %q, want 28/11/2009", got)
	}
	if got := page.Videos[1].DateLabel(); got != "igår" {
		t.Errorf("DateLabel() = %q, want raw value", got)
	}
	next, ok := page.NextPage()
	if !ok || next != 3 {
		t.Errorf("NextPage() = %d, %v; want 3, true", next, ok)
	}
	if f.ttls[list+"&page=2"] != time.Hour {
		t.Errorf("ttl = %v, want 1h", f.ttls[list+"&page=2"])
	}
}

func TestVideos_lastPage(t *testing.T) {
	list := "http://tv4.test/videos?id=1"
	f := newFakeFetcher(map[string]string{list + "&page=5": fmt.Sprintf(videosXML, 5, 5)})
	page, err := NewNavigator(testSite(), f, nil).Videos(context.Background(), list, 5)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := page.NextPage(); ok {
		t.Error("NextPage() on last page reported more")
	}
}

func TestVideos_pageDefaultsToOne(t *testing.T) {
	list := "http://tv4.test/videos?id=1"
	f := newFakeFetcher(map[string]string{list + "&page=1": `<xml xmlns="http://www.tv4.se/xml/contentinfo"><contentList/></xml>`})
	page, err := NewNavigator(testSite(), f, nil).Videos(context.Background(), list, 0)
	if err != nil {
		t.Fatal(err)
	}
	if page.Page != 1 || page.Pagination != nil || len(page.Videos) != 0 {
		t.Errorf("page = %+v", page)
	}
}
