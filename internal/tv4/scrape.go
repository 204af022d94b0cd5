package tv4

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

const (
	breadcrumbSelector  = `body div#browser ul[class="breadcrumbs"] li:last-of-type > h3 > a`
	programListSelector = `ul > li > div > p > a`
)

func parseHTML(body []byte) (*goquery.Document, error) {
	r, err := charset.NewReader(bytes.NewReader(body), "text/html")
	if err != nil {
		return nil, fmt.Errorf("html charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// scrapeProgramID finds the program id in the last breadcrumb of a program
// home page.
func scrapeProgramID(body []byte) (string, error) {
	doc, err := parseHTML(body)
	if err != nil {
		return "", err
	}
	a := doc.Find(breadcrumbSelector).First()
	if a.Length() == 0 {
		return "", fmt.Errorf("%w: no breadcrumb", ErrProgramIDNotFound)
	}
	href, _ := a.Attr("href")
	m := browserID.FindStringSubmatch(href)
	if m == nil {
		return "", fmt.Errorf("%w: breadcrumb href %q", ErrProgramIDNotFound, href)
	}
	return m[1], nil
}

type listedProgram struct {
	name string
	id   string
}

// scrapeProgramList reads the sub-program listing fragment. Anchors whose
// href carries no id are skipped.
func scrapeProgramList(body []byte) ([]listedProgram, error) {
	doc, err := parseHTML(body)
	if err != nil {
		return nil, err
	}
	var out []listedProgram
	doc.Find(programListSelector).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		m := ajaxHref.FindStringSubmatch(href)
		if m == nil {
			return
		}
		out = append(out, listedProgram{
			name: TitleCase(strings.TrimSpace(a.Text())),
			id:   m[1],
		})
	})
	return out, nil
}
