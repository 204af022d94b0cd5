package tv4

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
)

// Root catalog and per-program view documents share one shape:
//
//	<xml xmlns="http://www.tv4.se/xml/videoapi">
//	  <category>
//	    <subcategories>
//	      <category name="Nyheter" level="1">
//	        <subcategories>
//	          <category name="Rapport" level="2">
//	            <views><view name="..." kind="cliplist"><url>...</url></view></views>
//	...
type videoAPIDoc struct {
	XMLName  xml.Name    `xml:"xml"`
	Category apiCategory `xml:"category"`
}

type apiCategory struct {
	Name          string        `xml:"name,attr"`
	Level         string        `xml:"level,attr"`
	Subcategories []apiCategory `xml:"subcategories>category"`
	Views         []apiView     `xml:"views>view"`
}

type apiView struct {
	Name  string    `xml:"name,attr"`
	Kind  string    `xml:"kind,attr"`
	URL   []string  `xml:"url"`
	Other []anyElem `xml:",any"`
}

type anyElem struct {
	XMLName xml.Name
}

// empty reports a view node without child elements. Such nodes mark a
// program whose views live one listing level further down.
func (v apiView) empty() bool { return len(v.URL) == 0 && len(v.Other) == 0 }

func (v apiView) firstURL() string {
	for _, u := range v.URL {
		if u = strings.TrimSpace(u); u != "" {
			return u
		}
	}
	return ""
}

// Content list documents (contentinfo namespace).
type contentDoc struct {
	XMLName xml.Name     `xml:"xml"`
	List    *contentList `xml:"contentList"`
}

type contentList struct {
	Page    string        `xml:"page,attr"`
	Content []contentElem `xml:"content"`
}

type contentElem struct {
	ContentID       string `xml:"contentID,attr"`
	Title           string `xml:"title"`
	ImageURL        string `xml:"imageURL"`
	PublishedDate   string `xml:"publishedDate"`
	RequiresPayment string `xml:"requiresPayment"`
}

// decodeXML decodes body into v and checks the root element namespace.
// Any declared encoding is honoured; HTML entities are tolerated.
func decodeXML(body []byte, namespace string, v interface{ root() xml.Name }) error {
	d := xml.NewDecoder(bytes.NewReader(body))
	d.CharsetReader = charset.NewReaderLabel
	d.Entity = xml.HTMLEntity
	if err := d.Decode(v); err != nil {
		return fmt.Errorf("decode xml: %w", err)
	}
	if got := v.root().Space; namespace != "" && got != namespace {
		return fmt.Errorf("%w: namespace %q, want %q", ErrUnexpectedDocument, got, namespace)
	}
	return nil
}

func (d *videoAPIDoc) root() xml.Name { return d.XMLName }
func (d *contentDoc) root() xml.Name  { return d.XMLName }

// levelOne returns the top-level categories of the root catalog.
func (d *videoAPIDoc) levelOne() []apiCategory {
	return filterLevel(d.Category.Subcategories, "1")
}

func filterLevel(cats []apiCategory, level string) []apiCategory {
	var out []apiCategory
	for _, c := range cats {
		if c.Level == level {
			out = append(out, c)
		}
	}
	return out
}
