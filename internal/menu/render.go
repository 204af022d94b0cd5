package menu

import (
	"encoding/json"
	"encoding/xml"
	"io"
)

// MediaContainer is the Plex wire form of a Menu.
type MediaContainer struct {
	XMLName   xml.Name  `xml:"MediaContainer" json:"-"`
	Size      int       `xml:"size,attr" json:"size"`
	Title1    string    `xml:"title1,attr" json:"title1"`
	Title2    string    `xml:"title2,attr,omitempty" json:"title2,omitempty"`
	ViewGroup string    `xml:"viewGroup,attr,omitempty" json:"viewGroup,omitempty"`
	Art       string    `xml:"art,attr,omitempty" json:"art,omitempty"`
	Items     []Element `json:"items"`
}

// Element is a Directory or Video child of a MediaContainer.
type Element struct {
	XMLName   xml.Name `json:"-"`
	Type      string   `xml:"-" json:"type"`
	Key       string   `xml:"key,attr" json:"key"`
	Title     string   `xml:"title,attr" json:"title"`
	Thumb     string   `xml:"thumb,attr,omitempty" json:"thumb,omitempty"`
	Infolabel string   `xml:"infolabel,attr,omitempty" json:"infolabel,omitempty"`
	Summary   string   `xml:"summary,attr,omitempty" json:"summary,omitempty"`
}

// Renderer turns menus into MediaContainers. Prefix is the plug-in path
// directory keys are built under; Resources is the path icons are served
// from.
type Renderer struct {
	Prefix    string
	Resources string
}

// Key is the request path of a directory or the play URL of a video.
func (r Renderer) Key(it Item) string {
	if it.Kind == KindVideo {
		return it.PlayURL
	}
	if it.Link == nil {
		return r.Prefix
	}
	return it.Link.Path(r.Prefix)
}

// Thumb resolves an icon file name against the resources path. Absolute
// image URLs pass through.
func (r Renderer) Thumb(ref string) string {
	if ref == "" || isAbsolute(ref) {
		return ref
	}
	return r.Resources + "/" + ref
}

// Container builds the wire form of m.
func (r Renderer) Container(m *Menu) MediaContainer {
	mc := MediaContainer{
		Size:      len(m.Items),
		Title1:    m.Title1,
		Title2:    m.Title2,
		ViewGroup: m.ViewGroup,
		Art:       r.Thumb(m.Art),
		Items:     make([]Element, 0, len(m.Items)),
	}
	for _, it := range m.Items {
		el := Element{
			Key:   r.Key(it),
			Title: it.Title,
			Thumb: r.Thumb(it.Thumb),
		}
		if it.Kind == KindVideo {
			el.XMLName.Local = "Video"
			el.Type = string(KindVideo)
			el.Infolabel = it.Info
		} else {
			el.XMLName.Local = "Directory"
			el.Type = string(KindDirectory)
			el.Summary = it.Info
		}
		mc.Items = append(mc.Items, el)
	}
	return mc
}

// WriteXML writes m as an XML MediaContainer.
func (r Renderer) WriteXML(w io.Writer, m *Menu) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(r.Container(m)); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteJSON writes m as a JSON MediaContainer.
func (r Renderer) WriteJSON(w io.Writer, m *Menu) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Container(m))
}
