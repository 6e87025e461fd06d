// Package epg parses, normalizes and retains electronic programme guide
// data fetched from the backend.
package epg

import (
	"encoding/xml"
	"time"
)

// timeLayout is the leading fixed-width portion of an XMLTV timestamp.
// A trailing UTC offset (" +0100") may follow it.
const timeLayout = "20060102150405"

// TextLang is a text element with an optional language attribute
type TextLang struct {
	Text string `xml:",chardata"`
	Lang string `xml:"lang,attr,omitempty"`
}

// Icon is a channel or programme icon reference
type Icon struct {
	Src string `xml:"src,attr"`
}

// Channel represents a channel element in the guide XML
type Channel struct {
	ID          string     `xml:"id,attr"`
	DisplayName []TextLang `xml:"display-name"`
	Icon        *Icon      `xml:"icon,omitempty"`
}

// Programme represents a programme element in the guide XML. Start and
// Stop keep the raw timestamp string as received so the document can be
// re-serialized without reformatting.
type Programme struct {
	Start    string     `xml:"start,attr"`
	Stop     string     `xml:"stop,attr"`
	Channel  string     `xml:"channel,attr"`
	Title    TextLang   `xml:"title"`
	SubTitle *TextLang  `xml:"sub-title,omitempty"`
	Desc     *TextLang  `xml:"desc,omitempty"`
	Category []TextLang `xml:"category,omitempty"`
	Icon     *Icon      `xml:"icon,omitempty"`
}

// TV represents the root element of the guide XML
type TV struct {
	XMLName           xml.Name    `xml:"tv"`
	GeneratorInfoName string      `xml:"generator-info-name,attr,omitempty"`
	GeneratorInfoURL  string      `xml:"generator-info-url,attr,omitempty"`
	Channels          []Channel   `xml:"channel"`
	Programmes        []Programme `xml:"programme"`
}

// StartTime parses the fixed-width portion of the start timestamp. Any
// trailing offset is ignored for ordering and eviction purposes.
func (p Programme) StartTime() (time.Time, error) {
	return parseTimestamp(p.Start)
}

func parseTimestamp(s string) (time.Time, error) {
	if len(s) > len(timeLayout) {
		s = s[:len(timeLayout)]
	}
	return time.Parse(timeLayout, s)
}

// Marshal serializes the document with an XML declaration
func (tv *TV) Marshal() ([]byte, error) {
	body, err := xml.Marshal(tv)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}
