package event

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// markupRoot wraps a markup fragment so it parses as a single XML element.
const markupRoot = "markup"

// markupTags are the inline formatting elements allowed in rich-text labels.
var markupTags = map[string]bool{
	"b":     true,
	"big":   true,
	"i":     true,
	"s":     true,
	"sub":   true,
	"sup":   true,
	"small": true,
	"tt":    true,
	"u":     true,
	"span":  true,
}

// spanAttrs are the attributes allowed on <span>.
var spanAttrs = []string{
	"font", "font_desc", "font_family", "face", "size", "style", "weight",
	"variant", "stretch", "underline", "strikethrough", "rise",
	"letter_spacing", "lang", "alpha", "fgalpha", "bgalpha",
}

// spanColorAttrs are the color-valued attributes allowed on <span>.
var spanColorAttrs = []string{
	"foreground", "fgcolor", "color", "background", "bgcolor",
	"underline_color", "strikethrough_color",
}

// ValidateMarkup checks that s is well-formed rich-text markup: text with
// balanced inline formatting tags and XML character entities.
func ValidateMarkup(s string) error {
	dec := xml.NewDecoder(strings.NewReader("<" + markupRoot + ">" + s + "</" + markupRoot + ">"))
	dec.Strict = true

	depth := 0
	closed := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("invalid markup: %w", err)
		}
		if closed {
			return fmt.Errorf("invalid markup: content after end of text")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth > 0 {
				if err := checkMarkupElement(t); err != nil {
					return err
				}
			}
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 {
				closed = true
			}
		case xml.ProcInst, xml.Directive:
			return fmt.Errorf("invalid markup: unexpected %T", t)
		}
	}
	return nil
}

func checkMarkupElement(el xml.StartElement) error {
	name := el.Name.Local
	if el.Name.Space != "" || !markupTags[name] {
		return fmt.Errorf("invalid markup: unknown tag <%s>", name)
	}
	if name != "span" {
		if len(el.Attr) > 0 {
			return fmt.Errorf("invalid markup: tag <%s> takes no attributes", name)
		}
		return nil
	}
	for _, attr := range el.Attr {
		name := attr.Name.Local
		switch {
		case attr.Name.Space != "":
			return fmt.Errorf("invalid markup: unknown span attribute %q", attr.Name.Space+":"+name)
		case slices.Contains(spanColorAttrs, name):
			if _, err := ParseColor(attr.Value); err != nil {
				return fmt.Errorf("invalid markup: span %s: %w", name, err)
			}
		case !slices.Contains(spanAttrs, name):
			return fmt.Errorf("invalid markup: unknown span attribute %q", name)
		}
	}
	return nil
}
