// Package svgopt maps preset rules onto the tdewolff SVG minifier.
//
// Markup-removal rules run as regular-expression passes over the document.
// Geometry and style rules are delegated to the minifier, which is run when
// any of them is enabled.
package svgopt

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/svg"

	"github.com/CrazyForks/tiny-svg/preset"
)

const (
	mediaType = "image/svg+xml"
	maxPasses = 10
)

// ErrNotSVG is returned for input without an <svg> element.
var ErrNotSVG = errors.New("input is not an svg document")

var svgRoot = regexp.MustCompile(`(?i)<svg[\s>/]`)

// Optimizer runs a preset configuration over SVG markup. It satisfies
// compress.Optimizer.
type Optimizer struct{}

func New() *Optimizer { return &Optimizer{} }

// Optimize applies the enabled rules of cfg to doc.
func (o *Optimizer) Optimize(doc string, cfg preset.Config) (string, error) {
	if !svgRoot.MatchString(doc) {
		return "", ErrNotSVG
	}
	if cfg.EnabledRules() == 0 {
		return doc, nil
	}
	cfg = cfg.WithDefaults()

	passes := 1
	if cfg.Multipass {
		passes = maxPasses
	}
	out := doc
	for i := 0; i < passes; i++ {
		next, err := pass(out, cfg)
		if err != nil {
			return "", err
		}
		if next == out {
			break
		}
		out = next
	}
	return out, nil
}

func pass(doc string, cfg preset.Config) (string, error) {
	for _, r := range stripPasses {
		if cfg.Enabled(r.rule) {
			doc = r.apply(doc)
		}
	}
	if !minifierEnabled(cfg) {
		return doc, nil
	}
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.Add(mediaType, &svg.Minifier{
		Precision:    cfg.FloatPrecision,
		KeepComments: !cfg.Enabled("removeComments"),
	})
	out, err := m.String(mediaType, doc)
	if err != nil {
		return "", fmt.Errorf("minify: %w", err)
	}
	return out, nil
}

// minifierRules are the rules implemented by the tdewolff minifier.
var minifierRules = map[string]bool{
	"mergeStyles":                    true,
	"inlineStyles":                   true,
	"minifyStyles":                   true,
	"cleanupIds":                     true,
	"removeUselessDefs":              true,
	"cleanupNumericValues":           true,
	"convertColors":                  true,
	"removeUnknownsAndDefaults":      true,
	"removeNonInheritableGroupAttrs": true,
	"removeUselessStrokeAndFill":     true,
	"cleanupEnableBackground":        true,
	"removeHiddenElems":              true,
	"removeEmptyText":                true,
	"convertShapeToPath":             true,
	"convertEllipseToCircle":         true,
	"moveElemsAttrsToGroup":          true,
	"moveGroupAttrsToElems":          true,
	"collapseGroups":                 true,
	"convertPathData":                true,
	"convertTransform":               true,
	"removeEmptyAttrs":               true,
	"removeEmptyContainers":          true,
	"mergePaths":                     true,
	"removeUnusedNS":                 true,
	"sortDefsChildren":               true,
}

func minifierEnabled(cfg preset.Config) bool {
	for _, r := range cfg.Rules {
		if r.Enabled && minifierRules[r.Name] {
			return true
		}
	}
	return false
}

// IsMinifierRule reports whether rule is delegated to the minifier.
func IsMinifierRule(rule string) bool { return minifierRules[rule] }

// IsStripRule reports whether rule runs as a markup-removal pass.
func IsStripRule(rule string) bool {
	for _, r := range stripPasses {
		if r.rule == rule {
			return true
		}
	}
	return false
}

type stripPass struct {
	rule  string
	apply func(string) string
}

func element(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)<` + name + `(?:\s[^>]*?)?(?:/>|>.*?</` + name + `\s*>)`)
}

func replacer(re *regexp.Regexp) func(string) string {
	return func(s string) string { return re.ReplaceAllString(s, "") }
}

var (
	xmlProcInst = regexp.MustCompile(`(?s)<\?xml.*?\?>\s*`)
	doctype     = regexp.MustCompile(`(?is)<!DOCTYPE[^\[>]*(?:\[.*?\])?\s*>\s*`)
	comment     = regexp.MustCompile(`(?s)<!--.*?-->`)
	editorsNS   = regexp.MustCompile(`\s(?:xmlns:)?(?:inkscape|sodipodi|sketch|serif|krita)(?::[\w.-]+)?="[^"]*"`)
	editorsElem = regexp.MustCompile(`(?s)<(inkscape|sodipodi|sketch):[\w.-]+(?:\s[^>]*?)?(?:/>|>.*?</(?:inkscape|sodipodi|sketch):[\w.-]+>)`)
	rootTag     = regexp.MustCompile(`(?is)<svg(?:\s[^>]*)?>`)
	dimension   = regexp.MustCompile(`\s(?:width|height)="[^"]*"`)
	attrValue   = regexp.MustCompile(`(\s[\w:.-]+=")([^"]*)(")`)
	spaceRun    = regexp.MustCompile(`\s+`)
)

var stripPasses = []stripPass{
	{"removeXMLProcInst", replacer(xmlProcInst)},
	{"removeDoctype", replacer(doctype)},
	{"removeComments", removeComments},
	{"removeMetadata", replacer(element("metadata"))},
	{"removeTitle", replacer(element("title"))},
	{"removeDesc", replacer(element("desc"))},
	{"removeScriptElement", replacer(element("script"))},
	{"removeStyleElement", replacer(element("style"))},
	{"removeEditorsNSData", removeEditorsNSData},
	{"removeDimensions", removeDimensions},
	{"cleanupAttrs", cleanupAttrs},
}

// removeComments keeps comments starting with "!", which mark legal notices.
func removeComments(s string) string {
	return comment.ReplaceAllStringFunc(s, func(c string) string {
		if strings.HasPrefix(c, "<!--!") {
			return c
		}
		return ""
	})
}

func removeEditorsNSData(s string) string {
	return editorsNS.ReplaceAllString(editorsElem.ReplaceAllString(s, ""), "")
}

// removeDimensions drops width and height from the root element when a
// viewBox keeps the aspect ratio.
func removeDimensions(s string) string {
	loc := rootTag.FindStringIndex(s)
	if loc == nil {
		return s
	}
	tag := s[loc[0]:loc[1]]
	if !strings.Contains(tag, "viewBox=") {
		return s
	}
	return s[:loc[0]] + dimension.ReplaceAllString(tag, "") + s[loc[1]:]
}

// cleanupAttrs collapses whitespace runs inside attribute values.
func cleanupAttrs(s string) string {
	return attrValue.ReplaceAllStringFunc(s, func(a string) string {
		m := attrValue.FindStringSubmatch(a)
		return m[1] + strings.TrimSpace(spaceRun.ReplaceAllString(m[2], " ")) + m[3]
	})
}
