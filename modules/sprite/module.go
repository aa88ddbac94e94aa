// Package sprite assembles SVG icons into one "stack" sprite: every icon
// becomes a nested <svg> with an id, and only the one targeted by the URL
// fragment is displayed, so "sprite.svg#logo" renders the logo icon.
package sprite

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/transform"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/svg"
)

const (
	svgNS   = "http://www.w3.org/2000/svg"
	xlinkNS = "http://www.w3.org/1999/xlink"

	stackStyle = ":root>svg{display:none}:root>svg:target{display:block}"
	svgMIME    = "image/svg+xml"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Options defines the arguments of a sprite transform block.
type Options struct {
	Mode   string `hcl:"mode,optional"`
	Sprite string `hcl:"sprite,optional"`
	Minify bool   `hcl:"minify,optional"`
}

// Transform merges every SVG input into one sprite and passes other files
// through.
type Transform struct {
	opts     Options
	minifier *minify.M
}

// New validates opts and builds the transform.
func New(opts Options) (*Transform, error) {
	if opts.Mode != "stack" {
		return nil, fmt.Errorf("unsupported mode '%s' (only stack is supported)", opts.Mode)
	}
	if opts.Sprite == "" {
		return nil, fmt.Errorf("sprite must not be empty")
	}
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc(svgMIME, svg.Minify)
	return &Transform{opts: opts, minifier: m}, nil
}

var unsafeID = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// iconID derives the fragment id of an icon from its file name.
func iconID(p string) string {
	base := strings.TrimSuffix(path.Base(p), path.Ext(p))
	return strings.Trim(unsafeID.ReplaceAllString(base, "-"), "-")
}

// Apply implements transform.Transform. Without SVG inputs no sprite is made.
func (t *Transform) Apply(ctx context.Context, files []*transform.File) ([]*transform.File, error) {
	logger := ctxlog.FromContext(ctx)

	doc := etree.NewDocument()
	root := doc.CreateElement("svg")
	root.CreateAttr("xmlns", svgNS)
	root.CreateAttr("xmlns:xlink", xlinkNS)
	root.CreateElement("style").SetText(stackStyle)

	var out []*transform.File
	ids := make(map[string]string)
	for _, f := range files {
		if f.Ext() != ".svg" {
			out = append(out, f)
			continue
		}
		id := iconID(f.Path)
		if id == "" {
			return nil, fmt.Errorf("%s: cannot derive an icon id from the file name", f.Path)
		}
		if prev, dup := ids[id]; dup {
			return nil, fmt.Errorf("%s: icon id '%s' already used by %s", f.Path, id, prev)
		}
		ids[id] = f.Path

		icon, err := stackIcon(f.Contents, id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Path, err)
		}
		root.AddChild(icon)
	}
	if len(ids) == 0 {
		return out, nil
	}

	doc.Indent(2)
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, err
	}
	if t.opts.Minify {
		if data, err = t.minifier.Bytes(svgMIME, data); err != nil {
			return nil, fmt.Errorf("failed to minify sprite: %w", err)
		}
	}
	logger.Debug("Sprite assembled.", "sprite", t.opts.Sprite, "icons", len(ids), "bytes", len(data))
	return append(out, &transform.File{Path: t.opts.Sprite, Contents: data}), nil
}

// droppedAttrs are root attributes that would conflict with the sprite.
var droppedAttrs = map[string]bool{
	"xmlns": true, "xmlns:xlink": true, "id": true, "width": true,
	"height": true, "x": true, "y": true, "version": true, "viewBox": true,
}

// stackIcon parses an SVG document and returns its root rewritten as a
// sprite member.
func stackIcon(data []byte, id string) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("invalid SVG: %w", err)
	}
	src := doc.Root()
	if src == nil || src.Tag != "svg" {
		return nil, fmt.Errorf("invalid SVG: root element is not <svg>")
	}

	viewBox := src.SelectAttrValue("viewBox", "")
	if viewBox == "" {
		w, h := dimension(src.SelectAttrValue("width", "")), dimension(src.SelectAttrValue("height", ""))
		if w == "" || h == "" {
			return nil, fmt.Errorf("invalid SVG: needs a viewBox or width and height")
		}
		viewBox = "0 0 " + w + " " + h
	}

	icon := src.Copy()
	icon.Space = ""
	for _, a := range src.Attr {
		if key := a.FullKey(); droppedAttrs[key] || a.Space == "xmlns" {
			icon.RemoveAttr(key)
		}
	}
	icon.CreateAttr("id", id)
	icon.CreateAttr("viewBox", viewBox)
	return icon, nil
}

// dimension strips a "px" unit; other units cannot map onto a viewBox.
func dimension(v string) string {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	if v == "" || strings.IndexFunc(v, func(r rune) bool { return (r < '0' || r > '9') && r != '.' }) >= 0 {
		return ""
	}
	return v
}

// Register registers the transform with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTransform("sprite", &registry.RegisteredTransform{
		NewOptions: func() any { return &Options{Mode: "stack", Sprite: "sprite.svg", Minify: true} },
		New: func(_ transform.Env, opts any) (transform.Transform, error) {
			return New(*opts.(*Options))
		},
	})
}
