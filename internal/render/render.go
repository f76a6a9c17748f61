// Package render draws verse glyphs with the per-page mushaf fonts.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	MaxPage = 604

	fontSize   = 48
	labelSize  = 22
	maxWidth   = 800
	minWidth   = 240
	runeWidth  = 30
	padding    = 40
	lineFactor = 1.5
)

var ErrInvalidPage = errors.New("page out of range")

// Renderer turns glyph strings into PNG images. Parsed fonts are cached per
// page for the life of the process.
type Renderer struct {
	fontDir string
	fg      color.Color

	mu    sync.Mutex
	fonts map[int]*opentype.Font
	label *opentype.Font
}

// NewRenderer reads fonts from fontDir/v2/ttf/p{page}.ttf.
func NewRenderer(fontDir string) *Renderer {
	return &Renderer{
		fontDir: fontDir,
		fg:      color.White,
		fonts:   make(map[int]*opentype.Font),
	}
}

// Render draws one verse.
func (r *Renderer) Render(glyph string, page int) ([]byte, error) {
	face, err := r.face(page, fontSize)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	width := canvasWidth(glyph)
	lines := wrap(face, strings.Fields(glyph), width-2*padding)
	lineHeight := int(fontSize * lineFactor)
	height := max(glyphHeight(glyph), 2*padding+len(lines)*lineHeight)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	drawLines(img, face, r.fg, lines, padding, lineHeight)
	return encode(img)
}

// Block is one verse of a stacked image.
type Block struct {
	Label string
	Glyph string
	Page  int
}

// RenderStacked draws several labelled verses one below the other.
func (r *Renderer) RenderStacked(blocks ...Block) ([]byte, error) {
	if len(blocks) == 0 {
		return nil, errors.New("render: nothing to draw")
	}
	labelFace, err := r.labelFace()
	if err != nil {
		return nil, err
	}
	defer labelFace.Close()

	type laidOut struct {
		face  font.Face
		label string
		lines []string
	}
	width := minWidth
	for _, b := range blocks {
		width = max(width, canvasWidth(b.Glyph))
	}
	lineHeight := int(fontSize * lineFactor)
	labelHeight := int(labelSize * lineFactor)

	var parts []laidOut
	defer func() {
		for _, p := range parts {
			p.face.Close()
		}
	}()
	height := padding
	for _, b := range blocks {
		face, err := r.face(b.Page, fontSize)
		if err != nil {
			return nil, err
		}
		lines := wrap(face, strings.Fields(b.Glyph), width-2*padding)
		parts = append(parts, laidOut{face: face, label: b.Label, lines: lines})
		height += labelHeight + len(lines)*lineHeight + padding
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	y := padding
	for _, p := range parts {
		drawLines(img, labelFace, r.fg, []string{p.label}, y, labelHeight)
		y += labelHeight
		drawLines(img, p.face, r.fg, p.lines, y, lineHeight)
		y += len(p.lines)*lineHeight + padding
	}
	return encode(img)
}

func (r *Renderer) face(page, size int) (font.Face, error) {
	if page < 1 || page > MaxPage {
		return nil, fmt.Errorf("render page %d: %w", page, ErrInvalidPage)
	}

	r.mu.Lock()
	f, ok := r.fonts[page]
	r.mu.Unlock()
	if !ok {
		path := filepath.Join(r.fontDir, "v2", "ttf", "p"+strconv.Itoa(page)+".ttf")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read page font: %w", err)
		}
		if f, err = opentype.Parse(data); err != nil {
			return nil, fmt.Errorf("parse page font %s: %w", path, err)
		}
		r.mu.Lock()
		r.fonts[page] = f
		r.mu.Unlock()
	}
	return newFace(f, size)
}

func (r *Renderer) labelFace() (font.Face, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.label == nil {
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			return nil, fmt.Errorf("parse label font: %w", err)
		}
		r.label = f
	}
	return newFace(r.label, labelSize)
}

func newFace(f *opentype.Font, size int) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("new font face: %w", err)
	}
	return face, nil
}

func canvasWidth(glyph string) int {
	return max(minWidth, min(maxWidth, utf8.RuneCountInString(glyph)*runeWidth))
}

// glyphHeight grows the canvas 50px for every 10 glyph runes.
func glyphHeight(glyph string) int {
	return utf8.RuneCountInString(glyph)/10*50 + 150
}

// wrap greedily packs words into lines no wider than limit pixels.
func wrap(face font.Face, words []string, limit int) []string {
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := words[0]
	for _, w := range words[1:] {
		candidate := current + " " + w
		if font.MeasureString(face, candidate).Ceil() < limit {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = w
	}
	return append(lines, current)
}

// drawLines draws right-aligned lines starting at top.
func drawLines(img *image.RGBA, face font.Face, fg color.Color, lines []string, top, lineHeight int) {
	d := &font.Drawer{Dst: img, Src: image.NewUniform(fg), Face: face}
	ascent := face.Metrics().Ascent.Ceil()
	right := img.Bounds().Dx() - padding
	for i, line := range lines {
		w := d.MeasureString(line).Ceil()
		d.Dot = fixed.P(max(padding, right-w), top+i*lineHeight+ascent)
		d.DrawString(line)
	}
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
