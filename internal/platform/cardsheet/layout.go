package cardsheet

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/phrazzld/hitster/internal/domain"
	"github.com/phrazzld/hitster/internal/render"
	"github.com/skip2/go-qrcode"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// A4 in points.
const (
	pageWidth  = 595.28
	pageHeight = 841.89
)

// Grid geometry. Cards are laid out three across and four down.
const (
	columns      = 3
	rows         = 4
	cardsPerPage = columns * rows

	margin     = 36.0
	cardWidth  = (pageWidth - 2*margin) / columns
	cardHeight = (pageHeight - 2*margin) / rows
	padding    = 10.0

	qrSize   = 110.0
	qrPixels = 256
)

const fontFamily = "Helvetica"

// cardOrigin returns the top-left corner of the card in slot. On the back
// sheet the column is mirrored so the card sits behind its front.
func cardOrigin(slot int, back bool) (x, y float64) {
	col, row := slot%columns, slot/columns
	if back {
		col = columns - 1 - col
	}
	return margin + float64(col)*cardWidth, margin + float64(row)*cardHeight
}

// pages splits tracks into page-sized chunks.
func pages(tracks []domain.Track) [][]domain.Track {
	var out [][]domain.Track
	for start := 0; start < len(tracks); start += cardsPerPage {
		end := min(start+cardsPerPage, len(tracks))
		out = append(out, tracks[start:end])
	}
	return out
}

// drawFronts puts a QR code of each track's play link on its card.
func drawFronts(pdf *fpdf.Fpdf, title string, tracks []domain.Track) error {
	chunks := pages(tracks)
	for pi, chunk := range chunks {
		pdf.AddPage()
		drawFrame(pdf, len(chunk), false)
		for slot, t := range chunk {
			index := pi*cardsPerPage + slot
			png, err := qrcode.Encode(t.ExternalURL, qrcode.Medium, qrPixels)
			if err != nil {
				return render.NewRenderError(index, fmt.Errorf("encode qr code: %w", err))
			}

			x, y := cardOrigin(slot, false)
			cx := x + cardWidth/2

			gray(pdf, 100)
			centred(pdf, "", 8, cx, y+padding+6, strconv.Itoa(index+1))
			gray(pdf, 0)

			name := "qr-" + strconv.Itoa(index)
			opts := fpdf.ImageOptions{ImageType: "PNG"}
			pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
			qrTop := y + padding + 12
			pdf.ImageOptions(name, cx-qrSize/2, qrTop, qrSize, qrSize, false, opts, 0, "")

			lineY := qrTop + qrSize + 14
			centred(pdf, "B", 10, cx, lineY, "Scan to play")
			gray(pdf, 100)
			for _, line := range wrap(t.ExternalURL, charsPerLine(6), 2) {
				lineY += 9
				centred(pdf, "", 6, cx, lineY, line)
			}
			gray(pdf, 0)
		}
		drawFooter(pdf, title, pi, len(chunks))
	}
	return pdf.Error()
}

func drawBacks(pdf *fpdf.Fpdf, title string, tracks []domain.Track) error {
	chunks := pages(tracks)
	for pi, chunk := range chunks {
		pdf.AddPage()
		drawFrame(pdf, len(chunk), true)
		for slot, t := range chunk {
			x, y := cardOrigin(slot, true)
			cx := x + cardWidth/2

			lineY := y + padding + 12
			for _, line := range wrap(t.Artist, charsPerLine(11), 3) {
				centred(pdf, "B", 11, cx, lineY, line)
				lineY += 13
			}

			centred(pdf, "B", 36, cx, y+cardHeight/2+12, yearLabel(t.Year))

			titleLines := wrap(t.Title, charsPerLine(10), 3)
			lineY = y + cardHeight - padding - 4 - float64(len(titleLines)-1)*12
			for _, line := range titleLines {
				centred(pdf, "", 10, cx, lineY, line)
				lineY += 12
			}
		}
		drawFooter(pdf, title, pi, len(chunks))
	}
	return pdf.Error()
}

// drawFrame outlines the used card slots as cut lines.
func drawFrame(pdf *fpdf.Fpdf, cards int, back bool) {
	pdf.SetLineWidth(0.5)
	pdf.SetDrawColor(190, 190, 190)
	for slot := range cards {
		x, y := cardOrigin(slot, back)
		pdf.Rect(x, y, cardWidth, cardHeight, "D")
	}
	pdf.SetDrawColor(0, 0, 0)
}

func drawFooter(pdf *fpdf.Fpdf, title string, index, total int) {
	gray(pdf, 100)
	pdf.SetFont(fontFamily, "", 8)
	pdf.Text(margin, pageHeight-margin/2, winAnsi(fmt.Sprintf("%s - page %d of %d", title, index+1, total)))
	gray(pdf, 0)
}

func gray(pdf *fpdf.Fpdf, level int) {
	pdf.SetTextColor(level, level, level)
}

// centred draws s with its baseline at y, horizontally centred on cx.
func centred(pdf *fpdf.Fpdf, style string, size, cx, y float64, s string) {
	pdf.SetFont(fontFamily, style, size)
	s = winAnsi(s)
	pdf.Text(cx-pdf.GetStringWidth(s)/2, y, s)
}

// winAnsi converts s to the code page of the core fonts. Characters outside
// it are printed as '?'.
func winAnsi(s string) string {
	// Encoders carry state, so each call gets its own.
	encoded, err := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder()).String(s)
	if err != nil {
		encoded = s
	}
	// The result is single-byte, so it is patched bytewise.
	b := []byte(encoded)
	for i, c := range b {
		switch {
		case c == 0x1a:
			b[i] = '?'
		case c < 0x20:
			b[i] = ' '
		}
	}
	return string(b)
}

func yearLabel(year int) string {
	if year <= 0 {
		return "?"
	}
	return strconv.Itoa(year)
}

func charsPerLine(size float64) int {
	return max(1, int((cardWidth-2*padding)/(size*0.55)))
}

// wrap breaks s into at most maxLines lines of at most width runes. Words
// longer than a line are split. Overflow is marked with a trailing "...".
func wrap(s string, width, maxLines int) []string {
	var lines []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			lines = append(lines, string(current))
			current = current[:0]
		}
	}

	for _, word := range strings.Fields(s) {
		w := []rune(word)
		for len(w) > 0 {
			space := 0
			if len(current) > 0 {
				space = 1
			}
			room := width - len(current) - space
			switch {
			case len(w) <= room:
				if space == 1 {
					current = append(current, ' ')
				}
				current = append(current, w...)
				w = nil
			case len(current) > 0:
				flush()
			default:
				current = append(current, w[:width]...)
				w = w[width:]
				flush()
			}
		}
	}
	flush()

	if len(lines) > maxLines {
		lines = lines[:maxLines]
		last := []rune(lines[maxLines-1])
		if len(last) > width-3 {
			last = last[:max(0, width-3)]
		}
		lines[maxLines-1] = string(last) + "..."
	}
	return lines
}
