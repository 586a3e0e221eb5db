package letter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"
)

// DefaultPDFName is the file name used when none is given.
const DefaultPDFName = "kuendigung.pdf"

// MailSubject is the subject of letter emails.
const MailSubject = "Kündigungsschreiben"

// RenderPDF writes text as a single A4 document: Helvetica 12pt, wrapped at
// 180mm, starting 15mm from the left and 20mm from the top.
func RenderPDF(w io.Writer, text string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)

	// Core fonts are cp1252; translate so umlauts survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetXY(15, 20)
	pdf.MultiCell(180, 6, tr(text), "", "L", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("rendering pdf: %w", err)
	}
	return nil
}

// WritePDF renders text to a PDF file at path.
func WritePDF(path, text string) error {
	if path == "" {
		path = DefaultPDFName
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := RenderPDF(f, text); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// MailtoURL returns a mailto link that opens a draft containing text.
func MailtoURL(text string) string {
	return "mailto:?subject=" + encodeComponent(MailSubject) + "&body=" + encodeComponent(text)
}

// encodeComponent percent-encodes s the way browsers' encodeURIComponent
// does: everything but letters, digits and -_.!~*'() is escaped.
func encodeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' ||
			strings.IndexByte("-_.!~*'()", c) >= 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}
