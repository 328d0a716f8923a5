package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"document-search/internal/models"
)

func TestIsSupported(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{".pdf", true},
		{".PDF", true},
		{".docx", true},
		{".doc", false},
		{".txt", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsSupported(tt.ext); got != tt.want {
			t.Errorf("IsSupported(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
}

func TestExtractTextUnsupportedType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ExtractText(path)
	if !errors.Is(err, models.ErrUnsupportedType) {
		t.Errorf("Expected ErrUnsupportedType, got %v", err)
	}
}

func TestExtractTextBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"broken.pdf", "broken.docx"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("not a real document"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := ExtractText(path); err == nil {
			t.Errorf("Expected error for %s", name)
		}
	}
}

func TestDocxText(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>The cat sat.</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">on the </w:t></w:r><w:r><w:t>mat</w:t></w:r></w:p>
<w:p><w:r><w:t>and</w:t><w:tab/><w:t>slept.</w:t><w:br/><w:t>The end</w:t></w:r></w:p>
</w:body>
</w:document>`

	got, err := docxText(body)
	if err != nil {
		t.Fatalf("docxText: %v", err)
	}
	want := "The cat sat.\non the mat\nand\tslept.\nThe end\n"
	if got != want {
		t.Errorf("docxText() = %q, want %q", got, want)
	}
}

func TestDocxTextMalformed(t *testing.T) {
	if _, err := docxText("<w:p><w:t>unterminated"); err == nil {
		t.Error("Expected error for malformed xml")
	}
}

// writePDF assembles a PDF whose object n+1 is objects[n], with a correct xref table.
func writePDF(t *testing.T, path string, objects []string) {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func pdfStream(content string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)
}

const pdfFont = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"

func pdfPage(contents int) string {
	return fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 7 0 R >> >> /Contents %d 0 R >>", contents)
}

func TestExtractTextPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	writePDF(t, path, []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R 5 0 R] /Count 2 >>",
		pdfPage(4),
		pdfStream("BT /F1 12 Tf 72 720 Td (Hello PDF) Tj ET"),
		pdfPage(6),
		pdfStream("BT /F1 12 Tf 72 720 Td (Second page) Tj ET"),
		pdfFont,
	})

	got, err := ExtractText(path)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if want := "Hello PDF\nSecond page"; got != want {
		t.Errorf("ExtractText() = %q, want %q", got, want)
	}
}

func TestExtractTextPDFBrokenPageTree(t *testing.T) {
	tests := []struct {
		name  string
		pages string
	}{
		{"missing kid", "<< /Type /Pages /Kids [5 0 R] /Count 2 >>"},
		{"count too high", "<< /Type /Pages /Kids [3 0 R] /Count 2 >>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "evil.pdf")
			writePDF(t, path, []string{
				"<< /Type /Catalog /Pages 2 0 R >>",
				tt.pages,
				pdfPage(4),
				pdfStream("BT /F1 12 Tf (x) Tj ET"),
			})

			done := make(chan error, 1)
			go func() {
				_, err := ExtractText(path)
				done <- err
			}()
			select {
			case err := <-done:
				if err == nil || !strings.Contains(err.Error(), "malformed pdf") {
					t.Errorf("Expected malformed pdf error, got %v", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("ExtractText did not return")
			}
		})
	}
}

func writeDOCX(t *testing.T, path, body string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"word/document.xml": body,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExtractTextDOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.DOCX")
	writeDOCX(t, path, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t xml:space="preserve">  Hello</w:t><w:tab/><w:t xml:space="preserve"> world</w:t></w:r></w:p>
<w:p><w:r><w:t>Line two</w:t><w:br/><w:t>&amp; more</w:t></w:r></w:p>
<w:p></w:p>
</w:body>
</w:document>`)

	got, err := ExtractText(path)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if want := "Hello\t world\nLine two\n& more"; got != want {
		t.Errorf("ExtractText() = %q, want %q", got, want)
	}
}
