package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"

	"document-search/internal/models"
)

// Extractor turns a stored document into plain text.
type Extractor func(filePath string) (string, error)

// IsSupported reports whether ext (with leading dot, any case) is on the upload allow-list.
func IsSupported(ext string) bool {
	return slices.Contains(models.SupportedExtensions, strings.ToLower(ext))
}

// ExtractText returns the whitespace-trimmed text of a PDF or DOCX file.
func ExtractText(filePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	var (
		text string
		err  error
	)
	switch ext {
	case models.ExtPDF:
		text, err = parsePDF(filePath)
	case models.ExtDOCX:
		text, err = parseDOCX(filePath)
	default:
		return "", fmt.Errorf("%w: %q", models.ErrUnsupportedType, ext)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// pdf page trees nest far less deeply than this in practice
const maxPageTreeDepth = 32

func parsePDF(filePath string) (_ string, err error) {
	// ledongthuc/pdf panics on some malformed object streams
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// Get file size for reader initialization
	stat, err := f.Stat()
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	// Reader.Page never returns when a Pages node's kids don't add up to its Count
	if err := checkPageTree(reader); err != nil {
		return "", fmt.Errorf("malformed pdf: %w", err)
	}

	var text strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}
	log.Debug().Str("file", filePath).Int("pages", numPages).Msg("Parsed pdf")
	return text.String(), nil
}

func checkPageTree(reader *pdf.Reader) error {
	root := reader.Trailer().Key("Root").Key("Pages")
	if root.Key("Type").Name() != "Pages" {
		return errors.New("missing page tree")
	}
	_, err := countPages(root, 0)
	return err
}

// countPages counts the leaves under node and checks every Count on the way.
func countPages(node pdf.Value, depth int) (int, error) {
	if depth > maxPageTreeDepth {
		return 0, errors.New("page tree too deep")
	}
	kids := node.Key("Kids")
	total := 0
	for i := 0; i < kids.Len(); i++ {
		kid := kids.Index(i)
		switch kid.Key("Type").Name() {
		case "Page":
			total++
		case "Pages":
			n, err := countPages(kid, depth+1)
			if err != nil {
				return 0, err
			}
			total += n
		default:
			return 0, fmt.Errorf("page tree kid %d is not a page", i)
		}
	}
	if want := int(node.Key("Count").Int64()); total != want {
		return 0, fmt.Errorf("page tree declares %d pages, found %d", want, total)
	}
	return total, nil
}

func parseDOCX(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer r.Close()

	// GetContent returns the raw word/document.xml body
	text, err := docxText(r.Editable().GetContent())
	if err != nil {
		return "", fmt.Errorf("failed to read docx body: %w", err)
	}
	log.Debug().Str("file", filePath).Int("chars", len(text)).Msg("Parsed docx")
	return text, nil
}

// docxText collects the w:t runs of a WordprocessingML body, one line per paragraph.
func docxText(body string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(body))
	var (
		text   strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				text.WriteString("\t")
			case "br", "cr":
				text.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		}
	}
	return text.String(), nil
}
