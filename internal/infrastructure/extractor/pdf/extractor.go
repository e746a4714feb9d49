package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/querylab/docquery/internal/core/domain"
	"github.com/querylab/docquery/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
	logger  *slog.Logger
}

func NewExtractor(storage ports.ObjectStorage, logger *slog.Logger) *Extractor {
	return &Extractor{storage: storage, logger: logger}
}

// Extract pulls plain text from every page. Pages that fail text
// extraction are skipped; a document where every page fails is an
// error.
func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (domain.ExtractedText, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("read source document: %w", err)
	}

	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("parse pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("pdf page extraction failed",
				"document_id", doc.ID, "page", i, "error", err)
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return domain.ExtractedText{}, fmt.Errorf("no extractable text in pdf: %s", doc.Filename)
	}

	out := domain.ExtractedText{Text: text}
	if info := r.Trailer().Key("Info"); !info.IsNull() {
		out.Title = info.Key("Title").Text()
		out.Author = info.Key("Author").Text()
	}
	return out, nil
}
