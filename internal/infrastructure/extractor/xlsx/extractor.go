package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

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

// Extract flattens every sheet into lines of tab-joined cells, with a
// sheet-name header so chunking keeps related rows together.
func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (domain.ExtractedText, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	wb, err := excelize.OpenReader(reader)
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("parse workbook: %w", err)
	}
	defer func() {
		if err := wb.Close(); err != nil {
			e.logger.Warn("workbook close failed", "document_id", doc.ID, "error", err)
		}
	}()

	var sb strings.Builder
	for _, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			e.logger.Warn("sheet read failed",
				"document_id", doc.ID, "sheet", sheet, "error", err)
			continue
		}
		if len(rows) == 0 {
			continue
		}
		sb.WriteString(sheet)
		sb.WriteString(".\n")
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return domain.ExtractedText{}, fmt.Errorf("workbook has no cell content: %s", doc.Filename)
	}

	props, err := wb.GetDocProps()
	out := domain.ExtractedText{Text: text}
	if err == nil && props != nil {
		out.Title = props.Title
		out.Author = props.Creator
	}
	return out, nil
}
