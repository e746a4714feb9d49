// Package extractor dispatches documents to a format-specific text
// extractor by file extension.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/querylab/docquery/internal/core/domain"
	"github.com/querylab/docquery/internal/core/ports"
)

type Dispatcher struct {
	byExtension map[string]ports.TextExtractor
}

// NewDispatcher maps extensions to extractors. Keys are lowercase with
// the leading dot, e.g. ".pdf".
func NewDispatcher(byExtension map[string]ports.TextExtractor) *Dispatcher {
	return &Dispatcher{byExtension: byExtension}
}

func (d *Dispatcher) Extract(ctx context.Context, doc *domain.Document) (domain.ExtractedText, error) {
	ext := strings.ToLower(filepath.Ext(doc.Filename))
	ex, ok := d.byExtension[ext]
	if !ok {
		return domain.ExtractedText{}, fmt.Errorf("no extractor for %q", ext)
	}
	return ex.Extract(ctx, doc)
}
