package email

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"

	"github.com/querylab/docquery/internal/core/domain"
	"github.com/querylab/docquery/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

// Extract parses an RFC 5322 message. The subject becomes the title,
// the sender the author, and the text/plain body (or the first
// text/plain part of a multipart message) the content.
func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (domain.ExtractedText, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	msg, err := mail.ReadMessage(reader)
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("parse message: %w", err)
	}

	body, err := readBody(msg)
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("read message body: %w", err)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.ExtractedText{}, fmt.Errorf("message has no text body: %s", doc.Filename)
	}

	subject := msg.Header.Get("Subject")
	if decoded, err := new(mime.WordDecoder).DecodeHeader(subject); err == nil {
		subject = decoded
	}

	author := msg.Header.Get("From")
	if addr, err := mail.ParseAddress(author); err == nil {
		if addr.Name != "" {
			author = addr.Name
		} else {
			author = addr.Address
		}
	}

	// Prefix the subject so chunking and classification see it.
	text := body
	if subject != "" {
		text = subject + ".\n" + body
	}
	return domain.ExtractedText{Text: text, Title: subject, Author: author}, nil
}

func readBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		b, err := io.ReadAll(msg.Body)
		return string(b), err
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		b, err := io.ReadAll(msg.Body)
		return string(b), err
	}

	mr := multipart.NewReader(msg.Body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		partType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil || partType != "text/plain" {
			continue
		}
		b, err := io.ReadAll(part)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return "", nil
}
