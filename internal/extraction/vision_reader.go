package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const visionPrompt = `Extract the invoice fields from the attached document pages.

Return JSON with exactly this structure:
{
  "invoice_number": "string",
  "vendor_name": "string",
  "vendor_address": "string or null",
  "vendor_email": "string or null",
  "vendor_phone": "string or null",
  "invoice_date": "YYYY-MM-DD",
  "due_date": "YYYY-MM-DD or null",
  "total_amount": number,
  "line_items": [
    {"description": "string", "quantity": number, "unit_price": number, "total_price": number}
  ]
}

Use null for fields you cannot read. If the document is not an invoice or is
unreadable, return {"no_data": true}.`

// maxVisionPages caps how many pages are sent to the model per document
const maxVisionPages = 2

// VisionReader implements DocumentReader on a vision-capable OpenAI model.
// PDF pages are rendered to JPEG through mupdf; images are sent as-is after
// re-encoding.
type VisionReader struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewVisionReader creates a new vision-based document reader
func NewVisionReader(apiKey, model string, logger *zap.Logger) *VisionReader {
	return &VisionReader{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// Extract renders the document to images and asks the model for a candidate
// invoice payload. Returns nil when the model reports no data.
func (r *VisionReader) Extract(ctx context.Context, filePath string) (json.RawMessage, error) {
	r.logger.Info("Reading document for extraction", zap.String("path", filePath))

	images, err := r.renderToImages(filePath)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no pages rendered from %s", filePath)
	}
	if len(images) > maxVisionPages {
		images = images[:maxVisionPages]
	}

	contentParts := []openai.ChatMessagePart{
		{
			Type: openai.ChatMessagePartTypeText,
			Text: visionPrompt,
		},
	}
	for _, imgData := range images {
		contentParts = append(contentParts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(imgData)),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		MaxTokens:   4096,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You read scanned invoices and extract structured data with high accuracy. Always respond with valid JSON.",
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: contentParts,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		r.logger.Error("Vision API call failed", zap.Error(err))
		return nil, fmt.Errorf("vision API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from vision API")
	}

	content := resp.Choices[0].Message.Content
	r.logger.Debug("Vision API response received", zap.Int("content_length", len(content)))

	var noData struct {
		NoData bool `json:"no_data"`
	}
	if err := json.Unmarshal([]byte(content), &noData); err == nil && noData.NoData {
		r.logger.Info("Model reported no extractable data", zap.String("path", filePath))
		return nil, nil
	}

	return json.RawMessage(content), nil
}

// renderToImages turns the document into one JPEG per page
func (r *VisionReader) renderToImages(filePath string) ([][]byte, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("document not found: %s", filePath)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	if ext != ".pdf" {
		return r.readImageFile(filePath, ext)
	}

	doc, err := fitz.New(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var images [][]byte
	for pageNum := 0; pageNum < doc.NumPage(); pageNum++ {
		img, err := doc.Image(pageNum)
		if err != nil {
			r.logger.Warn("Failed to render PDF page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}

		imgBytes, err := encodeJPEG(img)
		if err != nil {
			r.logger.Warn("Failed to encode page to JPEG",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}
		images = append(images, imgBytes)
	}
	return images, nil
}

func (r *VisionReader) readImageFile(imagePath, ext string) ([][]byte, error) {
	file, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	var img image.Image
	switch ext {
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(file)
	case ".png":
		img, err = png.Decode(file)
	case ".gif":
		img, err = gif.Decode(file)
	default:
		return nil, fmt.Errorf("unsupported image format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	imgBytes, err := encodeJPEG(img)
	if err != nil {
		return nil, err
	}
	return [][]byte{imgBytes}, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
