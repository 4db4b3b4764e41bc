package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrMalformedOutput is returned when the model's output cannot be parsed
// as a JSON array. The array boundary itself could not be established, so
// nothing can be salvaged from the response.
var ErrMalformedOutput = errors.New("model output is not a JSON array")

// Record is the validated shape the rest of the pipeline consumes.
// EntryType/Subtype use the stored two-field representation, values are in
// milliliters (feeding) or grams (weight).
type Record struct {
	EntryType  string
	Subtype    *string
	OccurredAt string
	Value      *float64
	Notes      *string
	Confidence string
	RawText    *string
}

// candidate is the loosely-typed per-element decode of the model output.
// Nothing beyond this boundary trusts the external payload's shape.
type candidate struct {
	EntryType  string   `json:"entry_type"`
	Subtype    *string  `json:"subtype"`
	OccurredAt string   `json:"occurred_at"`
	Value      *float64 `json:"value"`
	Unit       string   `json:"unit"`
	Notes      *string  `json:"notes"`
	RawText    *string  `json:"raw_text"`
	Confidence string   `json:"confidence"`
}

// ExtractionClient turns one photographed log page into validated records
// with a single model call.
type ExtractionClient struct {
	gateway Gateway
	log     *zap.SugaredLogger
}

func NewExtractionClient(gateway Gateway, log *zap.SugaredLogger) *ExtractionClient {
	return &ExtractionClient{
		gateway: gateway,
		log:     log,
	}
}

// Parse recognizes all entries on the image. year disambiguates the
// captured timestamps, which carry no year of their own; zero means the
// current calendar year.
func (c *ExtractionClient) Parse(ctx context.Context, imageData []byte, mediaType string, year int) ([]Record, error) {
	if year <= 0 {
		year = time.Now().Year()
	}

	userPrompt := fmt.Sprintf(
		"Please analyze the attached photo of a handwritten baby care log. "+
			"Recognize all entries and return structured JSON following the specified format.\nYear for dates: %d.", year)

	raw, err := c.gateway.GenerateVision(ctx, systemPrompt, userPrompt, Image{Data: imageData, MediaType: mediaType})
	if err != nil {
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}

	text := stripFences(raw)

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(text), &elements); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	candidates := make([]candidate, 0, len(elements))
	for _, element := range elements {
		var cand candidate
		if err := json.Unmarshal(element, &cand); err != nil {
			c.log.Warnw("skipping undecodable record", "error", err)
			continue
		}
		candidates = append(candidates, cand)
	}

	records := validateCandidates(candidates, c.log)
	c.log.Infow("extraction finished", "raw_count", len(elements), "validated_count", len(records))
	return records, nil
}

// stripFences removes a markdown code-block wrapper if the model added one
// despite the instructions.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[idx+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
