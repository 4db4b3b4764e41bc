package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	response string
	err      error

	lastSystem string
	lastUser   string
	lastImage  Image
}

func (g *fakeGateway) GenerateVision(_ context.Context, system, user string, img Image) (string, error) {
	g.lastSystem = system
	g.lastUser = user
	g.lastImage = img
	return g.response, g.err
}

func TestParse_SplitFeeding(t *testing.T) {
	gateway := &fakeGateway{response: `[
		{"entry_type": "feeding", "occurred_at": "2025-02-25 09:30", "value": 40, "notes": "маминого", "raw_text": "поел 40мл маминого + 29мл смеси", "confidence": "high"},
		{"entry_type": "feeding", "occurred_at": "2025-02-25 09:30", "value": 29, "notes": "смеси", "raw_text": "поел 40мл маминого + 29мл смеси", "confidence": "high"}
	]`}
	client := NewExtractionClient(gateway, testLogger())

	records, err := client.Parse(context.Background(), []byte("img"), "image/jpeg", 2025)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 40.0, *records[0].Value)
	assert.Equal(t, "маминого", *records[0].Notes)
	assert.Equal(t, 29.0, *records[1].Value)
	assert.Equal(t, "смеси", *records[1].Notes)
	assert.Equal(t, records[0].OccurredAt, records[1].OccurredAt)
}

func TestParse_StripsMarkdownFences(t *testing.T) {
	gateway := &fakeGateway{response: "```json\n[{\"entry_type\": \"pee\", \"occurred_at\": \"2025-02-25 10:00\"}]\n```"}
	client := NewExtractionClient(gateway, testLogger())

	records, err := client.Parse(context.Background(), []byte("img"), "image/jpeg", 2025)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, TypeDiaper, records[0].EntryType)
}

func TestParse_MalformedOutput(t *testing.T) {
	for _, response := range []string{
		"I could not read the image, sorry.",
		`{"entries": []}`,
		`[{"entry_type": "feeding"`,
	} {
		gateway := &fakeGateway{response: response}
		client := NewExtractionClient(gateway, testLogger())

		_, err := client.Parse(context.Background(), []byte("img"), "image/jpeg", 2025)
		assert.ErrorIs(t, err, ErrMalformedOutput, "response %q", response)
	}
}

func TestParse_GatewayErrorPropagates(t *testing.T) {
	gateway := &fakeGateway{err: errors.New("connection refused")}
	client := NewExtractionClient(gateway, testLogger())

	_, err := client.Parse(context.Background(), []byte("img"), "image/jpeg", 2025)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestParse_YearHintInUserPrompt(t *testing.T) {
	gateway := &fakeGateway{response: "[]"}
	client := NewExtractionClient(gateway, testLogger())

	_, err := client.Parse(context.Background(), []byte("img"), "image/png", 2024)
	require.NoError(t, err)
	assert.Contains(t, gateway.lastUser, "Year for dates: 2024")
	assert.Equal(t, "image/png", gateway.lastImage.MediaType)
	assert.NotEmpty(t, gateway.lastSystem)
}

func TestParse_SkipsUndecodableElement(t *testing.T) {
	gateway := &fakeGateway{response: `[
		{"entry_type": "feeding", "occurred_at": "2025-02-25 09:30", "value": "sixty"},
		{"entry_type": "feeding", "occurred_at": "2025-02-25 10:30", "value": 60}
	]`}
	client := NewExtractionClient(gateway, testLogger())

	records, err := client.Parse(context.Background(), []byte("img"), "image/jpeg", 2025)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2025-02-25 10:30", records[0].OccurredAt)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "[]", stripFences("[]"))
	assert.Equal(t, "[]", stripFences("```json\n[]\n```"))
	assert.Equal(t, "[]", stripFences("```\n[]\n```"))
	assert.Equal(t, "[]", stripFences("  []  "))
}
