package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func ptr[T any](v T) *T { return &v }

func TestValidateCandidates_DropsUnknownTypes(t *testing.T) {
	candidates := []candidate{
		{EntryType: "feeding", OccurredAt: "2025-02-25 09:30", Value: ptr(60.0)},
		{EntryType: "pee", OccurredAt: "2025-02-25 10:00"},
		{EntryType: "sleeping", OccurredAt: "2025-02-25 11:00"},
		{EntryType: "weight", OccurredAt: "2025-02-25 12:00", Value: ptr(3400.0)},
		{EntryType: "poo", OccurredAt: "2025-02-25 13:00"},
	}

	records := validateCandidates(candidates, testLogger())

	require.Len(t, records, 4)
	for _, r := range records {
		assert.NotEqual(t, "sleeping", r.EntryType)
	}
}

func TestValidateCandidates_FoldsDiaperTags(t *testing.T) {
	candidates := []candidate{
		{EntryType: "pee", OccurredAt: "2025-02-25 10:00"},
		{EntryType: "poo", OccurredAt: "2025-02-25 11:00"},
		{EntryType: "diaper_dry", OccurredAt: "2025-02-25 12:00"},
	}

	records := validateCandidates(candidates, testLogger())

	require.Len(t, records, 3)
	assert.Equal(t, TypeDiaper, records[0].EntryType)
	assert.Equal(t, SubtypePee, *records[0].Subtype)
	assert.Equal(t, SubtypePoo, *records[1].Subtype)
	assert.Equal(t, SubtypeDry, *records[2].Subtype)
}

func TestValidateCandidates_TwoFieldDiaperPassesThrough(t *testing.T) {
	candidates := []candidate{
		{EntryType: "diaper", Subtype: ptr("pee+poo"), OccurredAt: "2025-02-25 10:00"},
		{EntryType: "diaper", Subtype: ptr("unknown"), OccurredAt: "2025-02-25 11:00"},
		{EntryType: "diaper", OccurredAt: "2025-02-25 12:00"},
	}

	records := validateCandidates(candidates, testLogger())

	require.Len(t, records, 1)
	assert.Equal(t, SubtypePeePoo, *records[0].Subtype)
}

func TestValidateCandidates_WeightKilogramsToGrams(t *testing.T) {
	candidates := []candidate{
		{EntryType: "weight", OccurredAt: "2025-02-25 08:00", Value: ptr(2.5), Unit: "кг"},
		{EntryType: "weight", OccurredAt: "2025-02-26 08:00", Value: ptr(3.1), Unit: "kg"},
		{EntryType: "weight", OccurredAt: "2025-02-27 08:00", Value: ptr(3200.0)},
	}

	records := validateCandidates(candidates, testLogger())

	require.Len(t, records, 3)
	assert.Equal(t, 2500.0, *records[0].Value)
	assert.Equal(t, 3100.0, *records[1].Value)
	assert.Equal(t, 3200.0, *records[2].Value)
}

func TestValidateCandidates_FeedingSubtypeFromNotes(t *testing.T) {
	candidates := []candidate{
		{EntryType: "feeding", OccurredAt: "2025-02-25 09:00", Value: ptr(40.0), Notes: ptr("маминого")},
		{EntryType: "feeding", OccurredAt: "2025-02-25 09:00", Value: ptr(29.0), Notes: ptr("смеси")},
		{EntryType: "feeding", OccurredAt: "2025-02-25 12:00", Value: ptr(50.0)},
	}

	records := validateCandidates(candidates, testLogger())

	require.Len(t, records, 3)
	assert.Equal(t, SubtypeBreast, *records[0].Subtype)
	assert.Equal(t, SubtypeFormula, *records[1].Subtype)
	assert.Nil(t, records[2].Subtype)
}

func TestValidateCandidates_ConfidenceDefaultsToMedium(t *testing.T) {
	candidates := []candidate{
		{EntryType: "feeding", OccurredAt: "2025-02-25 09:00", Value: ptr(60.0)},
		{EntryType: "feeding", OccurredAt: "2025-02-25 10:00", Value: ptr(60.0), Confidence: "high"},
		{EntryType: "feeding", OccurredAt: "2025-02-25 11:00", Value: ptr(60.0), Confidence: "certain"},
	}

	records := validateCandidates(candidates, testLogger())

	require.Len(t, records, 3)
	assert.Equal(t, "medium", records[0].Confidence)
	assert.Equal(t, "high", records[1].Confidence)
	assert.Equal(t, "medium", records[2].Confidence)
}

func TestValidateCandidates_DropsMissingTimestamp(t *testing.T) {
	candidates := []candidate{
		{EntryType: "feeding", Value: ptr(60.0)},
	}

	records := validateCandidates(candidates, testLogger())
	assert.Empty(t, records)
}
