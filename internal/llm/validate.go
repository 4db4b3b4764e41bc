package llm

import (
	"strings"

	"go.uber.org/zap"
)

// Stored entry categories and subtypes.
const (
	TypeFeeding = "feeding"
	TypeDiaper  = "diaper"
	TypeWeight  = "weight"

	SubtypePee    = "pee"
	SubtypePoo    = "poo"
	SubtypeDry    = "dry"
	SubtypePeePoo = "pee+poo"

	SubtypeBreast  = "breast"
	SubtypeFormula = "formula"
)

// diaperTags maps the flat tags the handwriting vocabulary produces onto
// the stored diaper subtypes.
var diaperTags = map[string]string{
	"pee":        SubtypePee,
	"poo":        SubtypePoo,
	"diaper_dry": SubtypeDry,
}

var diaperSubtypes = map[string]bool{
	SubtypePee:    true,
	SubtypePoo:    true,
	SubtypeDry:    true,
	SubtypePeePoo: true,
}

// validateCandidates filters candidates down to the closed category set and
// normalizes each survivor into the strict Record shape. Unrecognized
// categories are dropped, never escalated: one misread line must not void
// the rest of the batch.
func validateCandidates(candidates []candidate, log *zap.SugaredLogger) []Record {
	records := make([]Record, 0, len(candidates))
	for _, cand := range candidates {
		record, ok := normalize(cand)
		if !ok {
			log.Warnw("skipping record with unknown type", "entry_type", cand.EntryType, "raw_text", stringOrEmpty(cand.RawText))
			continue
		}
		if record.OccurredAt == "" {
			log.Warnw("skipping record without timestamp", "entry_type", cand.EntryType, "raw_text", stringOrEmpty(cand.RawText))
			continue
		}
		records = append(records, record)
	}
	return records
}

func normalize(cand candidate) (Record, bool) {
	record := Record{
		OccurredAt: strings.TrimSpace(cand.OccurredAt),
		Value:      cand.Value,
		Notes:      cand.Notes,
		Confidence: normalizeConfidence(cand.Confidence),
		RawText:    cand.RawText,
	}

	tag := strings.ToLower(strings.TrimSpace(cand.EntryType))
	switch {
	case tag == TypeFeeding:
		record.EntryType = TypeFeeding
		record.Subtype = feedingSubtype(cand)

	case tag == TypeWeight:
		record.EntryType = TypeWeight
		record.Value = normalizeWeight(cand.Value, cand.Unit)

	case diaperTags[tag] != "":
		record.EntryType = TypeDiaper
		subtype := diaperTags[tag]
		record.Subtype = &subtype
		record.Value = nil

	case tag == TypeDiaper:
		// Already in the two-field form; keep only known subtypes.
		if cand.Subtype == nil || !diaperSubtypes[*cand.Subtype] {
			return Record{}, false
		}
		record.EntryType = TypeDiaper
		record.Subtype = cand.Subtype
		record.Value = nil

	default:
		return Record{}, false
	}

	return record, true
}

// feedingSubtype derives breast/formula from an explicit subtype or from
// the notes vocabulary the prompt mandates.
func feedingSubtype(cand candidate) *string {
	if cand.Subtype != nil {
		switch *cand.Subtype {
		case SubtypeBreast, SubtypeFormula:
			return cand.Subtype
		}
	}
	if cand.Notes == nil {
		return nil
	}
	notes := strings.ToLower(*cand.Notes)
	switch {
	case strings.Contains(notes, "мамин") || strings.Contains(notes, "мамы"):
		subtype := SubtypeBreast
		return &subtype
	case strings.Contains(notes, "смес"):
		subtype := SubtypeFormula
		return &subtype
	}
	return nil
}

// normalizeWeight converts kilogram-tagged values to grams. The prompt
// already instructs the model to emit grams; this closes the case where it
// reports the unit instead of converting.
func normalizeWeight(value *float64, unit string) *float64 {
	if value == nil {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "kg", "кг":
		grams := *value * 1000
		return &grams
	}
	return value
}

func normalizeConfidence(confidence string) string {
	switch strings.ToLower(strings.TrimSpace(confidence)) {
	case "high":
		return "high"
	case "low":
		return "low"
	default:
		return "medium"
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
