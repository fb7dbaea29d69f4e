package moderation

import (
	"encoding/json"
	"fmt"
)

// Request is the envelope published to the moderation.submit queue for
// asynchronous content review. Item carries the class-specific fields.
type Request struct {
	Class       Class           `json:"class"`
	ItemRef     string          `json:"item_ref"`
	SubmitterID string          `json:"submitter_id"`
	Item        json.RawMessage `json:"item"`
}

// ContentItem decodes the envelope's item into its class variant.
// The message class is handled synchronously on the send path and is
// rejected here.
func (r Request) ContentItem() (ContentItem, error) {
	switch r.Class {
	case ClassReview:
		var item ReviewItem
		return item, unmarshalItem(r.Item, &item)
	case ClassResource:
		var item ResourceItem
		return item, unmarshalItem(r.Item, &item)
	case ClassTherapist:
		var item TherapistItem
		return item, unmarshalItem(r.Item, &item)
	case ClassJournal:
		var item JournalItem
		return item, unmarshalItem(r.Item, &item)
	case ClassLetter:
		var item LetterItem
		return item, unmarshalItem(r.Item, &item)
	case ClassMessage:
		return nil, fmt.Errorf("moderation: message class is synchronous, not queued")
	default:
		return nil, fmt.Errorf("moderation: unknown content class %q", r.Class)
	}
}

// Result is the envelope published on moderation.result.<class> after a
// queued request is evaluated.
type Result struct {
	Class       Class   `json:"class"`
	ItemRef     string  `json:"item_ref"`
	SubmitterID string  `json:"submitter_id"`
	Verdict     Verdict `json:"verdict"`
}

func unmarshalItem(data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("moderation: decode item: %w", err)
	}
	return nil
}
