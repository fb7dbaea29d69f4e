package moderation

import (
	"encoding/json"
	"fmt"
)

// Class identifies a moderated content category. Each class has its own
// prompt, threshold and fallback behavior (see policy.go).
type Class string

const (
	ClassMessage   Class = "message"
	ClassReview    Class = "review"
	ClassResource  Class = "resource"
	ClassTherapist Class = "therapist"
	ClassJournal   Class = "journal"
	ClassLetter    Class = "letter"
)

// Classes lists every moderated content class.
var Classes = []Class{
	ClassMessage, ClassReview, ClassResource,
	ClassTherapist, ClassJournal, ClassLetter,
}

// Valid reports whether c is a known content class.
func (c Class) Valid() bool {
	switch c {
	case ClassMessage, ClassReview, ClassResource, ClassTherapist, ClassJournal, ClassLetter:
		return true
	}
	return false
}

// ContentItem is the serializable subset of a submission sent to the
// model. Implementations must not expose user PII beyond what is
// intrinsic to the submission itself.
type ContentItem interface {
	Class() Class
	// Payload returns the JSON document the model sees.
	Payload() ([]byte, error)
}

// MessageItem is a chat message under review. Only the raw text is sent.
type MessageItem struct {
	Text string `json:"text"`
}

func (m MessageItem) Class() Class             { return ClassMessage }
func (m MessageItem) Payload() ([]byte, error) { return marshalPayload(m) }

// ReviewItem is a therapist review left by a user.
type ReviewItem struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (r ReviewItem) Class() Class             { return ClassReview }
func (r ReviewItem) Payload() ([]byte, error) { return marshalPayload(r) }

// ResourceItem is a community-submitted library resource. CoverURL is
// carried so the policy can refuse auto-approval of image-bearing
// submissions; the image itself is never part of the model payload.
type ResourceItem struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Worldview   string `json:"worldview,omitempty"`
	URL         string `json:"url,omitempty"`
	CoverURL    string `json:"cover_url,omitempty"`
}

func (r ResourceItem) Class() Class { return ClassResource }

func (r ResourceItem) Payload() ([]byte, error) {
	visible := struct {
		Title       string `json:"title"`
		Type        string `json:"type"`
		Description string `json:"description"`
		Worldview   string `json:"worldview,omitempty"`
		URL         string `json:"url,omitempty"`
		HasCover    bool   `json:"has_cover_image"`
	}{
		Title:       r.Title,
		Type:        r.Type,
		Description: r.Description,
		Worldview:   r.Worldview,
		URL:         r.URL,
		HasCover:    r.HasImage(),
	}
	return marshalPayload(visible)
}

// HasImage reports whether the submission carries a cover image the
// model cannot see.
func (r ResourceItem) HasImage() bool { return r.CoverURL != "" }

// TherapistItem is a directory listing submission. Contact fields are
// redacted to presence markers before serialization — the model judges
// whether contact information exists, not its value.
type TherapistItem struct {
	Name        string `json:"name"`
	Credentials string `json:"credentials"`
	Specialty   string `json:"specialty"`
	Bio         string `json:"bio"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

func (t TherapistItem) Class() Class { return ClassTherapist }

func (t TherapistItem) Payload() ([]byte, error) {
	redacted := struct {
		Name        string `json:"name"`
		Credentials string `json:"credentials"`
		Specialty   string `json:"specialty"`
		Bio         string `json:"bio"`
		HasEmail    bool   `json:"has_email"`
		HasPhone    bool   `json:"has_phone"`
	}{
		Name:        t.Name,
		Credentials: t.Credentials,
		Specialty:   t.Specialty,
		Bio:         t.Bio,
		HasEmail:    t.Email != "",
		HasPhone:    t.Phone != "",
	}
	return marshalPayload(redacted)
}

// JournalItem is a journal entry shared to the community.
type JournalItem struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body"`
}

func (j JournalItem) Class() Class             { return ClassJournal }
func (j JournalItem) Payload() ([]byte, error) { return marshalPayload(j) }

// LetterItem is a letter written to a lost loved one, shared publicly.
type LetterItem struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body"`
}

func (l LetterItem) Class() Class             { return ClassLetter }
func (l LetterItem) Payload() ([]byte, error) { return marshalPayload(l) }

func marshalPayload(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("moderation: marshal payload: %w", err)
	}
	return data, nil
}
