package publication

import (
	"encoding/json"
	"html"
	"strings"

	"github.com/cnm4us/aws-sub000/internal/models"
	"github.com/microcosm-cc/bluemonday"
)

const (
	ActionCreatePending           = "create_pending"
	ActionAutoPublished           = "auto_published"
	ActionApprove                 = "approve_publication"
	ActionReject                  = "reject_publication"
	ActionUnpublish               = "unpublish_publication"
	ActionModeratorRepublish      = "moderator_republish_published"
	ActionOwnerRepublishRequested = "owner_republish_requested"
	ActionOwnerRepublishPublished = "owner_republish_published"

	// ActionNote records a moderator's free-text note alongside a transition.
	ActionNote = "moderation_note"
)

const maxNoteLength = 2000

var notePolicy = bluemonday.StrictPolicy()

// cleanNote strips markup and bounds the note length. Blank notes come back empty.
// The policy escapes what it keeps; notes are stored as plain text, so the
// entities are decoded again.
func cleanNote(note string) string {
	note = strings.TrimSpace(html.UnescapeString(notePolicy.Sanitize(note)))
	if r := []rune(note); len(r) > maxNoteLength {
		note = string(r[:maxNoteLength])
	}
	return note
}

// lastEventWithAction returns the most recent event carrying action.
// events must be ordered oldest first.
func lastEventWithAction(events []models.PublicationEvent, action string) *models.PublicationEvent {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Action == action {
			return &events[i]
		}
	}
	return nil
}

// DecodeDetail unpacks an event's detail payload. Missing or malformed
// payloads decode to an empty Detail.
func DecodeDetail(event models.PublicationEvent) Detail {
	out := Detail{}
	if len(event.Detail) == 0 {
		return out
	}
	_ = json.Unmarshal(event.Detail, &out)
	return out
}
