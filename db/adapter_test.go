package db

import (
	"testing"
	"time"

	"github.com/chatterbox/engine/models"
)

func TestAdapterDefaultsUnknownType(t *testing.T) {
	var a entityAdapter

	entity := &MessageEntity{MessageID: "m1", Type: "video", Timestamp: time.Now()}
	if got := a.toMessage(entity).Type; got != models.MessageTypeUnknown {
		t.Errorf("unrecognised raw type mapped to %s, want unknown", got)
	}
}

func TestAdapterDefaultsMissingTimestamp(t *testing.T) {
	var a entityAdapter

	got := a.toMessage(&MessageEntity{MessageID: "m1", Type: "text"})
	if got.Timestamp.IsZero() {
		t.Error("missing timestamp should default to now, got zero")
	}
}

func TestAdapterSortsMessagesNewestFirst(t *testing.T) {
	var a entityAdapter
	base := time.Now()

	entity := &ConversationEntity{
		ConversationID: "c1",
		Messages: []*MessageEntity{
			{MessageID: "old", Type: "text", Timestamp: base.Add(-time.Hour)},
			{MessageID: "new", Type: "text", Timestamp: base},
			{MessageID: "mid", Type: "text", Timestamp: base.Add(-time.Minute)},
		},
	}

	got := a.toConversation(entity)
	want := []string{"new", "mid", "old"}
	for i, id := range want {
		if got.Messages[i].ID != id {
			t.Fatalf("messages[%d] = %s, want %s", i, got.Messages[i].ID, id)
		}
	}
}

func TestAdapterOrdersImagesByRowID(t *testing.T) {
	var a entityAdapter

	content := &MessageContentEntity{
		Images: []*ImageEntity{
			{ID: 3, URL: "c"},
			{ID: 1, URL: "a"},
			{ID: 2, URL: "b"},
		},
	}

	got := a.toContent(content).ImageURLs
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("image urls = %v, want %v", got, want)
		}
	}
}

func TestAdapterNilEntities(t *testing.T) {
	var a entityAdapter

	if user := a.toUser(nil); user.ID != "" {
		t.Errorf("nil user entity should map to zero value, got %+v", user)
	}
	if content := a.toContent(nil); content.Text != nil || content.ImageURLs != nil {
		t.Errorf("nil content entity should map to zero value, got %+v", content)
	}
}
