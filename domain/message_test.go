package domain

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestMessage_IsVisibleTo(t *testing.T) {
	tests := []struct {
		name    string
		message Message
		viewer  string
		visible bool
	}{
		{"Broadcast is visible to anyone", Message{From: "alice", To: Broadcast}, "carol", true},
		{"Addressee sees private message", Message{From: "alice", To: "bob"}, "bob", true},
		{"Sender sees own private message", Message{From: "alice", To: "bob"}, "alice", true},
		{"Third party does not see private message", Message{From: "alice", To: "bob"}, "carol", false},
		{"Empty viewer only sees broadcasts", Message{From: "alice", To: "bob"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.visible, tt.message.IsVisibleTo(tt.viewer))
		})
	}
}

func TestMessagePatch_Apply_OnlyProvidedFields(t *testing.T) {
	req := require.New(t)
	original := Message{From: "alice", To: Broadcast, Text: "hi", Kind: KindMessage, Time: "10:00:00"}
	at := time.Date(2024, 1, 1, 12, 34, 56, 0, time.UTC)

	edited := MessagePatch{Text: lo.ToPtr("hello")}.Apply(original, at)

	req.Equal("hello", edited.Text)
	req.Equal(Broadcast, edited.To)
	req.Equal(KindMessage, edited.Kind)
	req.Equal("alice", edited.From)
	req.Equal("12:34:56", edited.Time)
	req.Equal("hi", original.Text)
}

func TestMessagePatch_Apply_Empty_Keeps_Time(t *testing.T) {
	req := require.New(t)
	original := Message{From: "alice", To: Broadcast, Text: "hi", Kind: KindMessage, Time: "10:00:00"}

	edited := MessagePatch{}.Apply(original, time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC))

	req.True(MessagePatch{}.IsEmpty())
	req.Equal(original, edited)
}

func TestMessage_IsSystemNotice(t *testing.T) {
	req := require.New(t)
	req.True(NewStatusMessage("alice", ArrivalText, time.Now()).IsSystemNotice())
	req.False(Message{Kind: KindMessage}.IsSystemNotice())
	req.False(Message{Kind: KindPrivateMessage}.IsSystemNotice())
}

func TestParticipant_IsStale(t *testing.T) {
	req := require.New(t)
	now := time.Now()
	p := Participant{Name: "alice", LastActiveAt: now.Add(-10 * time.Second)}

	req.False(p.IsStale(now, 10*time.Second))
	req.True(p.IsStale(now.Add(time.Millisecond), 10*time.Second))
}

func TestNewStatusMessage(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 1, 1, 8, 5, 3, 0, time.UTC)

	m := NewStatusMessage("alice", DepartureText, at)

	req.Equal("alice", m.From)
	req.Equal(Broadcast, m.To)
	req.Equal(KindStatus, m.Kind)
	req.Equal("08:05:03", m.Time)
	req.NotEqual([16]byte{}, [16]byte(m.ID))
}
