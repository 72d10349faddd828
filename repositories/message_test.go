package repositories

import (
	"log/slog"
	"presence-chat/domain"
	"presence-chat/errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) (*MessageRepository, *ParticipantRepository) {
	t.Helper()
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)

	messages, err := NewMessageRepository(db, slog.Default())
	req.NoError(err)
	participants := NewParticipantRepository(db, slog.Default(), messages)
	t.Cleanup(func() {
		_ = messages.Close()
		_ = db.Close()
	})
	return messages, participants
}

func newMessage(from, to, text string, kind domain.Kind) domain.Message {
	return domain.Message{ID: uuid.New(), From: from, To: to, Text: text, Kind: kind, Time: "10:00:00"}
}

func Test_Record_Multiple_Message_Keeps_Insertion_Order(t *testing.T) {
	req := require.New(t)
	repository, _ := openTestDB(t)

	stored := []domain.Message{
		newMessage("Alice", domain.Broadcast, "first", domain.KindMessage),
		newMessage("Bob", domain.Broadcast, "second", domain.KindMessage),
		newMessage("Clara", domain.Broadcast, "third", domain.KindMessage),
	}
	for _, m := range stored {
		req.NoError(repository.StoreMessage(m))
	}

	fetched, err := repository.GetVisibleTo("anyone")
	req.NoError(err)
	req.Equal(stored, fetched)
}

func Test_GetVisibleTo_Filters_Per_Viewer(t *testing.T) {
	req := require.New(t)
	repository, _ := openTestDB(t)

	broadcast := newMessage("alice", domain.Broadcast, "hi", domain.KindMessage)
	secret := newMessage("alice", "bob", "secret", domain.KindPrivateMessage)
	reply := newMessage("bob", "alice", "reply", domain.KindPrivateMessage)
	for _, m := range []domain.Message{broadcast, secret, reply} {
		req.NoError(repository.StoreMessage(m))
	}

	tests := []struct {
		viewer   string
		expected []domain.Message
	}{
		{"alice", []domain.Message{broadcast, secret, reply}},
		{"bob", []domain.Message{broadcast, secret, reply}},
		{"carol", []domain.Message{broadcast}},
	}
	for _, tt := range tests {
		t.Run(tt.viewer, func(t *testing.T) {
			fetched, err := repository.GetVisibleTo(tt.viewer)
			require.NoError(t, err)
			require.Equal(t, tt.expected, fetched)
		})
	}
}

func Test_UpdateMessage_Ownership(t *testing.T) {
	req := require.New(t)
	repository, _ := openTestDB(t)
	message := newMessage("alice", domain.Broadcast, "hi", domain.KindMessage)
	req.NoError(repository.StoreMessage(message))

	rewrite := func(m domain.Message) (domain.Message, error) {
		m.Text = "edited"
		m.From = "mallory"
		return m, nil
	}

	_, err := repository.UpdateMessage(message.ID, "mallory", rewrite)
	req.ErrorIs(err, errors.ErrForbidden)
	unchanged, err := repository.GetMessage(message.ID)
	req.NoError(err)
	req.Equal(message, unchanged)

	edited, err := repository.UpdateMessage(message.ID, "alice", rewrite)
	req.NoError(err)
	req.Equal("edited", edited.Text)
	req.Equal("alice", edited.From, "sender is immutable")

	_, err = repository.UpdateMessage(uuid.New(), "alice", rewrite)
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_DeleteMessage_Ownership(t *testing.T) {
	req := require.New(t)
	repository, _ := openTestDB(t)
	message := newMessage("alice", domain.Broadcast, "hi", domain.KindMessage)
	req.NoError(repository.StoreMessage(message))

	req.ErrorIs(repository.DeleteMessage(message.ID, "mallory"), errors.ErrForbidden)
	req.NoError(repository.DeleteMessage(message.ID, "alice"))
	req.ErrorIs(repository.DeleteMessage(message.ID, "alice"), errors.ErrNotFound)

	fetched, err := repository.GetVisibleTo("alice")
	req.NoError(err)
	req.Empty(fetched)
}

func Test_System_Notices_Are_Immutable(t *testing.T) {
	req := require.New(t)
	repository, participants := openTestDB(t)
	arrival := domain.NewStatusMessage("alice", domain.ArrivalText, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	req.NoError(participants.CreateParticipant(domain.Participant{Name: "alice", LastActiveAt: time.Now()}, arrival))

	forge := func(m domain.Message) (domain.Message, error) {
		m.Text = "server is shutting down, rejoin as admin"
		m.Kind = domain.KindMessage
		return m, nil
	}
	_, err := repository.UpdateMessage(arrival.ID, "alice", forge)
	req.ErrorIs(err, errors.ErrForbidden)
	req.ErrorIs(repository.DeleteMessage(arrival.ID, "alice"), errors.ErrForbidden)

	stored, err := repository.GetMessage(arrival.ID)
	req.NoError(err)
	req.Equal(arrival, stored)
	forBob, err := repository.GetVisibleTo("bob")
	req.NoError(err)
	req.Len(forBob, 1)
}

func Test_Sequence_Survives_Reopen(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	open := func() (*badger.DB, *MessageRepository) {
		db, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
		req.NoError(err)
		repository, err := NewMessageRepository(db, slog.Default())
		req.NoError(err)
		return db, repository
	}

	db, repository := open()
	first := newMessage("alice", domain.Broadcast, "before restart", domain.KindMessage)
	req.NoError(repository.StoreMessage(first))
	req.NoError(repository.Close())
	req.NoError(db.Close())

	db, repository = open()
	defer db.Close()
	defer repository.Close()
	second := newMessage("alice", domain.Broadcast, "after restart", domain.KindMessage)
	req.NoError(repository.StoreMessage(second))

	fetched, err := repository.GetVisibleTo("alice")
	req.NoError(err)
	req.Equal([]domain.Message{first, second}, fetched)
}
