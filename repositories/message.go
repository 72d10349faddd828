//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"presence-chat/domain"
	"presence-chat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	StoreMessage(message domain.Message) error
	GetVisibleTo(viewer string) ([]domain.Message, error)
	GetMessage(id uuid.UUID) (domain.Message, error)
	UpdateMessage(id uuid.UUID, editor string, edit func(domain.Message) (domain.Message, error)) (domain.Message, error)
	DeleteMessage(id uuid.UUID, requester string) error
}

type MessageRepository struct {
	db       *badger.DB
	log      *slog.Logger
	sequence *badger.Sequence
}

// NewMessageRepository leases insertion numbers from a badger sequence.
// Close must be called to hand unused numbers back before closing the db.
func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte(messageSequence), 100)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{db: db, log: log, sequence: seq}, nil
}

func (m *MessageRepository) Close() error {
	return m.sequence.Release()
}

// StoreMessage appends the message after every message stored before it.
func (m *MessageRepository) StoreMessage(message domain.Message) error {
	return update(m.db, func(txn *badger.Txn) error {
		return m.put(txn, message)
	})
}

// put writes message and its id index within txn. Participant operations use
// it to emit status messages in the same transaction as the registry change.
func (m *MessageRepository) put(txn *badger.Txn, message domain.Message) error {
	seq, err := m.sequence.Next()
	if err != nil {
		return err
	}
	value, err := encodeMessage(message)
	if err != nil {
		return err
	}
	key := messageKey(seq)
	if err = txn.Set(key, value); err != nil {
		return err
	}
	return txn.Set(messageIndexKey(message.ID), key)
}

// GetVisibleTo scans the message log in insertion order and keeps broadcasts,
// messages addressed to viewer and messages sent by viewer.
func (m *MessageRepository) GetVisibleTo(viewer string) ([]domain.Message, error) {
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(MessagePrefix)
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			message, err := decodeMessage(value)
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Filter(messages, func(message domain.Message, _ int) bool {
		return message.IsVisibleTo(viewer)
	}), nil
}

func (m *MessageRepository) GetMessage(id uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		var err error
		message, _, err = m.lookup(txn, id)
		return err
	})
	return message, err
}

// UpdateMessage applies edit to the message when editor is its sender.
// System notices are immutable and yield errors.ErrForbidden.
// The checks and the write happen in one transaction; an error returned by
// edit aborts it.
func (m *MessageRepository) UpdateMessage(id uuid.UUID, editor string, edit func(domain.Message) (domain.Message, error)) (domain.Message, error) {
	var edited domain.Message
	err := update(m.db, func(txn *badger.Txn) error {
		message, key, err := m.lookup(txn, id)
		if err != nil {
			return err
		}
		if err = checkMutable(message, editor); err != nil {
			return err
		}
		if edited, err = edit(message); err != nil {
			return err
		}
		edited.ID, edited.From = message.ID, message.From
		value, err := encodeMessage(edited)
		if err != nil {
			return err
		}
		return txn.Set(key, value)
	})
	return edited, err
}

// DeleteMessage removes the message when requester is its sender.
// System notices cannot be deleted.
func (m *MessageRepository) DeleteMessage(id uuid.UUID, requester string) error {
	return update(m.db, func(txn *badger.Txn) error {
		message, key, err := m.lookup(txn, id)
		if err != nil {
			return err
		}
		if err = checkMutable(message, requester); err != nil {
			return err
		}
		if err = txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(messageIndexKey(id))
	})
}

func checkMutable(message domain.Message, requester string) error {
	if message.IsSystemNotice() {
		return fmt.Errorf("%w: system notices cannot be changed", errors.ErrForbidden)
	}
	if !message.IsOwnedBy(requester) {
		return errors.ErrForbidden
	}
	return nil
}

func (m *MessageRepository) lookup(txn *badger.Txn, id uuid.UUID) (domain.Message, []byte, error) {
	item, err := txn.Get(messageIndexKey(id))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, nil, errors.ErrNotFound
	}
	if err != nil {
		return domain.Message{}, nil, err
	}
	key, err := item.ValueCopy(nil)
	if err != nil {
		return domain.Message{}, nil, err
	}

	item, err = txn.Get(key)
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		m.log.Warn("Dangling message index", "id", id, "key", string(key))
		return domain.Message{}, nil, errors.ErrNotFound
	}
	if err != nil {
		return domain.Message{}, nil, err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return domain.Message{}, nil, err
	}
	message, err := decodeMessage(value)
	return message, key, err
}
