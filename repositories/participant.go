//go:generate go run go.uber.org/mock/mockgen -source=participant.go -destination=../mocks/mock_participant_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"log/slog"
	"presence-chat/domain"
	"presence-chat/errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IParticipantRepository interface {
	CreateParticipant(participant domain.Participant, arrival domain.Message) error
	GetParticipant(name string) (domain.Participant, error)
	ListParticipants() ([]domain.Participant, error)
	TouchParticipant(name string, at time.Time) error
	EvictParticipant(snapshot domain.Participant, departure domain.Message) error
}

type ParticipantRepository struct {
	db       *badger.DB
	log      *slog.Logger
	messages *MessageRepository
}

func NewParticipantRepository(db *badger.DB, log *slog.Logger, messages *MessageRepository) *ParticipantRepository {
	return &ParticipantRepository{db: db, log: log, messages: messages}
}

// CreateParticipant inserts the participant unless the name is already taken,
// and appends the arrival notice in the same transaction.
// It returns errors.ErrConflict when the name exists.
func (p *ParticipantRepository) CreateParticipant(participant domain.Participant, arrival domain.Message) error {
	value, err := encodeParticipant(participant)
	if err != nil {
		return err
	}
	return update(p.db, func(txn *badger.Txn) error {
		key := participantKey(participant.Name)
		_, err := txn.Get(key)
		if err == nil {
			return errors.ErrConflict
		}
		if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err = txn.Set(key, value); err != nil {
			return err
		}
		return p.messages.put(txn, arrival)
	})
}

func (p *ParticipantRepository) GetParticipant(name string) (domain.Participant, error) {
	var participant domain.Participant
	err := p.db.View(func(txn *badger.Txn) error {
		var err error
		participant, err = getParticipant(txn, name)
		return err
	})
	return participant, err
}

// ListParticipants returns every participant in key order.
func (p *ParticipantRepository) ListParticipants() ([]domain.Participant, error) {
	participants := make([]domain.Participant, 0)
	err := p.db.View(func(txn *badger.Txn) error {
		prefix := []byte(ParticipantPrefix)
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			participant, err := decodeParticipant(value)
			if err != nil {
				return err
			}
			participants = append(participants, participant)
		}
		return nil
	})
	return participants, err
}

// TouchParticipant sets lastActiveAt to at. It returns errors.ErrNotFound for
// an unknown name.
func (p *ParticipantRepository) TouchParticipant(name string, at time.Time) error {
	return update(p.db, func(txn *badger.Txn) error {
		participant, err := getParticipant(txn, name)
		if err != nil {
			return err
		}
		participant.LastActiveAt = at
		value, err := encodeParticipant(participant)
		if err != nil {
			return err
		}
		return txn.Set(participantKey(name), value)
	})
}

// EvictParticipant removes the participant and appends the departure notice,
// but only while the stored lastActiveAt still equals the snapshot's.
// A heartbeat landing after the snapshot yields errors.ErrParticipantRefreshed
// and leaves the registry unchanged.
func (p *ParticipantRepository) EvictParticipant(snapshot domain.Participant, departure domain.Message) error {
	return update(p.db, func(txn *badger.Txn) error {
		current, err := getParticipant(txn, snapshot.Name)
		if err != nil {
			return err
		}
		if !current.LastActiveAt.Equal(snapshot.LastActiveAt) {
			return errors.ErrParticipantRefreshed
		}
		if err = txn.Delete(participantKey(snapshot.Name)); err != nil {
			return err
		}
		return p.messages.put(txn, departure)
	})
}

func getParticipant(txn *badger.Txn, name string) (domain.Participant, error) {
	item, err := txn.Get(participantKey(name))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Participant{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.Participant{}, err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return domain.Participant{}, err
	}
	return decodeParticipant(value)
}
