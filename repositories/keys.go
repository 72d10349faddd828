package repositories

import (
	stderrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Key layout:
//
//	participant:{name}   participant document
//	msg:{seq}            message document, seq zero-padded to keep insertion order
//	idx:msg:{uuid}       primary key of the message with that id
//	seq:msg              badger sequence backing {seq}
const (
	ParticipantPrefix = "participant:"
	MessagePrefix     = "msg:"
	messageIndex      = "idx:msg:"
	messageSequence   = "seq:msg"
)

const maxTxnAttempts = 5

func participantKey(name string) []byte {
	return []byte(ParticipantPrefix + name)
}

func messageKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", MessagePrefix, seq))
}

func messageIndexKey(id uuid.UUID) []byte {
	return []byte(messageIndex + id.String())
}

// update runs fn in a read-write transaction and retries it when badger
// reports a conflicting concurrent commit. Every read done by fn takes part in
// conflict detection, which makes check-then-write sequences atomic.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnAttempts; attempt++ {
		if err = db.Update(fn); !stderrors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}
