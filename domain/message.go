// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Broadcast is the reserved addressee meaning "every participant".
const Broadcast = "Todos"

// TimeLayout renders message timestamps as HH:MM:SS.
const TimeLayout = "15:04:05"

const (
	ArrivalText   = "entra na sala..."
	DepartureText = "sai da sala..."
)

type Kind string

const (
	KindMessage        Kind = "message"
	KindPrivateMessage Kind = "private_message"
	KindStatus         Kind = "status"
)

// Message is a stored chat entry. ID is assigned by the store on insertion.
type Message struct {
	ID   uuid.UUID
	From string
	To   string
	Text string
	Kind Kind
	Time string
}

// IsVisibleTo reports whether viewer may read the message:
// broadcasts, messages addressed to the viewer and messages sent by the viewer.
func (m Message) IsVisibleTo(viewer string) bool {
	return m.To == Broadcast || m.To == viewer || m.From == viewer
}

// IsSystemNotice reports whether the message was generated by the server
// (arrival or departure) rather than written by a participant.
func (m Message) IsSystemNotice() bool {
	return m.Kind == KindStatus
}

// IsOwnedBy reports whether requester authored the message.
func (m Message) IsOwnedBy(requester string) bool {
	return m.From == requester
}

// NewStatusMessage builds the system notice emitted when name arrives or departs.
func NewStatusMessage(name, text string, at time.Time) Message {
	return Message{
		ID:   uuid.New(),
		From: name,
		To:   Broadcast,
		Text: text,
		Kind: KindStatus,
		Time: at.Format(TimeLayout),
	}
}

// MessagePatch carries the fields of a partial edit. Nil fields stay untouched.
type MessagePatch struct {
	To   *string
	Text *string
	Kind *Kind
}

// IsEmpty reports whether the patch changes nothing.
func (p MessagePatch) IsEmpty() bool {
	return p.To == nil && p.Text == nil && p.Kind == nil
}

// Apply returns a copy of m with the patch fields applied. Time is refreshed
// only when at least one field is set.
func (p MessagePatch) Apply(m Message, at time.Time) Message {
	if p.IsEmpty() {
		return m
	}
	if p.To != nil {
		m.To = *p.To
	}
	if p.Text != nil {
		m.Text = *p.Text
	}
	if p.Kind != nil {
		m.Kind = *p.Kind
	}
	m.Time = at.Format(TimeLayout)
	return m
}

type FeedEventType string

const (
	FeedCreated FeedEventType = "created"
	FeedEdited  FeedEventType = "edited"
)

// FeedEvent is pushed to live subscribers allowed to see Message.
type FeedEvent struct {
	Type    FeedEventType
	Message Message
}
