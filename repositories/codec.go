package repositories

import (
	"fmt"
	"presence-chat/domain"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Values are stored as protobuf-encoded structpb.Struct documents so that
// both collections share one self-describing wire format.

func encodeParticipant(p domain.Participant) ([]byte, error) {
	return encode(map[string]any{
		"name":         p.Name,
		"sessionId":    p.SessionID.String(),
		"lastActiveAt": p.LastActiveAt.UnixMilli(),
	})
}

func decodeParticipant(b []byte) (domain.Participant, error) {
	fields, err := decode(b)
	if err != nil {
		return domain.Participant{}, err
	}
	session, err := uuid.Parse(fields["sessionId"].GetStringValue())
	if err != nil {
		return domain.Participant{}, fmt.Errorf("participant session: %w", err)
	}
	return domain.Participant{
		Name:         fields["name"].GetStringValue(),
		SessionID:    session,
		LastActiveAt: time.UnixMilli(int64(fields["lastActiveAt"].GetNumberValue())),
	}, nil
}

func encodeMessage(m domain.Message) ([]byte, error) {
	return encode(map[string]any{
		"id":   m.ID.String(),
		"from": m.From,
		"to":   m.To,
		"text": m.Text,
		"type": string(m.Kind),
		"time": m.Time,
	})
}

func decodeMessage(b []byte) (domain.Message, error) {
	fields, err := decode(b)
	if err != nil {
		return domain.Message{}, err
	}
	id, err := uuid.Parse(fields["id"].GetStringValue())
	if err != nil {
		return domain.Message{}, fmt.Errorf("message id: %w", err)
	}
	return domain.Message{
		ID:   id,
		From: fields["from"].GetStringValue(),
		To:   fields["to"].GetStringValue(),
		Text: fields["text"].GetStringValue(),
		Kind: domain.Kind(fields["type"].GetStringValue()),
		Time: fields["time"].GetStringValue(),
	}, nil
}

func encode(doc map[string]any) ([]byte, error) {
	s, err := structpb.NewStruct(doc)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func decode(b []byte) (map[string]*structpb.Value, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return s.GetFields(), nil
}

// DecodeParticipant and DecodeMessage expose the value format to offline tools.
func DecodeParticipant(b []byte) (domain.Participant, error) { return decodeParticipant(b) }

func DecodeMessage(b []byte) (domain.Message, error) { return decodeMessage(b) }
