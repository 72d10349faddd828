package validation

import (
	stderrors "errors"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestValidateJoin(t *testing.T) {
	req := require.New(t)
	req.NoError(ValidateJoin(JoinRequest{Name: "alice"}))

	err := ValidateJoin(JoinRequest{})
	var violations Violations
	req.True(stderrors.As(err, &violations))
	req.Equal(Violations{{Field: "name", Rule: "required"}}, violations)
}

func TestValidateSendMessage_CollectsEveryViolation(t *testing.T) {
	req := require.New(t)
	err := ValidateSendMessage(SendMessageRequest{Kind: "status"})

	var violations Violations
	req.True(stderrors.As(err, &violations))
	fields := lo.Map(violations, func(v Violation, _ int) string { return v.Field })
	req.ElementsMatch([]string{"from", "to", "text", "type", "time"}, fields)
}

func TestValidateSendMessage_Kinds(t *testing.T) {
	base := SendMessageRequest{From: "alice", To: "Todos", Text: "hi", Time: "10:00:00"}
	tests := []struct {
		kind    string
		wantErr bool
	}{
		{"message", false},
		{"private_message", false},
		{"status", true},
		{"", true},
		{"MESSAGE", true},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			payload := base
			payload.Kind = tt.kind
			err := ValidateSendMessage(payload)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateEditMessage(t *testing.T) {
	req := require.New(t)
	req.NoError(ValidateEditMessage(EditMessageRequest{Text: lo.ToPtr("new")}))

	err := ValidateEditMessage(EditMessageRequest{To: lo.ToPtr(""), Kind: lo.ToPtr("status")})
	var violations Violations
	req.True(stderrors.As(err, &violations))
	req.Len(violations, 2)

	err = ValidateEditMessage(EditMessageRequest{})
	req.True(stderrors.As(err, &violations))
	req.Equal(Violations{{Field: "patch", Rule: "required_one_of", Param: "to text type"}}, violations)
}

func TestValidateLimit(t *testing.T) {
	req := require.New(t)

	limit, err := ValidateLimit("")
	req.NoError(err)
	req.Nil(limit)

	limit, err = ValidateLimit("3")
	req.NoError(err)
	req.Equal(3, *limit)

	for _, raw := range []string{"0", "-1", "abc", "1.5"} {
		_, err = ValidateLimit(raw)
		req.Error(err, raw)
	}
}
