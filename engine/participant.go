package engine

import (
	"fmt"
	"strconv"

	"github.com/sactech816/integration-app-sub010/models"
)

// ParticipantKey is the single identity every engine component works with:
// either an authenticated account or an anonymous guest session.
type ParticipantKey struct {
	Kind string `json:"kind"` // models.ParticipantAccount or models.ParticipantSession
	Ref  string `json:"ref"`  // account id (decimal) or session token
}

func AccountKey(accountID uint) ParticipantKey {
	return ParticipantKey{Kind: models.ParticipantAccount, Ref: strconv.FormatUint(uint64(accountID), 10)}
}

func SessionKey(token string) ParticipantKey {
	return ParticipantKey{Kind: models.ParticipantSession, Ref: token}
}

func (k ParticipantKey) IsZero() bool {
	return k.Kind == "" || k.Ref == ""
}

func (k ParticipantKey) String() string {
	return k.Kind + ":" + k.Ref
}

// AccountID returns the numeric account id for account keys, 0 otherwise.
func (k ParticipantKey) AccountID() uint {
	if k.Kind != models.ParticipantAccount {
		return 0
	}
	id, err := strconv.ParseUint(k.Ref, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// scope narrows a query to rows owned by the participant. Every
// participant-owned table uses the same column pair, so the helper is shared
// across components.
func participantWhere(k ParticipantKey) (string, []interface{}) {
	return "participant_kind = ? AND participant_ref = ?", []interface{}{k.Kind, k.Ref}
}

// sourceID builds a globally unique source event id for idempotent grants.
// The participant is embedded so the (reason_code, source_event_id) unique
// index holds across participants.
func sourceID(prefix string, k ParticipantKey, parts ...string) string {
	s := prefix
	for _, p := range parts {
		s += ":" + p
	}
	return fmt.Sprintf("%s:%s:%s", s, k.Kind, k.Ref)
}
