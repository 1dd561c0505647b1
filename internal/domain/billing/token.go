package billing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Token is a parsed correlation token. Tokens are embedded in the outbound
// checkout preference as its external reference and echoed back by the
// gateway, routing the settlement effect. Entity ids are UUIDs and therefore
// never contain the underscore separator, so parsing splits unambiguously.
type Token struct {
	Purpose      string
	EntityID     uuid.UUID
	DurationDays int
	IssuedAt     time.Time
}

func (t Token) String() string {
	millis := t.IssuedAt.UnixMilli()
	if t.Purpose == PurposeAgenda {
		return fmt.Sprintf("%s_%s_%d_%d", t.Purpose, t.EntityID, t.DurationDays, millis)
	}
	return fmt.Sprintf("%s_%s_%d", t.Purpose, t.EntityID, millis)
}

// NewToken builds a correlation token issued now.
func NewToken(purpose string, entityID uuid.UUID) Token {
	return Token{Purpose: purpose, EntityID: entityID, IssuedAt: time.Now()}
}

// NewAgendaToken builds an agenda-access token embedding the purchased
// duration.
func NewAgendaToken(professionalID uuid.UUID, durationDays int) Token {
	return Token{Purpose: PurposeAgenda, EntityID: professionalID, DurationDays: durationDays, IssuedAt: time.Now()}
}

// ParseToken decodes a correlation token echoed back by the gateway.
func ParseToken(raw string) (Token, error) {
	parts := strings.Split(raw, "_")

	var t Token
	switch {
	case len(parts) == 3:
		t.Purpose = parts[0]
	case len(parts) == 4 && parts[0] == PurposeAgenda:
		t.Purpose = PurposeAgenda
		days, err := strconv.Atoi(parts[2])
		if err != nil || days <= 0 {
			return Token{}, fmt.Errorf("invalid duration in token %q", raw)
		}
		t.DurationDays = days
	default:
		return Token{}, fmt.Errorf("malformed correlation token %q", raw)
	}

	switch t.Purpose {
	case PurposeSubscription, PurposeDependent, PurposeSettlement, PurposeAgenda:
	default:
		return Token{}, fmt.Errorf("unknown purpose in token %q", raw)
	}

	entityID, err := uuid.Parse(parts[1])
	if err != nil {
		return Token{}, fmt.Errorf("invalid entity id in token %q", raw)
	}
	t.EntityID = entityID

	millis, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil {
		return Token{}, fmt.Errorf("invalid timestamp in token %q", raw)
	}
	t.IssuedAt = time.UnixMilli(millis).UTC()

	return t, nil
}
