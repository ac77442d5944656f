package store

import (
	"encoding/json"
	"time"

	"github.com/ykvlv/dailyping/internal/domain"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// boolToInt converts a boolean to 1/0 for portable INTEGER columns.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().Unix()
}

func fromUnix(v int64) time.Time {
	return time.Unix(v, 0).UTC()
}

func dayToColumn(d *domain.Day) string {
	if d == nil {
		return ""
	}
	return string(*d)
}

func dayFromColumn(s string) *domain.Day {
	if s == "" {
		return nil
	}
	d := domain.Day(s)
	return &d
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeReminders(s string) ([]domain.HHMM, error) {
	if s == "" {
		return nil, nil
	}
	var out []domain.HHMM
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeSubItems(s string) ([]domain.SubItem, error) {
	if s == "" {
		return nil, nil
	}
	var out []domain.SubItem
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// pushColumns flattens the optional push endpoint; an empty kind means none.
type pushColumns struct {
	kind, endpoint, p256dh, auth string
	chatID                       int64
}

func pushToColumns(p *domain.PushEndpoint) pushColumns {
	if p == nil {
		return pushColumns{}
	}
	return pushColumns{
		kind:     string(p.Kind),
		endpoint: p.Endpoint,
		p256dh:   p.P256dh,
		auth:     p.Auth,
		chatID:   p.ChatID,
	}
}

func (c pushColumns) endpointValue() *domain.PushEndpoint {
	if c.kind == "" {
		return nil
	}
	return &domain.PushEndpoint{
		Kind:     domain.PushKind(c.kind),
		Endpoint: c.endpoint,
		P256dh:   c.p256dh,
		Auth:     c.auth,
		ChatID:   c.chatID,
	}
}
