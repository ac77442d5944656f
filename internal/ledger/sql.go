package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/ykvlv/dailyping/internal/dbx"
)

// SQL stores claims in the notification_claims table. The composite primary
// key makes the insert the check-and-set; concurrent instances sharing the
// database cannot both win.
type SQL struct {
	db      dbx.DBTX
	dialect dbx.Dialect
	now     func() time.Time
}

func NewSQL(db dbx.DBTX, dialect dbx.Dialect) *SQL {
	return &SQL{db: db, dialect: dialect, now: time.Now}
}

func (l *SQL) Claim(ctx context.Context, key Key) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	res, err := l.db.ExecContext(ctx, l.dialect.Rebind(`
		INSERT INTO notification_claims (user_id, channel, period_key, claimed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, channel, period_key) DO NOTHING`),
		key.UserID, key.Channel, key.PeriodKey, l.now().UTC().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return n == 1, nil
}
