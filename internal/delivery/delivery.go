// Package delivery sends one notification over the user's channels.
// Email is the required channel; push is best effort and only follows a
// successful email.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/dailyping/internal/domain"
	"github.com/ykvlv/dailyping/internal/metrics"
)

const (
	ChannelEmail = "email"
	ChannelPush  = "push"
)

var (
	ErrNoAddress       = errors.New("user has no email address")
	ErrPushUnsupported = errors.New("unsupported push endpoint kind")
)

// Message is a rendered email.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

// Payload is the push body; web push receives it JSON encoded.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

type EmailSender interface {
	SendEmail(ctx context.Context, address string, msg Message) error
}

type PushSender interface {
	SendPush(ctx context.Context, ep domain.PushEndpoint, p Payload) error
}

// OutcomeRecorder persists per-channel outcomes. store.Repo satisfies it.
type OutcomeRecorder interface {
	RecordDelivery(ctx context.Context, o domain.DeliveryOutcome) error
}

// Intent is one claimed firing ready to be sent.
type Intent struct {
	User      domain.User
	Kind      string // ping|reminder
	PeriodKey string
	Message   Message
	Payload   Payload
}

// Result reports what happened on each channel.
type Result struct {
	Email    domain.DeliveryStatus
	EmailErr error
	Push     domain.DeliveryStatus // empty when the user has no push endpoint
	PushErr  error
}

// Delivered reports whether the required channel succeeded.
func (r Result) Delivered() bool { return r.Email == domain.DeliverySent }

type Dispatcher struct {
	email    EmailSender
	push     PushSender
	outcomes OutcomeRecorder
	log      *zap.Logger
	now      func() time.Time
}

// NewDispatcher wires the channel senders. push and outcomes may be nil.
func NewDispatcher(email EmailSender, push PushSender, outcomes OutcomeRecorder, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{email: email, push: push, outcomes: outcomes, log: log, now: time.Now}
}

// Dispatch sends the intent. It never retries; a failed email leaves push
// unattempted and a failed push never affects the email outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, in Intent) Result {
	var res Result

	res.EmailErr = d.sendEmail(ctx, in)
	if res.EmailErr != nil {
		res.Email = domain.DeliveryFailed
	} else {
		res.Email = domain.DeliverySent
	}

	if in.User.Push == nil {
		return res
	}
	if !res.Delivered() {
		res.Push = domain.DeliverySkipped
		d.record(ctx, in, ChannelPush, res.Push, nil, 0)
		return res
	}

	res.PushErr = d.sendPush(ctx, in)
	if res.PushErr != nil {
		res.Push = domain.DeliveryFailed
		d.log.Warn("push failed",
			zap.String("user_id", in.User.ID),
			zap.String("period_key", in.PeriodKey),
			zap.Error(res.PushErr),
		)
	} else {
		res.Push = domain.DeliverySent
	}
	return res
}

func (d *Dispatcher) sendEmail(ctx context.Context, in Intent) error {
	start := d.now()
	var err error
	switch {
	case d.email == nil:
		err = errors.New("email channel not configured")
	case in.User.Email == "":
		err = ErrNoAddress
	default:
		err = d.email.SendEmail(ctx, in.User.Email, in.Message)
	}
	status := domain.DeliverySent
	if err != nil {
		status = domain.DeliveryFailed
		err = fmt.Errorf("email: %w", err)
	}
	d.record(ctx, in, ChannelEmail, status, err, d.now().Sub(start))
	return err
}

func (d *Dispatcher) sendPush(ctx context.Context, in Intent) error {
	start := d.now()
	var err error
	if d.push == nil {
		err = ErrPushUnsupported
	} else {
		err = d.push.SendPush(ctx, *in.User.Push, in.Payload)
	}
	status := domain.DeliverySent
	if err != nil {
		status = domain.DeliveryFailed
		err = fmt.Errorf("push %s: %w", in.User.Push.Kind, err)
	}
	d.record(ctx, in, ChannelPush, status, err, d.now().Sub(start))
	return err
}

func (d *Dispatcher) record(ctx context.Context, in Intent, channel string, status domain.DeliveryStatus, sendErr error, took time.Duration) {
	metrics.Deliveries.WithLabelValues(channel, string(status)).Inc()
	if status != domain.DeliverySkipped {
		metrics.DeliveryDuration.WithLabelValues(channel).Observe(took.Seconds())
	}
	if d.outcomes == nil {
		return
	}
	o := domain.DeliveryOutcome{
		UserID:    in.User.ID,
		Channel:   channel,
		PeriodKey: in.PeriodKey,
		Kind:      in.Kind,
		Status:    status,
		Duration:  took,
		CreatedAt: d.now().UTC(),
	}
	if sendErr != nil {
		o.Error = sendErr.Error()
	}
	// The send already happened; the outcome log must not change the result.
	if err := d.outcomes.RecordDelivery(context.WithoutCancel(ctx), o); err != nil {
		d.log.Warn("record delivery failed",
			zap.String("user_id", in.User.ID),
			zap.String("channel", channel),
			zap.Error(err),
		)
	}
}
