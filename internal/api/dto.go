package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ykvlv/dailyping/internal/domain"
)

type pushDTO struct {
	Kind     string `json:"kind"`
	Endpoint string `json:"endpoint,omitempty"`
	P256dh   string `json:"p256dh,omitempty"`
	Auth     string `json:"auth,omitempty"`
	ChatID   int64  `json:"chat_id,omitempty"`
}

type streakDTO struct {
	Current      int    `json:"current"`
	Max          int    `json:"max"`
	LastEntryDay string `json:"last_entry_day,omitempty"`
}

type userRequest struct {
	Email           string   `json:"email"`
	Username        string   `json:"username"`
	Enabled         *bool    `json:"enabled"`
	Timezone        string   `json:"timezone"`
	TriggerTime     string   `json:"trigger_time"`
	Tone            string   `json:"tone"`
	DailyMode       string   `json:"daily_mode"`
	Push            *pushDTO `json:"push"`
	SubscriptionRef string   `json:"subscription_ref"`
}

func (req userRequest) toUser(id string) (*domain.User, error) {
	if strings.TrimSpace(req.Email) == "" {
		return nil, errors.New("email is required")
	}
	u := &domain.User{
		ID:           id,
		Email:        strings.TrimSpace(req.Email),
		Username:     req.Username,
		Enabled:      req.Enabled == nil || *req.Enabled,
		Preferences:  domain.Preferences{DailyMode: req.DailyMode},
		Subscription: domain.Subscription{ExternalRef: req.SubscriptionRef},
	}
	if req.Timezone != "" {
		tz, err := domain.ValidateTZ(req.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone: %w", err)
		}
		u.Timezone = tz
	}
	if req.TriggerTime != "" {
		c, err := domain.ParseHHMM(req.TriggerTime)
		if err != nil {
			return nil, err
		}
		u.TriggerTime = c
	}
	tone, err := domain.ParseTone(req.Tone)
	if err != nil {
		return nil, err
	}
	u.Preferences.Tone = tone

	if p := req.Push; p != nil {
		ep := domain.PushEndpoint{Kind: domain.PushKind(p.Kind), Endpoint: p.Endpoint, P256dh: p.P256dh, Auth: p.Auth, ChatID: p.ChatID}
		switch ep.Kind {
		case domain.PushWeb:
			if ep.Endpoint == "" || ep.P256dh == "" || ep.Auth == "" {
				return nil, errors.New("webpush requires endpoint, p256dh and auth")
			}
		case domain.PushTelegram:
			if ep.ChatID == 0 {
				return nil, errors.New("telegram push requires chat_id")
			}
		default:
			return nil, fmt.Errorf("unknown push kind %q", p.Kind)
		}
		u.Push = &ep
	}
	return u, nil
}

type userDTO struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Username          string    `json:"username,omitempty"`
	Enabled           bool      `json:"enabled"`
	Timezone          string    `json:"timezone,omitempty"`
	TriggerTime       string    `json:"trigger_time,omitempty"`
	Tone              string    `json:"tone"`
	DailyMode         string    `json:"daily_mode"`
	Push              *pushDTO  `json:"push,omitempty"`
	SubscriptionState string    `json:"subscription_state"`
	Entitled          bool      `json:"entitled"`
	Streak            streakDTO `json:"streak"`
	CreatedAt         time.Time `json:"created_at"`
}

func toUserDTO(u *domain.User) userDTO {
	out := userDTO{
		ID:                u.ID,
		Email:             u.Email,
		Username:          u.Username,
		Enabled:           u.Enabled,
		Timezone:          u.Timezone,
		TriggerTime:       string(u.TriggerTime),
		Tone:              string(u.Preferences.Tone),
		DailyMode:         u.Preferences.DailyMode,
		SubscriptionState: string(u.Subscription.State),
		Entitled:          u.Subscription.State.Entitled(),
		Streak:            toStreakDTO(u.Streak),
		CreatedAt:         u.CreatedAt,
	}
	if p := u.Push; p != nil {
		// keys stay server side
		out.Push = &pushDTO{Kind: string(p.Kind), Endpoint: p.Endpoint, ChatID: p.ChatID}
	}
	return out
}

func toStreakDTO(s domain.Streak) streakDTO {
	out := streakDTO{Current: s.Current, Max: s.Max}
	if s.LastEntryDay != nil {
		out.LastEntryDay = s.LastEntryDay.String()
	}
	return out
}

type submissionDTO struct {
	Day        string    `json:"day"`
	Created    bool      `json:"created"`
	Transition string    `json:"transition"`
	Streak     streakDTO `json:"streak"`
}

type subItemDTO struct {
	Text      string   `json:"text"`
	Completed bool     `json:"completed"`
	Reminders []string `json:"reminders"`
}

type entryDTO struct {
	ID        string       `json:"id"`
	Day       string       `json:"day"`
	Content   string       `json:"content"`
	Note      string       `json:"note,omitempty"`
	Completed bool         `json:"completed"`
	Reminders []string     `json:"reminders"`
	SubItems  []subItemDTO `json:"sub_items"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func clocks(in []domain.HHMM) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		out = append(out, string(c))
	}
	return out
}

func toEntryDTO(e *domain.Entry) entryDTO {
	out := entryDTO{
		ID:        e.ID,
		Day:       e.Day.String(),
		Content:   e.Content,
		Note:      e.Note,
		Completed: e.Completed,
		Reminders: clocks(e.Reminders),
		SubItems:  make([]subItemDTO, 0, len(e.SubItems)),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	for _, it := range e.SubItems {
		out.SubItems = append(out.SubItems, subItemDTO{Text: it.Text, Completed: it.Completed, Reminders: clocks(it.Reminders)})
	}
	return out
}

type entryPatch struct {
	Content   *string       `json:"content"`
	Note      *string       `json:"note"`
	Completed *bool         `json:"completed"`
	Reminders *[]string     `json:"reminders"`
	SubItems  *[]subItemDTO `json:"sub_items"`
}

func (p entryPatch) apply(e *domain.Entry) error {
	if p.Content != nil {
		e.Content = *p.Content
	}
	if p.Note != nil {
		e.Note = *p.Note
	}
	if p.Completed != nil {
		e.Completed = *p.Completed
	}
	if p.Reminders != nil {
		rs, err := domain.ParseHHMMList(*p.Reminders)
		if err != nil {
			return err
		}
		e.Reminders = rs
	}
	if p.SubItems != nil {
		items := make([]domain.SubItem, 0, len(*p.SubItems))
		for i, it := range *p.SubItems {
			if strings.TrimSpace(it.Text) == "" {
				return fmt.Errorf("sub_items[%d]: text is required", i)
			}
			rs, err := domain.ParseHHMMList(it.Reminders)
			if err != nil {
				return fmt.Errorf("sub_items[%d]: %w", i, err)
			}
			items = append(items, domain.SubItem{Text: it.Text, Completed: it.Completed, Reminders: rs})
		}
		e.SubItems = items
	}
	return nil
}

type deliveryDTO struct {
	Channel    string    `json:"channel"`
	PeriodKey  string    `json:"period_key"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

func toDeliveryDTO(o domain.DeliveryOutcome) deliveryDTO {
	return deliveryDTO{
		Channel:    o.Channel,
		PeriodKey:  o.PeriodKey,
		Kind:       o.Kind,
		Status:     string(o.Status),
		Error:      o.Error,
		DurationMS: o.Duration.Milliseconds(),
		CreatedAt:  o.CreatedAt,
	}
}
