package delivery

import (
	"context"
	"fmt"

	"github.com/ykvlv/dailyping/internal/domain"
)

// PushRouter picks the sender matching the endpoint kind.
type PushRouter struct {
	senders map[domain.PushKind]PushSender
}

func NewPushRouter() *PushRouter {
	return &PushRouter{senders: make(map[domain.PushKind]PushSender)}
}

// Handle registers s for kind. A nil sender is ignored.
func (r *PushRouter) Handle(kind domain.PushKind, s PushSender) *PushRouter {
	if s != nil {
		r.senders[kind] = s
	}
	return r
}

func (r *PushRouter) SendPush(ctx context.Context, ep domain.PushEndpoint, p Payload) error {
	s, ok := r.senders[ep.Kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrPushUnsupported, ep.Kind)
	}
	return s.SendPush(ctx, ep, p)
}
