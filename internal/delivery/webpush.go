package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"github.com/ykvlv/dailyping/internal/domain"
)

// ErrEndpointGone means the push service dropped the subscription (404/410).
var ErrEndpointGone = errors.New("push endpoint gone")

// WebPushSender delivers VAPID-signed web push notifications.
type WebPushSender struct {
	publicKey  string
	privateKey string
	subscriber string
	ttl        int
	client     webpush.HTTPClient
}

func NewWebPushSender(publicKey, privateKey, subscriber string, client webpush.HTTPClient) *WebPushSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebPushSender{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		ttl:        12 * 60 * 60,
		client:     client,
	}
}

func (s *WebPushSender) SendPush(ctx context.Context, ep domain.PushEndpoint, p Payload) error {
	if ep.Endpoint == "" || ep.P256dh == "" || ep.Auth == "" {
		return fmt.Errorf("incomplete web push subscription")
	}
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: ep.Endpoint,
		Keys: webpush.Keys{
			P256dh: ep.P256dh,
			Auth:   ep.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subscriber,
		TTL:             s.ttl,
		Urgency:         webpush.UrgencyNormal,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrEndpointGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %s", resp.Status)
	}
	return nil
}
