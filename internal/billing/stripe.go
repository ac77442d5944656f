package billing

import (
	"context"
	"errors"
	"net/http"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// StripeProvider reads subscription status from Stripe.
type StripeProvider struct {
	api *client.API
}

func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{api: client.New(secretKey, nil)}
}

// NewStripeProviderWithBackends allows pointing the client at another API base.
func NewStripeProviderWithBackends(secretKey string, backends *stripe.Backends) *StripeProvider {
	return &StripeProvider{api: client.New(secretKey, backends)}
}

func (p *StripeProvider) GetExternalSubscriptionStatus(ctx context.Context, ref string) (ExternalStatus, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := p.api.Subscriptions.Get(ref, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && (se.Code == stripe.ErrorCodeResourceMissing || se.HTTPStatusCode == http.StatusNotFound) {
			return "", ErrSubscriptionNotFound
		}
		return "", err
	}
	return ExternalStatus(sub.Status), nil
}
