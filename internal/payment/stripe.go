// internal/payment/stripe.go
package payment

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/checkout/session"
	"github.com/stripe/stripe-go/v72/webhook"

	"diet-planner/config"
)

var ErrWebhookNotConfigured = errors.New("webhook secret is not configured")

type StripeClient struct {
	secretKey     string
	webhookSecret string
	priceID       string
	amount        int64
	currency      string
}

func NewStripeClient(cfg config.StripeConfig) *StripeClient {
	stripe.Key = cfg.SecretKey

	return &StripeClient{
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookKey,
		priceID:       cfg.PriceID,
		amount:        cfg.Amount,
		currency:      cfg.Currency,
	}
}

// Price returns the amount in minor units and its currency, as recorded
// in the payments table.
func (s *StripeClient) Price() (int64, string) {
	return s.amount, s.currency
}

// CreateCheckoutSession returns the session ID and the hosted checkout URL.
func (s *StripeClient) CreateCheckoutSession(userID int64, successURL, cancelURL string) (string, string, error) {
	if stripe.Key != s.secretKey {
		stripe.Key = s.secretKey
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(strconv.FormatInt(userID, 10)),
	}

	sess, err := session.New(params)
	if err != nil {
		return "", "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	return sess.ID, sess.URL, nil
}

func (s *StripeClient) VerifyWebhookSignature(payload []byte, sig string) (stripe.Event, error) {
	if s.webhookSecret == "" {
		return stripe.Event{}, ErrWebhookNotConfigured
	}
	return webhook.ConstructEvent(payload, sig, s.webhookSecret)
}
