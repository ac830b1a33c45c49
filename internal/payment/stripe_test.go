package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"

	"diet-planner/config"
)

func sign(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func testClient(webhookKey string) *StripeClient {
	return NewStripeClient(config.StripeConfig{
		SecretKey:  "sk_test_123",
		WebhookKey: webhookKey,
		PriceID:    "price_123",
		Amount:     499,
		Currency:   "eur",
	})
}

func TestVerifyWebhookSignature(t *testing.T) {
	const secret = "whsec_test"
	payload := []byte(fmt.Sprintf(
		`{"id":"evt_1","object":"event","type":"checkout.session.completed","api_version":%q,"data":{"object":{"id":"cs_1","client_reference_id":"42"}}}`,
		stripe.APIVersion))

	c := testClient(secret)

	event, err := c.VerifyWebhookSignature(payload, sign(payload, secret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.EqualValues(t, "checkout.session.completed", event.Type)

	_, err = c.VerifyWebhookSignature(payload, sign(payload, "whsec_other", time.Now()))
	assert.Error(t, err)

	_, err = c.VerifyWebhookSignature(payload, sign(payload, secret, time.Now().Add(-time.Hour)))
	assert.Error(t, err)
}

func TestVerifyWebhookWithoutSecret(t *testing.T) {
	_, err := testClient("").VerifyWebhookSignature([]byte(`{}`), "t=1,v1=00")
	assert.ErrorIs(t, err, ErrWebhookNotConfigured)
}

func TestPrice(t *testing.T) {
	amount, currency := testClient("").Price()
	assert.Equal(t, int64(499), amount)
	assert.Equal(t, "eur", currency)
	assert.Equal(t, "sk_test_123", stripe.Key)
}
