package bot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v72"

	"diet-planner/internal/db"
)

const maxWebhookBytes = 64 << 10

// HandleStripeWebhook resumes plan generation once a checkout completes.
func (t *TelegramBot) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if t.checkout == nil {
		http.Error(w, "Webhook not configured", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		t.logger.Errorw("Failed to read webhook body", "error", err)
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		t.logger.Warn("Missing Stripe signature header")
		http.Error(w, "Missing signature", http.StatusBadRequest)
		return
	}

	event, err := t.checkout.VerifyWebhookSignature(body, signature)
	if err != nil {
		t.logger.Errorw("Failed to verify webhook signature", "error", err)
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			t.logger.Errorw("Failed to parse checkout session", "error", err)
			http.Error(w, "Failed to parse event data", http.StatusBadRequest)
			return
		}

		userID, err := strconv.ParseInt(session.ClientReferenceID, 10, 64)
		if err != nil {
			t.logger.Errorw("Invalid client reference ID", "error", err, "session_id", session.ID)
			http.Error(w, "Invalid client reference ID", http.StatusBadRequest)
			return
		}

		// Generation outlives the webhook request.
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.handlePaymentSuccess(userID, session.ID)
		}()
		t.logger.Infow("Payment processing started", "user_id", userID, "session_id", session.ID)

	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			t.logger.Errorw("Failed to parse payment intent", "error", err)
			break
		}
		t.logger.Warnw("Payment failed", "payment_id", intent.ID, "error", intent.LastPaymentError)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Webhook received"))
}

func (t *TelegramBot) handlePaymentSuccess(userID int64, sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), t.generateTimeout+time.Minute)
	defer cancel()

	user, err := t.store.GetUser(ctx, userID)
	if err != nil {
		t.logger.Errorw("Failed to get user data", "error", err, "user_id", userID)
		return
	}

	payment, err := t.store.GetPaymentByStripeID(ctx, sessionID)
	if err != nil {
		t.logger.Errorw("Failed to get payment record", "error", err, "session_id", sessionID)
		return
	}
	if payment.UserID != user.ID {
		t.logger.Errorw("Payment belongs to another user",
			"session_id", sessionID, "user_id", userID, "payment_user_id", payment.UserID)
		return
	}

	// Stripe may deliver the same event more than once; only the delivery
	// that completes the pending payment generates a plan.
	if err := t.store.CompletePayment(ctx, sessionID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			t.logger.Infow("Payment already processed", "session_id", sessionID)
			return
		}
		t.logger.Errorw("Failed to complete payment", "error", err, "session_id", sessionID)
		return
	}

	t.generate(ctx, user)
}
