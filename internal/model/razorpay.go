package model

// Payloads delivered by Razorpay webhooks. Field names follow the gateway's
// wire format, not ours.

type RazorpayPaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Method           string `json:"method"`
	Email            string `json:"email"`
	Contact          string `json:"contact"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

type RazorpayPaymentWrapper struct {
	Entity RazorpayPaymentEntity `json:"entity"`
}

type RazorpayWebhookPayload struct {
	Payment RazorpayPaymentWrapper `json:"payment"`
}

type RazorpayWebhookEvent struct {
	// Razorpay sends the event id in the x-razorpay-event-id header, not
	// the body; it is filled in by the handler.
	EventID   string                 `json:"-"`
	Entity    string                 `json:"entity"`
	Event     string                 `json:"event"`
	CreatedAt int64                  `json:"created_at"`
	Payload   RazorpayWebhookPayload `json:"payload"`
}
