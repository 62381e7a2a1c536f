package event

// Topic names double as RabbitMQ queue names.
const (
	TopicBookingConfirmed = "booking.confirmed"
	TopicBookingExpired   = "booking.expired"
	TopicPaymentOrphaned  = "payment.orphaned"
	TopicShowAdded        = "show.added"
)

const (
	SourceWebhook = "webhook"
	SourcePoll    = "poll"
)
