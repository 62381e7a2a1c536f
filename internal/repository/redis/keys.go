package redisrepo

import "fmt"

// keyspace namespaces every key this service writes so several
// environments can share one Redis.
type keyspace string

func (k keyspace) show(id string) string {
	return fmt.Sprintf("%s:show:%s", k, id)
}

func (k keyspace) showSeats(id string) string {
	return fmt.Sprintf("%s:show:%s:seats", k, id)
}

func (k keyspace) showsByStart() string {
	return fmt.Sprintf("%s:shows", k)
}

func (k keyspace) booking(id string) string {
	return fmt.Sprintf("%s:booking:%s", k, id)
}

func (k keyspace) userBookings(uID string) string {
	return fmt.Sprintf("%s:user:%s:bookings", k, uID)
}

func (k keyspace) pendingBookings() string {
	return fmt.Sprintf("%s:bookings:pending", k)
}

func (k keyspace) stats() string {
	return fmt.Sprintf("%s:stats", k)
}

func (k keyspace) jobsScheduled() string {
	return fmt.Sprintf("%s:jobs:expiry:scheduled", k)
}

func (k keyspace) jobsProcessing() string {
	return fmt.Sprintf("%s:jobs:expiry:processing", k)
}

func (k keyspace) jobsPayload() string {
	return fmt.Sprintf("%s:jobs:expiry:payload", k)
}
