package reservations

const TopicReservationEvents = "restaurant.reservation.events"

// Partition key = reservation_id, urutan event per reservasi terjaga.
func PartitionKey(reservationID string) []byte { return []byte(reservationID) }
