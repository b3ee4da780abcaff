package model

import "strconv"

// EventsURI is the public listing path.
const EventsURI = "/events"

// EventURI returns the public path of a single event.
func EventURI(id int64) string {
	return EventsURI + "/" + strconv.FormatInt(id, 10)
}
