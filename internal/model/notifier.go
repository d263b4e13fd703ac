package model

// Notifier announces listings that a run persisted for the first time.
type Notifier interface {
	Notify(listings []Listing) error
}
