package model

// Contact is a raw row from the contact store, as returned by a list
// membership query. Subscription status is captured at query time.
type Contact struct {
	ID        int    `db:"id" json:"id"`
	Email     string `db:"email" json:"email"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Status    string `db:"status" json:"status"` // subscribed, unsubscribed, bounced
}

// Recipient is one roster entry. The roster is computed once at campaign
// start and is immutable for the life of the campaign.
type Recipient struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Subscribed bool   `json:"subscribed"`
}
