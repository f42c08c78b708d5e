package domain

import "time"

// PendingRating is a locally cached score that has not been submitted yet.
type PendingRating struct {
	Poll      string
	EntityA   string
	EntityB   string
	Criterion string
	Score     int
	UpdatedAt time.Time
}

// PendingKey addresses one pending rating. Stored keys are canonical: EntityA
// sorts before EntityB.
type PendingKey struct {
	Poll      string
	EntityA   string
	EntityB   string
	Criterion string
}

// String renders the key as poll/entityA/entityB/criterion.
func (k PendingKey) String() string {
	return k.Poll + "/" + k.EntityA + "/" + k.EntityB + "/" + k.Criterion
}
