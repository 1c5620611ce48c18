package domain

import (
	"time"
)

type Thread struct {
	Id        ThreadId    `json:"id"`
	Title     ThreadTitle `json:"title"`
	Text      *Text       `json:"text"`
	CreatedBy UserId      `json:"createdBy"`
	CreatedAt time.Time   `json:"createdAt"`
}

type ThreadInput struct {
	Title ThreadTitle `validate:"required,max=300"`
	Text  *Text       `validate:"omitempty,max=20000"`
}

type SortOrder string

const (
	SortLatest SortOrder = "LATEST"
	SortOldest SortOrder = "OLDEST"
)

func (s SortOrder) Valid() bool {
	return s == SortLatest || s == SortOldest
}

const DefaultPageLimit = 10

// Page is an offset/limit window over an ordered listing.
type Page struct {
	Offset int
	Limit  int
}

func DefaultPage() Page {
	return Page{Offset: 0, Limit: DefaultPageLimit}
}
