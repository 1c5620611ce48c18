package domain

import "time"

type Reply struct {
	Id        ReplyId   `json:"id"`
	ThreadId  ThreadId  `json:"threadId"`
	Text      Text      `json:"text"`
	CreatedBy UserId    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type ReplyInput struct {
	ThreadId ThreadId `validate:"required"`
	Text     Text     `validate:"required,max=20000"`
}
