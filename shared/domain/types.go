package domain

type (
	UserId   = string
	Username = string
	Password = string

	ThreadId    = string
	ThreadTitle = string

	ReplyId = string
	LikeId  = string
	Text    = string
)
