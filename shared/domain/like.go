package domain

import "time"

type TargetKind string

const (
	TargetThread TargetKind = "thread"
	TargetReply  TargetKind = "reply"
)

// LikeTarget names the single entity a like points at.
type LikeTarget struct {
	Kind TargetKind
	Id   string
}

func ThreadTarget(id ThreadId) LikeTarget {
	return LikeTarget{Kind: TargetThread, Id: id}
}

func ReplyTarget(id ReplyId) LikeTarget {
	return LikeTarget{Kind: TargetReply, Id: id}
}

func (t LikeTarget) Valid() bool {
	return t.Id != "" && (t.Kind == TargetThread || t.Kind == TargetReply)
}

type Like struct {
	Id        LikeId    `json:"id"`
	ThreadId  *ThreadId `json:"threadId"`
	ReplyId   *ReplyId  `json:"replyId"`
	CreatedBy UserId    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Target reports what the like points at. ok is false when the row breaks
// the rule that exactly one of ThreadId/ReplyId is set.
func (l Like) Target() (target LikeTarget, ok bool) {
	switch {
	case l.ThreadId != nil && l.ReplyId == nil:
		return ThreadTarget(*l.ThreadId), true
	case l.ReplyId != nil && l.ThreadId == nil:
		return ReplyTarget(*l.ReplyId), true
	default:
		return LikeTarget{}, false
	}
}
