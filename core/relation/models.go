package relation

import (
	"time"

	"github.com/trezcool/shule/core"
)

type (
	// ParentInvite is a single-use code issued by a student for a parent email.
	// Accepted is one-way: once flipped the code is dead and the find-for-accept
	// lookup excludes it.
	ParentInvite struct {
		ID          string    `json:"id"`
		StudentID   string    `json:"student_id"`
		ParentEmail string    `json:"parent_email"`
		InviteCode  string    `json:"invite_code"`
		Accepted    bool      `json:"accepted"`
		CreatedAt   time.Time `json:"created_at"` // UTC
	}

	// ParentStudentRelation is an accepted link: the parent sees the student's
	// records and receives their notifications. Directional; the student holds
	// no view of their parents.
	ParentStudentRelation struct {
		ID        string    `json:"id"`
		ParentID  string    `json:"parent_id"`
		StudentID string    `json:"student_id"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}
)

type NewInvite struct {
	ParentEmail string `json:"parent_email" validate:"required,email"`
}

func (ni *NewInvite) Validate() error {
	ni.ParentEmail = core.CleanString(ni.ParentEmail, true /* lower */)
	return core.Validate.Struct(ni)
}

type AcceptInvite struct {
	InviteCode string `json:"invite_code" validate:"required"`
}

func (ai *AcceptInvite) Validate() error {
	ai.InviteCode = core.CleanString(ai.InviteCode, true /* lower */)
	return core.Validate.Struct(ai)
}
