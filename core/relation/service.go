package relation

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("invalid or expired invite code")
	ErrAlreadyConnected = errors.New("parent is already connected")
	ErrAccessDenied     = errors.New("access denied")
)

type (
	Repository interface {
		CreateInvite(ctx context.Context, inv ParentInvite) (ParentInvite, error)
		// AcceptInvite atomically flips the single invite matching
		// (code, accepted=false) and returns it; ErrNotFound when no unconsumed
		// invite matches. Two racing accepts of the same code see one winner.
		AcceptInvite(ctx context.Context, code string) (ParentInvite, error)

		CreateRelation(ctx context.Context, rel ParentStudentRelation) (ParentStudentRelation, error)
		RelationExists(ctx context.Context, parentID, studentID string) (bool, error)
		FilterRelationsByParent(ctx context.Context, parentID string) ([]ParentStudentRelation, error)
		FilterRelationsByStudent(ctx context.Context, studentID string) ([]ParentStudentRelation, error)
	}

	// UserGetter resolves the target parent account, if it exists yet.
	UserGetter interface {
		GetByEmail(ctx context.Context, email string) (user.User, error)
	}

	Service struct {
		repo    Repository
		users   UserGetter
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, users UserGetter, mailSvc core.EmailService) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		mailSvc: mailSvc,
	}
}

// Invite issues a new single-use code for ni.ParentEmail and mails it out.
// A registered parent already holding an accepted relation to this student is
// a conflict; a still-pending invite to the same email is not, re-sending
// mints a second, independent code.
func (svc *Service) Invite(ctx context.Context, principal user.User, ni NewInvite) (ParentInvite, error) {
	if !principal.IsStudent() {
		return ParentInvite{}, ErrAccessDenied
	}

	parent, err := svc.users.GetByEmail(ctx, ni.ParentEmail)
	if err == nil && parent.IsParent() {
		exists, err := svc.repo.RelationExists(ctx, parent.ID, principal.ID)
		if err != nil {
			return ParentInvite{}, errors.Wrap(err, "checking existing relation")
		}
		if exists {
			return ParentInvite{}, ErrAlreadyConnected
		}
	} else if err != nil && errors.Cause(err) != user.ErrNotFound {
		return ParentInvite{}, errors.Wrap(err, "finding parent by email")
	}

	inv, err := svc.repo.CreateInvite(ctx, ParentInvite{
		StudentID:   principal.ID,
		ParentEmail: ni.ParentEmail,
		InviteCode:  makeInviteCode(),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return ParentInvite{}, errors.Wrap(err, "creating invite")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: inv.ParentEmail}},
		Subject: fmt.Sprintf("Invitation from %s", principal.Name),
		Body: fmt.Sprintf(
			"You've been invited by %s to track their school work on %s. Use invite code: %s",
			principal.Name, core.Conf.AppName, inv.InviteCode,
		),
	})
	return inv, nil
}

// Accept consumes code and establishes the accepted relation. The consuming
// flip is a single conditional update; a consumed or unknown code is ErrNotFound.
// At most one relation exists per (parent, student) pair: accepting a second
// pending code for an already linked pair spends the code and returns the
// existing relation.
func (svc *Service) Accept(ctx context.Context, principal user.User, code string) (ParentStudentRelation, error) {
	if !principal.IsParent() {
		return ParentStudentRelation{}, ErrAccessDenied
	}

	inv, err := svc.repo.AcceptInvite(ctx, core.CleanString(code, true /* lower */))
	if err != nil {
		return ParentStudentRelation{}, err
	}

	rels, err := svc.repo.FilterRelationsByParent(ctx, principal.ID)
	if err != nil {
		return ParentStudentRelation{}, errors.Wrap(err, "listing existing relations")
	}
	for _, rel := range rels {
		if rel.StudentID == inv.StudentID {
			return rel, nil
		}
	}

	rel, err := svc.repo.CreateRelation(ctx, ParentStudentRelation{
		ParentID:  principal.ID,
		StudentID: inv.StudentID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return ParentStudentRelation{}, errors.Wrap(err, "creating relation")
	}
	return rel, nil
}

// StudentsVisibleTo returns the student IDs with an accepted relation to
// parentID; empty when none.
func (svc *Service) StudentsVisibleTo(ctx context.Context, parentID string) ([]string, error) {
	rels, err := svc.repo.FilterRelationsByParent(ctx, parentID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rels))
	for _, rel := range rels {
		ids = append(ids, rel.StudentID)
	}
	return ids, nil
}

// ParentsOf returns the parent IDs with an accepted relation to studentID;
// empty is the common case, never an error.
func (svc *Service) ParentsOf(ctx context.Context, studentID string) ([]string, error) {
	rels, err := svc.repo.FilterRelationsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rels))
	for _, rel := range rels {
		ids = append(ids, rel.ParentID)
	}
	return ids, nil
}
