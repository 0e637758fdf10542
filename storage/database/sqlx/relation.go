package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/relation"
)

type relationRepository struct {
	db *sqlx.DB
}

var _ relation.Repository = (*relationRepository)(nil) // interface compliance check

func NewRelationRepository(db *sqlx.DB) *relationRepository {
	return &relationRepository{db: db}
}

type (
	inviteRow struct {
		ID          string    `db:"id"`
		StudentID   string    `db:"student_id"`
		ParentEmail string    `db:"parent_email"`
		InviteCode  string    `db:"invite_code"`
		Accepted    bool      `db:"accepted"`
		CreatedAt   time.Time `db:"created_at"`
	}

	relationRow struct {
		ID        string    `db:"id"`
		ParentID  string    `db:"parent_id"`
		StudentID string    `db:"student_id"`
		CreatedAt time.Time `db:"created_at"`
	}
)

func (r inviteRow) unpack() relation.ParentInvite {
	return relation.ParentInvite{
		ID:          r.ID,
		StudentID:   r.StudentID,
		ParentEmail: r.ParentEmail,
		InviteCode:  r.InviteCode,
		Accepted:    r.Accepted,
		CreatedAt:   r.CreatedAt,
	}
}

func (r relationRow) unpack() relation.ParentStudentRelation {
	return relation.ParentStudentRelation{
		ID:        r.ID,
		ParentID:  r.ParentID,
		StudentID: r.StudentID,
		CreatedAt: r.CreatedAt,
	}
}

func (repo relationRepository) CreateInvite(ctx context.Context, inv relation.ParentInvite) (relation.ParentInvite, error) {
	inv.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO parent_invite (id, student_id, parent_email, invite_code, accepted, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		inv.ID, inv.StudentID, inv.ParentEmail, inv.InviteCode, inv.Accepted, inv.CreatedAt,
	)
	if err != nil {
		return relation.ParentInvite{}, errors.Wrap(err, "inserting invite")
	}
	return inv, nil
}

func (repo relationRepository) AcceptInvite(ctx context.Context, code string) (relation.ParentInvite, error) {
	// single conditional update: of two racing accepts, exactly one gets the row back
	var row inviteRow
	err := repo.db.GetContext(ctx, &row,
		`UPDATE parent_invite SET accepted = TRUE WHERE invite_code = $1 AND NOT accepted RETURNING *`, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return relation.ParentInvite{}, relation.ErrNotFound
		}
		return relation.ParentInvite{}, errors.Wrap(err, "consuming invite")
	}
	return row.unpack(), nil
}

func (repo relationRepository) CreateRelation(ctx context.Context, rel relation.ParentStudentRelation) (relation.ParentStudentRelation, error) {
	rel.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO parent_student_relation (id, parent_id, student_id, created_at) VALUES ($1, $2, $3, $4)`,
		rel.ID, rel.ParentID, rel.StudentID, rel.CreatedAt,
	)
	if err != nil {
		return relation.ParentStudentRelation{}, errors.Wrap(err, "inserting relation")
	}
	return rel, nil
}

func (repo relationRepository) RelationExists(ctx context.Context, parentID, studentID string) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM parent_student_relation WHERE parent_id = $1 AND student_id = $2)`,
		parentID, studentID,
	)
	if err != nil {
		return false, errors.Wrap(err, "checking relation")
	}
	return exists, nil
}

func (repo relationRepository) FilterRelationsByParent(ctx context.Context, parentID string) ([]relation.ParentStudentRelation, error) {
	return repo.filterRelations(ctx, `SELECT * FROM parent_student_relation WHERE parent_id = $1 ORDER BY created_at`, parentID)
}

func (repo relationRepository) FilterRelationsByStudent(ctx context.Context, studentID string) ([]relation.ParentStudentRelation, error) {
	return repo.filterRelations(ctx, `SELECT * FROM parent_student_relation WHERE student_id = $1 ORDER BY created_at`, studentID)
}

func (repo relationRepository) filterRelations(ctx context.Context, query, arg string) ([]relation.ParentStudentRelation, error) {
	var rows []relationRow
	if err := repo.db.SelectContext(ctx, &rows, query, arg); err != nil {
		return nil, errors.Wrap(err, "filtering relations")
	}
	rels := make([]relation.ParentStudentRelation, 0, len(rows))
	for _, row := range rows {
		rels = append(rels, row.unpack())
	}
	return rels, nil
}
