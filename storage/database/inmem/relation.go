package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/relation"
)

type relationRepository struct {
	db *DB
}

var _ relation.Repository = (*relationRepository)(nil) // interface compliance check

func NewRelationRepository(db *DB) *relationRepository {
	return &relationRepository{db: db}
}

func (repo *relationRepository) CreateInvite(_ context.Context, inv relation.ParentInvite) (relation.ParentInvite, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	inv.ID = uuid.New().String()
	repo.db.invites[inv.ID] = &inv
	return inv, nil
}

func (repo *relationRepository) AcceptInvite(_ context.Context, code string) (relation.ParentInvite, error) {
	// find + flip under the write lock so racing accepts see at most one winner
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, inv := range repo.db.invites {
		if inv.InviteCode == code && !inv.Accepted {
			inv.Accepted = true
			return *inv, nil
		}
	}
	return relation.ParentInvite{}, relation.ErrNotFound
}

func (repo *relationRepository) CreateRelation(_ context.Context, rel relation.ParentStudentRelation) (relation.ParentStudentRelation, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rel.ID = uuid.New().String()
	repo.db.relations[rel.ID] = &rel
	return rel, nil
}

func (repo *relationRepository) RelationExists(_ context.Context, parentID, studentID string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, rel := range repo.db.relations {
		if rel.ParentID == parentID && rel.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *relationRepository) FilterRelationsByParent(_ context.Context, parentID string) ([]relation.ParentStudentRelation, error) {
	return repo.filterRelations(func(rel *relation.ParentStudentRelation) bool { return rel.ParentID == parentID })
}

func (repo *relationRepository) FilterRelationsByStudent(_ context.Context, studentID string) ([]relation.ParentStudentRelation, error) {
	return repo.filterRelations(func(rel *relation.ParentStudentRelation) bool { return rel.StudentID == studentID })
}

func (repo *relationRepository) filterRelations(match func(*relation.ParentStudentRelation) bool) ([]relation.ParentStudentRelation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rels := make([]relation.ParentStudentRelation, 0)
	for _, rel := range repo.db.relations {
		if match(rel) {
			rels = append(rels, *rel)
		}
	}
	sort.Slice(rels, func(i, j int) bool { return rels[i].CreatedAt.Before(rels[j].CreatedAt) })
	return rels, nil
}
