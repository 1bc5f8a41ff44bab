package models

import (
	ledger "amicable/internal/ledger/models"
	"amicable/pkg/domain"
)

// StatementView is a statement with its evidence and ledger snapshot.
type StatementView struct {
	*Statement
	Phase     Phase             `json:"phase"`
	Sketch    *Sketch           `json:"sketch"`
	ImageIDs  []domain.ImageID  `json:"image_ids"`
	Vehicle   *ledger.Vehicle   `json:"vehicle,omitempty"`
	Insurance *ledger.Insurance `json:"insurance,omitempty"`
}

// AccidentView is the read model returned to callers.
//
// A joined view (Joined=true) lists every statement and invite. A viewer who
// is only invited gets Joined=false, the accident fields and their own
// invites; Statements is empty.
type AccidentView struct {
	*Accident
	Joined             bool               `json:"joined"`
	PrimaryStatementID domain.StatementID `json:"primary_statement_id,omitempty"`
	Statements         []*StatementView   `json:"statements"`
	Invites            []*TemporaryDriver `json:"temporary_drivers"`
}

// PrimaryStatement returns the lowest statement id, the only holder allowed
// to admit or remove parties. Zero when the list is empty.
func PrimaryStatement(statements []*Statement) domain.StatementID {
	var primary domain.StatementID
	for _, st := range statements {
		if primary == 0 || st.ID < primary {
			primary = st.ID
		}
	}
	return primary
}

// HolderOf returns the statement owned by userID, or nil.
func HolderOf(statements []*Statement, userID domain.UserID) *Statement {
	for _, st := range statements {
		if st.UserID == userID {
			return st
		}
	}
	return nil
}
