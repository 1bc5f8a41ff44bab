package audit

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEventCategory(t *testing.T) {
	assert.Equal(t, CategoryCompliance, EventStatementCompleted.Category())
	assert.Equal(t, CategorySecurity, EventDriverAdmitted.Category())
	assert.Equal(t, CategoryOperations, EventType("unknown").Category())
}

func TestPrepare(t *testing.T) {
	e := Prepare(Event{Type: EventCaseClosed, AccidentID: 3})
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, CategoryCompliance, e.Category)
	assert.False(t, e.Timestamp.IsZero())

	id := uuid.New()
	again := Prepare(Event{ID: id, Type: EventCaseClosed})
	assert.Equal(t, id, again.ID, "existing ids are kept")
}
