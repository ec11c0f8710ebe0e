package dispatch

import (
	"context"
	"testing"

	"github.com/ValentinKolb/dCRUD/lib/mapper"
	"github.com/stretchr/testify/assert"
)

func TestOpString(t *testing.T) {
	assert.Equal(t, "read_list", OpReadList.String())
	assert.Equal(t, "read_by_id", OpReadByID.String())
	assert.Equal(t, "create", OpCreate.String())
	assert.Equal(t, "update", OpUpdate.String())
	assert.Equal(t, "delete_by_id", OpDeleteByID.String())
	assert.Equal(t, "unknown", Op(0).String())
}

func TestCommandFail(t *testing.T) {
	list, listRx := NewReadList[string, int]()
	read, readRx := NewReadByID[string, int]("a")
	create, createRx := NewCreate[string, int](1)
	update, updateRx := NewUpdate[string, int](2)
	del, delRx := NewDeleteByID[string, int]("b")

	cmds := []Command[string, int]{list, read, create, update, del}
	ops := []Op{OpReadList, OpReadByID, OpCreate, OpUpdate, OpDeleteByID}
	for i, cmd := range cmds {
		assert.Equal(t, ops[i], cmd.Op())
		assert.False(t, cmd.settled())
		assert.True(t, cmd.Fail(mapper.ErrConflict))
		assert.True(t, cmd.settled())
		assert.False(t, cmd.Fail(mapper.ErrConflict))
	}

	ctx := context.Background()
	_, err := listRx.Await(ctx)
	assert.ErrorIs(t, err, mapper.ErrConflict)
	for _, rx := range []*ReplyReceiver[int]{readRx, createRx, updateRx, delRx} {
		_, err := rx.Await(ctx)
		assert.ErrorIs(t, err, mapper.ErrConflict)
	}

	assert.Equal(t, "a", read.ID)
	assert.Equal(t, 1, create.Data)
	assert.Equal(t, 2, update.Data)
	assert.Equal(t, "b", del.ID)
}
