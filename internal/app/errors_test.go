package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationError(t *testing.T) {
	base := errors.New("bad widget")
	err := NewOperationError("load", "main", base)

	assert.Equal(t, "load main: bad widget", err.Error())
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "load", NewOperationError("load", "", nil).Error())

	var nilErr *OperationError
	assert.Empty(t, nilErr.Error())
	assert.Nil(t, nilErr.Unwrap())
}

func TestComponentError(t *testing.T) {
	base := errors.New("refused")

	assert.Equal(t, "storage: start: refused", NewComponentError("storage", "start", base).Error())
	assert.Equal(t, "storage: refused", NewComponentError("storage", "", base).Error())
	assert.Equal(t, "storage: start", NewComponentError("storage", "start", nil).Error())
	assert.Equal(t, "storage", NewComponentError("storage", "", nil).Error())
	assert.ErrorIs(t, NewComponentError("storage", "start", base), base)
}

func TestErrorList(t *testing.T) {
	var list ErrorList
	assert.NoError(t, list.AsError())

	list.Add(nil)
	assert.Equal(t, 0, list.Len())

	first := errors.New("first")
	second := errors.New("second")
	list.Add(first)
	assert.Equal(t, "first", list.Error())

	list.Add(second)
	err := list.AsError()
	assert.Equal(t, "2 errors: first: first", err.Error())
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)

	errs := list.Errors()
	errs[0] = nil
	assert.Equal(t, first, list.Errors()[0])
}
