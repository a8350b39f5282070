package multierror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiError_Error(t *testing.T) {
	m := New[string]()
	m.Add("replica-1", errors.New("connection refused"))
	assert.Equal(t, "replica-1: connection refused", m.Error())

	m.Add("replica-2", errors.New("timeout"))
	assert.Contains(t, m.Error(), "replica-2: timeout")
	assert.Equal(t, 2, m.Len())
}

func TestMultiError_Get(t *testing.T) {
	m := New[string]()
	m.Add("replica-1", errors.New("connection refused"))

	err, ok := m.Get("replica-1")
	assert.True(t, ok)
	assert.EqualError(t, err, "connection refused")

	_, ok = m.Get("replica-2")
	assert.False(t, ok)
}

func TestMultiError_Combined(t *testing.T) {
	m := New[string]()
	assert.Nil(t, m.Combined())

	m.Add("replica-1", errors.New("timeout"))
	assert.NotNil(t, m.Combined())
	assert.Len(t, m.Unwrap(), 1)
}
