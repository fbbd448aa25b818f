package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRejectsMalformedDSN(t *testing.T) {
	pool, err := New(context.Background(), "postgres://%zz invalid")
	assert.Error(t, err)
	assert.Nil(t, pool)
}
