package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestBaseScopesConnectionToContext(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	base := NewBase(db)

	assert.Same(t, db, base.DB(nil))

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	scoped := base.DB(ctx)
	require.NotNil(t, scoped)
	assert.NotSame(t, db, scoped)
	assert.Equal(t, "v", scoped.Statement.Context.Value(key{}))
}
