package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/ssiitsupport/SSI360V2/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestActor(t *testing.T) {
	assert.Equal(t, model.SystemActor, Actor(context.Background()))

	ctx := WithPrincipal(context.Background(), Principal{UserID: uuid.New(), Email: "admin@acme.com"})
	assert.Equal(t, "admin@acme.com", Actor(ctx))

	p, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "admin@acme.com", p.Email)
}
