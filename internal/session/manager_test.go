package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entrepreneursim/internal/domain"
)

func TestGetWithMalformedIDStartsFreshSession(t *testing.T) {
	f := newFixture(t)

	for _, id := range []string{"", "not-a-uuid", "../../etc"} {
		s, created := f.manager.Get(id)
		assert.True(t, created, id)
		assert.NotEqual(t, id, s.ID())
		_, err := uuid.Parse(s.ID())
		assert.NoError(t, err)
		assert.False(t, s.Loading())
	}
}

func TestGetReturnsSameSession(t *testing.T) {
	f := newFixture(t)
	s := f.manager.New()

	again, created := f.manager.Get(s.ID())
	assert.False(t, created)
	assert.Same(t, s, again)
}

func TestRotateRetiresOldSession(t *testing.T) {
	f := newFixture(t)
	f.backend.AddUser("alice", "pw", domain.RoleStudent, decimal.Zero)
	ctx := context.Background()

	old := f.manager.New()
	require.True(t, old.Login(ctx, "alice", "pw").Success)
	old.AddFlash(FlashInfo, "carried")

	fresh := f.manager.Rotate(ctx, old)
	assert.NotEqual(t, old.ID(), fresh.ID())
	assert.Nil(t, old.User())
	assert.Nil(t, fresh.User())
	assert.Equal(t, []Flash{{Kind: FlashInfo, Message: "carried"}}, fresh.TakeFlashes())

	_, err := f.store.Get(ctx, old.ID())
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)

	// The retired id no longer maps to the old session.
	s, _ := f.manager.Get(old.ID())
	assert.NotSame(t, old, s)
}

func TestEvictIdleKeepsStoredCredential(t *testing.T) {
	f := newFixture(t)
	f.backend.AddUser("alice", "pw", domain.RoleStudent, decimal.Zero)
	now := time.Now()
	f.manager.opts.Now = func() time.Time { return now }
	ctx := context.Background()

	s := f.manager.New()
	require.True(t, s.Login(ctx, "alice", "pw").Success)
	busy := f.manager.New()
	done, _ := busy.Begin("purchase")
	defer done()

	now = now.Add(31 * time.Minute)
	assert.Equal(t, 1, f.manager.EvictIdle())
	assert.Equal(t, 1, f.manager.Len())

	restored, created := f.manager.Get(s.ID())
	assert.False(t, created)
	assert.NotSame(t, s, restored)
	require.NoError(t, restored.Resolve(ctx))
	assert.Equal(t, "alice", restored.User().Username)
}

func TestSweepRemovesExpiredCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expired := f.plant(t, "tok", time.Now().Add(-time.Minute))
	live := f.plant(t, "tok", time.Now().Add(time.Hour))

	require.NoError(t, f.manager.Sweep(ctx))

	_, err := f.store.Get(ctx, expired)
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
	_, err = f.store.Get(ctx, live)
	assert.NoError(t, err)
	assert.NoError(t, f.manager.Ping(ctx))
}
