package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metadirectory/src/core/domain"
)

func TestMemoryRepository_DomainCopies(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	require.NoError(t, r.CreateDomain(ctx, &domain.Domain{ID: "d1", Tags: []string{"a"}}))

	got, err := r.GetDomain(ctx, "d1")
	require.NoError(t, err)
	got.Tags[0] = "mutated"

	again, err := r.GetDomain(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again.Tags)
}

func TestMemoryRepository_UpdateDomain(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	beat := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, r.CreateDomain(ctx, &domain.Domain{ID: "d1", TimeOfLastHeartbeat: beat}))

	err := r.UpdateDomain(ctx, "d1", domain.ChangeSet{
		domain.FieldVersion:             "9",
		domain.FieldTags:                []string{"x"},
		domain.FieldTimeOfLastHeartbeat: beat.Add(-time.Minute),
	})
	require.NoError(t, err)

	d, err := r.GetDomain(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "9", d.Version)
	assert.Equal(t, []string{"x"}, d.Tags)
	assert.Equal(t, beat, d.TimeOfLastHeartbeat, "heartbeat never moves back")

	err = r.UpdateDomain(ctx, "missing", domain.ChangeSet{domain.FieldVersion: "1"})
	assert.True(t, domain.IsNotFound(err))
}

func TestMemoryRepository_DeleteDomain(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	require.NoError(t, r.CreateDomain(ctx, &domain.Domain{ID: "d1"}))

	require.NoError(t, r.DeleteDomain(ctx, "d1"))
	assert.True(t, domain.IsNotFound(r.DeleteDomain(ctx, "d1")))
	_, err := r.GetDomain(ctx, "d1")
	assert.True(t, domain.IsNotFound(err))
}

func TestMemoryRepository_PlaceIDsForDomain(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	for _, p := range []domain.Place{
		{ID: "p3", DomainID: "d1"},
		{ID: "p1", DomainID: "d1"},
		{ID: "p2", DomainID: "d2"},
	} {
		require.NoError(t, r.CreatePlace(ctx, &p))
	}

	var ids []string
	for id, err := range r.PlaceIDsForDomain(ctx, "d1") {
		require.NoError(t, err)
		// Deleting mid-iteration must not deadlock.
		require.NoError(t, r.DeletePlace(ctx, id))
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"p1", "p3"}, ids)

	_, err := r.GetPlace(ctx, "p2")
	assert.NoError(t, err)
	assert.True(t, domain.IsNotFound(r.DeletePlace(ctx, "p1")))
}

func TestMemoryRepository_AccountsAndTokens(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	require.NoError(t, r.CreateAccount(ctx, &domain.Account{ID: "a1", Username: "alice", Roles: []domain.AccountRole{domain.AccountRoleAdmin}}))
	require.NoError(t, r.CreateToken(ctx, &domain.AuthToken{Token: "t1", AccountID: "a1", Scope: domain.TokenScopeOwner}))

	tok, err := r.GetToken(ctx, "t1")
	require.NoError(t, err)
	acct, err := r.GetAccount(ctx, tok.AccountID)
	require.NoError(t, err)
	assert.True(t, acct.IsAdmin())

	require.NoError(t, r.CreateToken(ctx, &domain.AuthToken{Token: "t2", AccountID: "a1"}))
	tok, err = r.GetToken(ctx, "t2")
	require.NoError(t, err)
	assert.True(t, tok.Identifies(time.Now()))

	_, err = r.GetToken(ctx, "nope")
	assert.True(t, domain.IsNotFound(err))
	_, err = r.GetAccount(ctx, "nope")
	assert.True(t, domain.IsNotFound(err))
}
