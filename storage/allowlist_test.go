package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"argus/core"
)

func setupAllowlistStorage(t *testing.T) *AllowlistStorage {
	t.Helper()
	return NewAllowlistStorage(setupTestDB(t), zap.NewNop().Sugar())
}

func TestCreateEntry_RoundTrip(t *testing.T) {
	storage := setupAllowlistStorage(t)
	ctx := context.Background()
	expires := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	entry := &core.AllowlistEntry{
		EntryType:  core.SubjectIP,
		EntryValue: "10.0.0.1",
		Reason:     "office vpn egress",
		RuleID:     "brute_force_login",
		ExpiresAt:  &expires,
		CreatedBy:  "admin",
	}
	require.NoError(t, storage.CreateEntry(ctx, entry))
	assert.NotEmpty(t, entry.ID)

	entries, err := storage.GetEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, core.SubjectIP, got.EntryType)
	assert.Equal(t, "10.0.0.1", got.EntryValue)
	assert.Equal(t, "brute_force_login", got.RuleID)
	require.NotNil(t, got.ExpiresAt)
	assert.Equal(t, expires, *got.ExpiresAt)
	assert.Equal(t, "admin", got.CreatedBy)
}

func TestCreateEntry_Invalid(t *testing.T) {
	storage := setupAllowlistStorage(t)
	ctx := context.Background()

	testCases := []struct {
		name  string
		entry core.AllowlistEntry
	}{
		{"bad type", core.AllowlistEntry{EntryType: "hostname", EntryValue: "x", Reason: "r"}},
		{"missing value", core.AllowlistEntry{EntryType: core.SubjectIP, Reason: "r"}},
		{"missing reason", core.AllowlistEntry{EntryType: core.SubjectActor, EntryValue: "svc"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := storage.CreateEntry(ctx, &tc.entry)
			assert.ErrorIs(t, err, core.ErrInvalidAllowlistEntry)
		})
	}

	entries, err := storage.GetEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries, "invalid entries are never persisted")
}

func TestActiveEntries_ExcludesExpired(t *testing.T) {
	storage := setupAllowlistStorage(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	permanent := &core.AllowlistEntry{EntryType: core.SubjectIP, EntryValue: "10.0.0.1", Reason: "vpn"}
	expired := &core.AllowlistEntry{EntryType: core.SubjectIP, EntryValue: "10.0.0.2", Reason: "old", ExpiresAt: &past}
	current := &core.AllowlistEntry{EntryType: core.SubjectActor, EntryValue: "svc-backup", Reason: "batch", ExpiresAt: &future}
	for _, e := range []*core.AllowlistEntry{permanent, expired, current} {
		require.NoError(t, storage.CreateEntry(ctx, e))
	}

	active, err := storage.ActiveEntries(ctx, now)
	require.NoError(t, err)
	require.Len(t, active, 2)
	values := []string{active[0].EntryValue, active[1].EntryValue}
	assert.Contains(t, values, "10.0.0.1")
	assert.Contains(t, values, "svc-backup")

	// Expired entries stay listable for audit.
	all, err := storage.GetEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteEntry(t *testing.T) {
	storage := setupAllowlistStorage(t)
	ctx := context.Background()

	entry := &core.AllowlistEntry{EntryType: core.SubjectIP, EntryValue: "10.0.0.1", Reason: "vpn"}
	require.NoError(t, storage.CreateEntry(ctx, entry))

	require.NoError(t, storage.DeleteEntry(ctx, entry.ID))

	entries, err := storage.GetEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.ErrorIs(t, storage.DeleteEntry(ctx, entry.ID), ErrAllowlistEntryNotFound)
}
