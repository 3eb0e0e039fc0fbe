package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/parley/engine/save"
	"github.com/nathoo/parley/engine/state"
	"github.com/nathoo/parley/types"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "sessions.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoad(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	sess := state.NewSession("alice")
	sess.Topic = "games"
	sess.Vars["colour"] = "blue"
	sess.Bot["mood"] = "happy"
	sess.Stars = []string{"rock"}
	sess.History = []types.Exchange{{Input: "play rock", Reply: "You picked rock."}}
	sess.TurnCount = 4

	require.NoError(t, st.Save(ctx, "slot1", sess))

	sd, err := st.Load(ctx, "slot1")
	require.NoError(t, err)
	assert.Equal(t, save.Version, sd.Version)
	assert.Equal(t, "alice", sd.ID)
	assert.Equal(t, "games", sd.Topic)
	assert.Equal(t, 4, sd.Turn)
	assert.Equal(t, map[string]string{"colour": "blue"}, sd.Vars)
	assert.Equal(t, map[string]string{"mood": "happy"}, sd.Bot)
	assert.Equal(t, sess.History, sd.History)

	restored := state.NewSession("bob")
	save.ApplySave(restored, sd)
	assert.Equal(t, "bob", restored.ID)
	assert.Equal(t, "games", restored.Topic)
}

func TestSave_Overwrites(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	sess := state.NewSession("alice")
	require.NoError(t, st.Save(ctx, "slot", sess))
	sess.Topic = "smalltalk"
	require.NoError(t, st.Save(ctx, "slot", sess))

	sd, err := st.Load(ctx, "slot")
	require.NoError(t, err)
	assert.Equal(t, "smalltalk", sd.Topic)
}

func TestLoad_NotFound(t *testing.T) {
	st := openStore(t)
	_, err := st.Load(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListDelete(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	for _, name := range []string{"b", "a", "c"} {
		require.NoError(t, st.Save(ctx, name, state.NewSession(name)))
	}
	names, err := st.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names)

	require.NoError(t, st.Delete(ctx, "b"))
	require.NoError(t, st.Delete(ctx, "missing"))
	names, err = st.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, names)
}

func TestSave_Errors(t *testing.T) {
	st := openStore(t)

	err := st.Save(context.Background(), "", state.NewSession("x"))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, st.Save(ctx, "x", state.NewSession("x")), context.Canceled)
	_, err = st.Load(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	st, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, st.Save(context.Background(), "keep", state.NewSession("k")))
	require.NoError(t, st.Close())

	st, err = Open(path, nil)
	require.NoError(t, err)
	defer st.Close()
	names, err := st.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, names)
}
