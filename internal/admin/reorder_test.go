package admin

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/croix-presskit/presskit/internal/domain"
)

func identity(s string) string { return s }

func itemIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("item-%d", i)
	}
	return ids
}

func sortedCopy(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return out
}

func TestMoveItemEveryPairKeepsIDs(t *testing.T) {
	for n := 1; n <= 6; n++ {
		items := itemIDs(n)
		for from := 0; from < n; from++ {
			for to := 0; to < n; to++ {
				t.Run(fmt.Sprintf("n%d/%d->%d", n, from, to), func(t *testing.T) {
					before := slices.Clone(items)
					got, err := moveItem(items, from, to)
					require.NoError(t, err)
					assert.Equal(t, before, items, "input must not be modified")
					assert.Equal(t, sortedCopy(items), sortedCopy(got))
					assert.Equal(t, items[from], got[to])

					rest := slices.Delete(slices.Clone(got), to, to+1)
					want := slices.Delete(slices.Clone(items), from, from+1)
					assert.Equal(t, want, rest, "other items keep their relative order")
				})
			}
		}
	}
}

func TestMoveItemDragSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	items := itemIDs(8)
	for seq := 0; seq < 100; seq++ {
		order := slices.Clone(items)
		for step := 0; step < 1+rng.Intn(12); step++ {
			from, to := rng.Intn(len(order)), rng.Intn(len(order))
			moved := order[from]
			next, err := moveItem(order, from, to)
			require.NoError(t, err)
			require.Equal(t, moved, next[to], "sequence %d step %d", seq, step)
			order = next
		}
		require.Len(t, order, len(items))
		require.Equal(t, sortedCopy(items), sortedCopy(order), "sequence %d", seq)
	}
}

func TestMoveItemRejectsOutOfRange(t *testing.T) {
	items := itemIDs(3)
	for _, tc := range []struct{ from, to int }{{-1, 0}, {0, -1}, {3, 0}, {0, 3}} {
		_, err := moveItem(items, tc.from, tc.to)
		assert.ErrorIs(t, err, ErrInvalidOrder, "%d -> %d", tc.from, tc.to)
	}
	_, err := moveItem([]string{}, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestReorderByID(t *testing.T) {
	items := itemIDs(4)

	got, err := reorderByID(items, []string{"item-3", "item-1", "item-0", "item-2"}, identity)
	require.NoError(t, err)
	assert.Equal(t, []string{"item-3", "item-1", "item-0", "item-2"}, got)

	cases := map[string][]string{
		"unknown id":  {"item-3", "item-1", "item-0", "ghost"},
		"repeated id": {"item-3", "item-1", "item-1", "item-2"},
		"too few":     {"item-0", "item-1", "item-2"},
		"too many":    {"item-0", "item-1", "item-2", "item-3", "item-0"},
	}
	for name, ids := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reorderByID(items, ids, identity)
			assert.ErrorIs(t, err, ErrInvalidOrder)
		})
	}
}

func TestEditorDragKeepsGalleryIntact(t *testing.T) {
	editor, store := newTestEditor(t, nil, PolicyStrict)
	_, err := editor.Begin(SectionGallery)
	require.NoError(t, err)

	photoIDs := func(photos []domain.GalleryPhoto) []string {
		ids := make([]string, len(photos))
		for i, p := range photos {
			ids[i] = photoKey(p)
		}
		return ids
	}
	original := photoIDs(store.Snapshot().GalleryPhotos)
	require.NotEmpty(t, original)
	last := len(original) - 1

	var view View
	for _, step := range [][2]int{{0, last}, {last, 1}, {2, 0}, {1, 1}} {
		view, err = editor.Move(SectionGallery, step[0], step[1])
		require.NoError(t, err)
	}
	dragged := photoIDs(view.Draft.GalleryPhotos)
	assert.Equal(t, sortedCopy(original), sortedCopy(dragged))

	_, err = editor.SetOrder(SectionGallery, append(dragged[:1:1], dragged[:last]...))
	assert.ErrorIs(t, err, ErrInvalidOrder, "repeated id must be rejected")

	_, err = editor.Save(context.Background(), SectionGallery, SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, dragged, photoIDs(store.Snapshot().GalleryPhotos))
}
