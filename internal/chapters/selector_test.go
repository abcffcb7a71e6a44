package chapters

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/ScribeNest/internal/models"
)

func makeChapters(n int) []models.Chapter {
	out := make([]models.Chapter, n)
	for i := range out {
		out[i] = models.Chapter{Title: fmt.Sprintf("c%d", i), Content: fmt.Sprintf("内容%d", i)}
	}
	return out
}

func span(from, to int) []int {
	out := []int{}
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func TestApplyFirstNAscending(t *testing.T) {
	for _, n := range Presets {
		for _, l := range []int{1, 4, 12, 60} {
			s := New(makeChapters(l), Options{})
			require.NoError(t, s.ApplyFirstN(n))
			if diff := cmp.Diff(span(0, min(n, l)-1), s.Selected()); diff != "" {
				t.Errorf("n=%d l=%d (-want +got):\n%s", n, l, diff)
			}
			assert.True(t, s.AutoAssociate())
			assert.Equal(t, n, s.AutoAssociateCount())
		}
	}
}

func TestApplyFirstNDescending(t *testing.T) {
	for _, n := range Presets {
		for _, l := range []int{1, 4, 12, 60} {
			s := New(makeChapters(l), Options{Descending: true})
			require.NoError(t, s.ApplyFirstN(n))
			if diff := cmp.Diff(span(max(0, l-n), l-1), s.Selected()); diff != "" {
				t.Errorf("n=%d l=%d (-want +got):\n%s", n, l, diff)
			}
		}
	}
}

func TestApplyFirstNTwiceClears(t *testing.T) {
	s := New(makeChapters(12), Options{Descending: true})

	require.NoError(t, s.ApplyFirstN(5))
	assert.Equal(t, []int{7, 8, 9, 10, 11}, s.Selected())

	require.NoError(t, s.ApplyFirstN(5))
	assert.Empty(t, s.Selected())
	assert.Equal(t, 0, s.AutoAssociateCount())
	assert.False(t, s.AutoAssociate())
}

func TestApplyFirstNSwitchPreset(t *testing.T) {
	s := New(makeChapters(40), Options{})
	require.NoError(t, s.ApplyFirstN(5))
	require.NoError(t, s.ApplyFirstN(15))
	assert.Equal(t, span(0, 14), s.Selected())
	assert.Equal(t, 15, s.AutoAssociateCount())
}

func TestApplyFirstNRepeatClearsManualToggles(t *testing.T) {
	s := New(makeChapters(20), Options{})
	require.NoError(t, s.ApplyFirstN(5))
	require.NoError(t, s.Toggle(10))

	require.NoError(t, s.ApplyFirstN(5))
	assert.Empty(t, s.Selected())
}

func TestApplyFirstNEmptyListIsNoop(t *testing.T) {
	s := New(nil, Options{})
	require.NoError(t, s.ApplyFirstN(5))
	assert.Empty(t, s.Selected())
	assert.False(t, s.AutoAssociate())
	assert.Equal(t, 0, s.AutoAssociateCount())
}

func TestApplyFirstNRejectsUnknownPreset(t *testing.T) {
	s := New(makeChapters(10), Options{})
	err := s.ApplyFirstN(7)
	assert.ErrorIs(t, err, ErrInvalidPreset)
	assert.Empty(t, s.Selected())
}

func TestToggle(t *testing.T) {
	s := New(makeChapters(5), Options{Selected: []int{1, 3, 99}})
	assert.Equal(t, []int{1, 3}, s.Selected())

	before := s.Selected()
	require.NoError(t, s.Toggle(2))
	require.NoError(t, s.Toggle(2))
	assert.Equal(t, before, s.Selected())

	require.NoError(t, s.Toggle(1))
	assert.Equal(t, []int{3}, s.Selected())

	assert.ErrorIs(t, s.Toggle(5), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.Toggle(-1), ErrIndexOutOfRange)
	assert.Equal(t, []int{3}, s.Selected())
}

func TestToggleKeepsAutoFlags(t *testing.T) {
	s := New(makeChapters(10), Options{})
	require.NoError(t, s.ApplyFirstN(5))
	require.NoError(t, s.Toggle(0))

	assert.True(t, s.AutoAssociate())
	assert.Equal(t, 5, s.AutoAssociateCount())
	assert.Equal(t, []int{1, 2, 3, 4}, s.Selected())
}

func TestSetAutoAssociate(t *testing.T) {
	s := New(makeChapters(10), Options{})
	require.NoError(t, s.ApplyFirstN(5))

	s.SetAutoAssociate(false)
	assert.Equal(t, 0, s.AutoAssociateCount())
	assert.Equal(t, span(0, 4), s.Selected())

	s.ToggleAutoAssociate()
	assert.True(t, s.AutoAssociate())
	assert.Equal(t, 0, s.AutoAssociateCount())
	assert.Equal(t, span(0, 4), s.Selected())
}

func TestConfirmClosesDialog(t *testing.T) {
	s := New(makeChapters(12), Options{Descending: true})
	require.NoError(t, s.ApplyFirstN(5))

	d := s.Confirm()
	assert.Equal(t, Decision{SelectedIndices: []int{7, 8, 9, 10, 11}, AutoAssociate: true, AutoAssociateCount: 5}, d)
	assert.True(t, s.Closed())
	assert.ErrorIs(t, s.Toggle(0), ErrClosed)
	assert.ErrorIs(t, s.ApplyFirstN(15), ErrClosed)
}

func TestRowsFollowDisplayOrder(t *testing.T) {
	chs := makeChapters(3)
	chs[1].Content = ""
	chs[2].Content = strings.Repeat("字", 61)

	s := New(chs, Options{Descending: true, Selected: []int{0}})
	rows := s.Rows()
	require.Len(t, rows, 3)

	assert.Equal(t, 2, rows[0].Index)
	assert.Equal(t, "第 3 章", rows[0].Label)
	assert.Equal(t, strings.Repeat("字", 60)+"...", rows[0].Preview)
	assert.Equal(t, "(无内容)", rows[1].Preview)
	assert.Equal(t, 0, rows[2].Index)
	assert.True(t, rows[2].Selected)
	assert.Equal(t, "已选择: 1/3", s.Summary())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short"))
	exact := strings.Repeat("a", 60)
	assert.Equal(t, exact, Preview(exact))
}
