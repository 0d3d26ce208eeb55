package views

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/bugtrack/internal/api"
	"github.com/tgienger/bugtrack/internal/category"
	"github.com/tgienger/bugtrack/internal/models"
)

func openBug(t *testing.T, client *fakeClient, store *fakeStore) *BugView {
	t.Helper()
	if client.bug == nil {
		bug := bugIn(42, 0, models.PriorityMedium)
		bug.Title = "Segfault in ALTER TABLE"
		client.bug = &bug
	}
	v := NewBugView(client, store, store, models.User{ID: 9, Name: "Alice"}, 42, testStyles(), nil)
	v.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	v.Update(v.load()())
	require.NotNil(t, v.bug)
	return v
}

func TestBugLoadToleratesMissingSummary(t *testing.T) {
	client := &fakeClient{summaryErr: api.NewError(api.CodeServerError, "no summary yet")}
	store := newFakeStore()

	v := openBug(t, client, store)

	assert.Equal(t, "no summary yet", v.summaryErr)
	assert.False(t, v.loading)
	assert.Empty(t, v.status)
}

func TestBugLoadFailsOnAuthError(t *testing.T) {
	bug := bugIn(42, 0, models.PriorityLow)
	client := &fakeClient{bug: &bug, summaryErr: api.NewError(api.CodeUnauthenticated, "expired")}
	v := NewBugView(client, nil, nil, models.User{}, 42, testStyles(), nil)

	msg := v.load()()

	failed, ok := msg.(bugFailedMsg)
	require.True(t, ok, "got %T", msg)
	_, cmd := v.Update(failed)
	require.NotNil(t, cmd)
	_, ok = cmd().(SessionExpired)
	assert.True(t, ok)
}

func TestBugLoadShowsNotFound(t *testing.T) {
	client := &fakeClient{bugErr: api.NewError(api.CodeNotFound, "Bug report not found")}
	v := NewBugView(client, nil, nil, models.User{}, 42, testStyles(), nil)

	_, cmd := v.Update(v.load()())

	assert.Nil(t, cmd)
	assert.Equal(t, "Bug report not found", v.status)
	assert.True(t, v.statusErr)
}

func TestOpeningBugRemembersIt(t *testing.T) {
	store := newFakeStore()

	openBug(t, &fakeClient{}, store)

	assert.Equal(t, []int64{42}, store.recorded)
	assert.Equal(t, recentKeep, store.pruned)
}

func TestBugDropsStaleLoad(t *testing.T) {
	v := openBug(t, &fakeClient{}, newFakeStore())
	other := bugIn(7, 1, models.PriorityLow)

	v.Update(bugLoadedMsg{gen: v.scope.gen - 1, bug: &other})

	assert.Equal(t, int64(42), v.bug.ID)
}

func TestCategoryPickerSkipsNoneSelected(t *testing.T) {
	client := &fakeClient{}
	v := openBug(t, client, newFakeStore())

	v.Update(runeKey("c"))
	require.Equal(t, bugModeCategory, v.mode)
	for range len(category.Labels) + 3 {
		v.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, len(category.Labels)-2, v.pickerCursor)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, v.saving)
	v.Update(cmd())

	assert.Equal(t, []int{9}, client.categories)
	assert.Equal(t, 9, *v.bug.CategoryID)
	assert.Equal(t, "Category updated", v.status)
	assert.False(t, v.saving)
}

func TestRefreshWhileSavingUnblocksEdits(t *testing.T) {
	v := openBug(t, &fakeClient{}, newFakeStore())
	v.Update(runeKey("c"))
	_, save := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, save)
	require.True(t, v.saving)

	_, reload := v.Update(runeKey("r"))
	require.NotNil(t, reload)
	v.Update(save())
	v.Update(reload())

	assert.False(t, v.saving)
	v.Update(runeKey("p"))
	assert.Equal(t, bugModePriority, v.mode)
}

func TestPriorityPickerStartsAtCurrent(t *testing.T) {
	v := openBug(t, &fakeClient{}, newFakeStore())

	v.Update(runeKey("p"))

	assert.Equal(t, bugModePriority, v.mode)
	assert.Equal(t, models.PriorityMedium, models.Priorities[v.pickerCursor])

	v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, bugModeView, v.mode)
}

func TestCommentDraftSurvivesEscape(t *testing.T) {
	store := newFakeStore()
	v := openBug(t, &fakeClient{}, store)

	v.Update(runeKey("n"))
	require.Equal(t, bugModeComment, v.mode)
	v.commentInput.SetValue("half a thought")
	v.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, bugModeView, v.mode)
	assert.Equal(t, "half a thought", store.drafts[draftKey{42, 0}])
	assert.Equal(t, "Draft saved", v.status)

	v.Update(runeKey("n"))
	assert.Equal(t, "half a thought", v.commentInput.Value())
}

func TestPostingCommentAppendsAndClearsDraft(t *testing.T) {
	posted := &models.Discussion{ID: 100, Content: "Repro attached", Author: models.UserSummary{ID: 9, Name: "Alice"}}
	client := &fakeClient{posted: posted}
	store := newFakeStore()
	store.drafts[draftKey{42, 0}] = "Repro attached"
	v := openBug(t, client, store)

	v.Update(runeKey("n"))
	_, cmd := v.Update(ctrlS)
	require.NotNil(t, cmd)
	v.Update(cmd())

	assert.Equal(t, []string{"Repro attached"}, client.comments)
	require.Len(t, v.discussions, 1)
	assert.Equal(t, int64(100), v.discussions[0].ID)
	assert.Equal(t, 0, v.selected)
	assert.NotContains(t, store.drafts, draftKey{42, 0})
	assert.Equal(t, bugModeView, v.mode)
	assert.Equal(t, "Comment posted", v.status)
}

func TestEmptyCommentIsNotPosted(t *testing.T) {
	client := &fakeClient{}
	v := openBug(t, client, newFakeStore())

	v.Update(runeKey("n"))
	v.commentInput.SetValue("   ")
	_, cmd := v.Update(ctrlS)

	assert.Nil(t, cmd)
	assert.Empty(t, client.comments)
}

func TestReplyNeedsSelectedDiscussion(t *testing.T) {
	client := &fakeClient{discussions: []models.Discussion{{ID: 5, Content: "first"}}}
	v := openBug(t, client, newFakeStore())

	v.Update(runeKey("a"))
	assert.Equal(t, bugModeView, v.mode)
	assert.True(t, v.statusErr)

	v.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, 0, v.selected)
	v.Update(runeKey("a"))
	assert.Equal(t, bugModeComment, v.mode)
	assert.Equal(t, int64(5), v.replyTo)
}

func TestReplyReplacesThread(t *testing.T) {
	thread := models.Discussion{ID: 5, Content: "first", Replies: []models.DiscussionReply{{ID: 6, Content: "me too"}}}
	client := &fakeClient{
		discussions: []models.Discussion{{ID: 4, Content: "zero"}, {ID: 5, Content: "first"}},
		posted:      &thread,
	}
	v := openBug(t, client, newFakeStore())
	v.selected = 1

	v.Update(runeKey("a"))
	v.commentInput.SetValue("me too")
	_, cmd := v.Update(ctrlS)
	require.NotNil(t, cmd)
	v.Update(cmd())

	assert.Equal(t, []int64{5}, client.replies)
	require.Len(t, v.discussions, 2)
	assert.Len(t, v.discussions[1].Replies, 1)
	assert.Equal(t, 1, v.selected)
	assert.Equal(t, "Reply posted", v.status)
}

func TestTabCyclesThroughDiscussions(t *testing.T) {
	client := &fakeClient{discussions: []models.Discussion{{ID: 1}, {ID: 2}}}
	v := openBug(t, client, newFakeStore())
	tab := tea.KeyMsg{Type: tea.KeyTab}

	var seen []int
	for range 3 {
		v.Update(tab)
		seen = append(seen, v.selected)
	}
	assert.Equal(t, []int{0, 1, -1}, seen)
}

func TestCopyLink(t *testing.T) {
	var copied string
	orig := clipboardWriteAll
	t.Cleanup(func() { clipboardWriteAll = orig })

	v := openBug(t, &fakeClient{}, newFakeStore())

	clipboardWriteAll = func(s string) error {
		copied = s
		return nil
	}
	_, cmd := v.Update(runeKey("y"))
	require.NotNil(t, cmd)
	v.Update(cmd())
	assert.Equal(t, "https://bugs.example.com/issues", copied)
	assert.Equal(t, "Link copied to clipboard", v.status)

	clipboardWriteAll = func(string) error { return errors.New("no clipboard") }
	_, cmd = v.Update(runeKey("y"))
	v.Update(cmd())
	assert.Equal(t, "Could not copy: no clipboard", v.status)
	assert.True(t, v.statusErr)
}

func TestEscapeGoesBack(t *testing.T) {
	v := openBug(t, &fakeClient{}, newFakeStore())

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, BackToDashboard{}, cmd())
}

func TestBugViewRendersDetails(t *testing.T) {
	client := &fakeClient{
		summary:     "Crash when the table has a generated column.",
		discussions: []models.Discussion{{ID: 1, Content: "Confirmed on 3.46", Author: models.UserSummary{Name: "Bob"}}},
	}
	v := openBug(t, client, newFakeStore())

	out := v.View()

	assert.Contains(t, out, "Segfault in ALTER TABLE")
	assert.Contains(t, out, "Medium")
}
