package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/stackit/backend/internal/ledger"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/repository/memory"
)

type fixture struct {
	store  *memory.Store
	ledger *ledger.Ledger

	mu       sync.Mutex
	notified []models.Notification
}

func newFixture(t *testing.T, opts ledger.Options) *fixture {
	t.Helper()
	f := &fixture{store: memory.New()}
	l, err := ledger.New(f.store, opts, ledger.NotifierFunc(func(_ context.Context, n models.Notification) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.notified = append(f.notified, n)
	}), nil)
	require.NoError(t, err)
	f.ledger = l
	return f
}

func (f *fixture) user(t *testing.T, name string, admin bool) models.User {
	t.Helper()
	u := models.User{Username: name, Email: name + "@example.com", Password: "x", IsAdmin: admin}
	require.NoError(t, f.store.CreateUser(context.Background(), &u))
	return u
}

func (f *fixture) question(t *testing.T, owner models.User, title string) models.Question {
	t.Helper()
	q := models.Question{Title: title, Description: "details", UserID: owner.ID}
	require.NoError(t, f.store.CreateQuestion(context.Background(), &q))
	return q
}

func (f *fixture) answer(t *testing.T, author models.User, q models.Question) models.Answer {
	t.Helper()
	a, err := f.ledger.PostAnswer(context.Background(), author.ID, q.ID, "answer by "+author.Username)
	require.NoError(t, err)
	return a
}

func (f *fixture) inbox(t *testing.T, u models.User) []models.Notification {
	t.Helper()
	list, err := f.store.ListNotifications(context.Background(), u.ID, false, 0)
	require.NoError(t, err)
	return list
}

func (f *fixture) delivered() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Notification(nil), f.notified...)
}

func (f *fixture) accepted(t *testing.T, q models.Question) []int {
	t.Helper()
	answers, err := f.store.ListAnswers(context.Background(), q.ID)
	require.NoError(t, err)
	var ids []int
	for _, a := range answers {
		if a.Accepted {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func TestNew_RejectsUnknownPolicy(t *testing.T) {
	_, err := ledger.New(memory.New(), ledger.Options{VotePolicy: "weighted"}, nil, nil)
	assert.Error(t, err)

	l, err := ledger.New(memory.New(), ledger.Options{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultOptions(), l.Options())
}

func TestPostAnswer_NotifiesQuestionOwner(t *testing.T) {
	tests := []struct {
		name        string
		ownAnswer   bool
		wantNotices int
	}{
		{name: "other user answers", ownAnswer: false, wantNotices: 1},
		{name: "owner answers own question", ownAnswer: true, wantNotices: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, ledger.DefaultOptions())
			owner := f.user(t, "owner", false)
			author := f.user(t, "author", false)
			if tt.ownAnswer {
				author = owner
			}
			q := f.question(t, owner, "How do channels work?")

			a, err := f.ledger.PostAnswer(context.Background(), author.ID, q.ID, "  use make(chan T)  ")
			require.NoError(t, err)
			assert.NotZero(t, a.ID)
			assert.False(t, a.Accepted)
			assert.Equal(t, "use make(chan T)", a.Content)
			assert.False(t, a.CreatedAt.IsZero())

			inbox := f.inbox(t, owner)
			require.Len(t, inbox, tt.wantNotices)
			assert.Len(t, f.delivered(), tt.wantNotices)
			if tt.wantNotices > 0 {
				assert.Equal(t, "author answered your question.", inbox[0].Message)
				assert.False(t, inbox[0].IsRead)
			}
		})
	}
}

func TestPostAnswer_Errors(t *testing.T) {
	f := newFixture(t, ledger.DefaultOptions())
	owner := f.user(t, "owner", false)
	q := f.question(t, owner, "title")
	ctx := context.Background()

	_, err := f.ledger.PostAnswer(ctx, 0, q.ID, "text")
	assert.ErrorIs(t, err, ledger.ErrUnauthenticated)

	_, err = f.ledger.PostAnswer(ctx, owner.ID, 999, "text")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = f.ledger.PostAnswer(ctx, owner.ID, q.ID, "   ")
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	answers, err := f.store.ListAnswers(ctx, q.ID)
	require.NoError(t, err)
	assert.Empty(t, answers)
}

func TestCastVote_AppendCountsEveryVote(t *testing.T) {
	f := newFixture(t, ledger.DefaultOptions())
	owner := f.user(t, "owner", false)
	up := f.user(t, "up", false)
	down := f.user(t, "down", false)
	a := f.answer(t, owner, f.question(t, owner, "q"))
	ctx := context.Background()

	const ups, downs = 20, 7
	var wg sync.WaitGroup
	for i := 0; i < ups; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.CastVote(ctx, up.ID, a.ID, models.VoteUp)
			assert.NoError(t, err)
		}()
	}
	for i := 0; i < downs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.CastVote(ctx, down.ID, a.ID, models.VoteDown)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	tally, err := f.ledger.Tally(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Tally{Up: ups, Down: downs}, tally)

	votes, err := f.ledger.Votes(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, votes, ups+downs)

	again, err := f.ledger.Tally(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, tally, again)
	assert.Empty(t, f.delivered(), "votes never notify")
}

func TestCastVote_UpsertKeepsOneVotePerUser(t *testing.T) {
	opts := ledger.DefaultOptions()
	opts.VotePolicy = ledger.VoteUpsert
	f := newFixture(t, opts)
	owner := f.user(t, "owner", false)
	voter := f.user(t, "voter", false)
	other := f.user(t, "other", false)
	a := f.answer(t, owner, f.question(t, owner, "q"))
	ctx := context.Background()

	steps := []struct {
		voter     models.User
		direction string
		want      ledger.Tally
	}{
		{voter, models.VoteUp, ledger.Tally{Up: 1}},
		{voter, models.VoteUp, ledger.Tally{Up: 1}},
		{voter, models.VoteDown, ledger.Tally{Down: 1}},
		{other, models.VoteUp, ledger.Tally{Up: 1, Down: 1}},
	}
	for i, step := range steps {
		tally, err := f.ledger.CastVote(ctx, step.voter.ID, a.ID, step.direction)
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, step.want, tally, "step %d", i)
	}

	votes, err := f.ledger.Votes(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, votes, 2)
}

func TestCastVote_Errors(t *testing.T) {
	f := newFixture(t, ledger.DefaultOptions())
	owner := f.user(t, "owner", false)
	a := f.answer(t, owner, f.question(t, owner, "q"))
	ctx := context.Background()

	tests := []struct {
		name      string
		voterID   int
		answerID  int
		direction string
		want      error
	}{
		{"no identity", 0, a.ID, models.VoteUp, ledger.ErrUnauthenticated},
		{"unknown voter", 999, a.ID, models.VoteUp, ledger.ErrUnauthenticated},
		{"missing answer", owner.ID, 999, models.VoteUp, ledger.ErrNotFound},
		{"bad direction", owner.ID, a.ID, "sideways", ledger.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.CastVote(ctx, tt.voterID, tt.answerID, tt.direction)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	tally, err := f.ledger.Tally(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Tally{}, tally)

	_, err = f.ledger.Tally(ctx, 999)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestAcceptAnswer_ReplacesPreviousAcceptance(t *testing.T) {
	f := newFixture(t, ledger.DefaultOptions())
	owner := f.user(t, "owner", false)
	u2 := f.user(t, "u2", false)
	u3 := f.user(t, "u3", false)
	q := f.question(t, owner, "Pick one")
	a1 := f.answer(t, u2, q)
	a2 := f.answer(t, u3, q)
	ctx := context.Background()

	got, err := f.ledger.AcceptAnswer(ctx, owner.ID, q.ID, a1.ID)
	require.NoError(t, err)
	assert.True(t, got.Accepted)
	assert.Equal(t, []int{a1.ID}, f.accepted(t, q))

	got, err = f.ledger.AcceptAnswer(ctx, owner.ID, q.ID, a2.ID)
	require.NoError(t, err)
	assert.True(t, got.Accepted)
	assert.Equal(t, []int{a2.ID}, f.accepted(t, q))
}

func TestAcceptAnswer_RejectPolicy(t *testing.T) {
	opts := ledger.DefaultOptions()
	opts.AcceptPolicy = ledger.AcceptReject
	f := newFixture(t, opts)
	owner := f.user(t, "owner", false)
	q := f.question(t, owner, "Pick one")
	a1 := f.answer(t, f.user(t, "u2", false), q)
	a2 := f.answer(t, f.user(t, "u3", false), q)
	ctx := context.Background()

	_, err := f.ledger.AcceptAnswer(ctx, owner.ID, q.ID, a1.ID)
	require.NoError(t, err)

	_, err = f.ledger.AcceptAnswer(ctx, owner.ID, q.ID, a2.ID)
	assert.ErrorIs(t, err, ledger.ErrConflict)
	assert.Equal(t, []int{a1.ID}, f.accepted(t, q))

	// Re-accepting the accepted answer is not a conflict.
	_, err = f.ledger.AcceptAnswer(ctx, owner.ID, q.ID, a1.ID)
	assert.NoError(t, err)
}

func TestAcceptAnswer_Authority(t *testing.T) {
	opts := ledger.DefaultOptions()
	opts.AcceptAuthority = ledger.AcceptByOwner
	f := newFixture(t, opts)
	owner := f.user(t, "owner", false)
	stranger := f.user(t, "stranger", false)
	admin := f.user(t, "admin", true)
	q := f.question(t, owner, "Pick one")
	a := f.answer(t, stranger, q)
	ctx := context.Background()

	_, err := f.ledger.AcceptAnswer(ctx, stranger.ID, q.ID, a.ID)
	assert.ErrorIs(t, err, ledger.ErrForbidden)
	assert.Empty(t, f.accepted(t, q))

	_, err = f.ledger.AcceptAnswer(ctx, admin.ID, q.ID, a.ID)
	require.NoError(t, err)

	_, err = f.ledger.UnacceptAnswer(ctx, stranger.ID, q.ID, a.ID)
	assert.ErrorIs(t, err, ledger.ErrForbidden)

	_, err = f.ledger.UnacceptAnswer(ctx, owner.ID, q.ID, a.ID)
	require.NoError(t, err)
	assert.Empty(t, f.accepted(t, q))
}

func TestAcceptAnswer_AnyActorByDefault(t *testing.T) {
	f := newFixture(t, ledger.DefaultOptions())
	owner := f.user(t, "owner", false)
	stranger := f.user(t, "stranger", false)
	q := f.question(t, owner, "Pick one")
	a := f.answer(t, owner, q)

	_, err := f.ledger.AcceptAnswer(context.Background(), stranger.ID, q.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{a.ID}, f.accepted(t, q))
}

func TestAcceptAnswer_NotFound(t *testing.T) {
	f := newFixture(t, ledger.DefaultOptions())
	owner := f.user(t, "owner", false)
	q1 := f.question(t, owner, "first")
	q2 := f.question(t, owner, "second")
	a := f.answer(t, owner, q1)
	ctx := context.Background()

	_, err := f.ledger.AcceptAnswer(ctx, owner.ID, q2.ID, a.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = f.ledger.AcceptAnswer(ctx, owner.ID, 999, a.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = f.ledger.AcceptAnswer(ctx, owner.ID, q1.ID, 999)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = f.ledger.AcceptAnswer(ctx, 0, q1.ID, a.ID)
	assert.ErrorIs(t, err, ledger.ErrUnauthenticated)

	assert.Empty(t, f.accepted(t, q1))
}

func TestAcceptAnswer_NotificationRules(t *testing.T) {
	f := newFixture(t, ledger.DefaultOptions())
	owner := f.user(t, "owner", false)
	author := f.user(t, "author", false)
	q := f.question(t, owner, "Why Go?")
	own := f.answer(t, owner, q)
	theirs := f.answer(t, author, q)
	ctx := context.Background()

	before := len(f.delivered())
	_, err := f.ledger.AcceptAnswer(ctx, owner.ID, q.ID, own.ID)
	require.NoError(t, err)
	assert.Len(t, f.delivered(), before, "accepting your own answer is silent")

	_, err = f.ledger.AcceptAnswer(ctx, owner.ID, q.ID, theirs.ID)
	require.NoError(t, err)
	_, err = f.ledger.AcceptAnswer(ctx, owner.ID, q.ID, theirs.ID)
	require.NoError(t, err)

	inbox := f.inbox(t, author)
	require.Len(t, inbox, 1)
	assert.Equal(t, "Your answer was accepted on 'Why Go?'", inbox[0].Message)
}

func TestAcceptAnswer_ConcurrentAcceptsKeepOneAccepted(t *testing.T) {
	f := newFixture(t, ledger.DefaultOptions())
	owner := f.user(t, "owner", false)
	q := f.question(t, owner, "race")

	var answers []models.Answer
	for i := 0; i < 8; i++ {
		answers = append(answers, f.answer(t, owner, q))
	}

	var wg sync.WaitGroup
	for _, a := range answers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := f.ledger.AcceptAnswer(context.Background(), owner.ID, q.ID, id)
			assert.NoError(t, err)
		}(a.ID)
	}
	wg.Wait()

	assert.Len(t, f.accepted(t, q), 1)
}

func TestUnacceptAnswer(t *testing.T) {
	f := newFixture(t, ledger.DefaultOptions())
	owner := f.user(t, "owner", false)
	q := f.question(t, owner, "q")
	a := f.answer(t, f.user(t, "author", false), q)
	ctx := context.Background()

	got, err := f.ledger.UnacceptAnswer(ctx, owner.ID, q.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Accepted)

	_, err = f.ledger.AcceptAnswer(ctx, owner.ID, q.ID, a.ID)
	require.NoError(t, err)
	got, err = f.ledger.UnacceptAnswer(ctx, owner.ID, q.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Accepted)
	assert.Empty(t, f.accepted(t, q))
}

func TestAnswers_Ranking(t *testing.T) {
	f := newFixture(t, ledger.DefaultOptions())
	owner := f.user(t, "owner", false)
	voter := f.user(t, "voter", false)
	q := f.question(t, owner, "rank")
	ctx := context.Background()

	plain := f.answer(t, owner, q)
	popular := f.answer(t, owner, q)
	chosen := f.answer(t, owner, q)
	late := f.answer(t, owner, q)

	for i := 0; i < 2; i++ {
		_, err := f.ledger.CastVote(ctx, voter.ID, popular.ID, models.VoteUp)
		require.NoError(t, err)
	}
	_, err := f.ledger.CastVote(ctx, voter.ID, late.ID, models.VoteUp)
	require.NoError(t, err)
	_, err = f.ledger.CastVote(ctx, voter.ID, late.ID, models.VoteDown)
	require.NoError(t, err)
	_, err = f.ledger.AcceptAnswer(ctx, owner.ID, q.ID, chosen.ID)
	require.NoError(t, err)

	ranked, err := f.ledger.Answers(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, ranked, 4)

	var order []int
	for _, r := range ranked {
		order = append(order, r.ID)
	}
	assert.Equal(t, []int{chosen.ID, popular.ID, plain.ID, late.ID}, order)
	assert.Equal(t, ledger.Tally{Up: 2}, ranked[1].Tally)
	assert.Equal(t, ledger.Tally{Up: 1, Down: 1}, ranked[3].Tally)

	_, err = f.ledger.Answers(ctx, 999)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestDeleteQuestion_Cascades(t *testing.T) {
	f := newFixture(t, ledger.DefaultOptions())
	owner := f.user(t, "owner", false)
	admin := f.user(t, "admin", true)
	q := f.question(t, owner, "doomed")
	keep := f.question(t, owner, "kept")
	a := f.answer(t, owner, q)
	kept := f.answer(t, owner, keep)
	ctx := context.Background()

	_, err := f.ledger.CastVote(ctx, admin.ID, a.ID, models.VoteUp)
	require.NoError(t, err)
	_, err = f.ledger.CastVote(ctx, admin.ID, kept.ID, models.VoteUp)
	require.NoError(t, err)

	err = f.ledger.DeleteQuestion(ctx, owner.ID, q.ID)
	assert.ErrorIs(t, err, ledger.ErrForbidden)

	require.NoError(t, f.ledger.DeleteQuestion(ctx, admin.ID, q.ID))

	_, err = f.store.GetQuestion(ctx, q.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = f.store.GetAnswer(ctx, a.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	votes, err := f.store.ListVotes(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, votes)

	tally, err := f.ledger.Tally(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Tally{Up: 1}, tally)

	err = f.ledger.DeleteQuestion(ctx, admin.ID, q.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestScenario_AnswerVoteAccept(t *testing.T) {
	f := newFixture(t, ledger.DefaultOptions())
	u1 := f.user(t, "u1", false)
	u2 := f.user(t, "u2", false)
	u3 := f.user(t, "u3", false)
	u4 := f.user(t, "u4", false)
	q1 := f.question(t, u1, "Q1")
	ctx := context.Background()

	a1, err := f.ledger.PostAnswer(ctx, u2.ID, q1.ID, "answer text")
	require.NoError(t, err)
	assert.False(t, a1.Accepted)
	tally, err := f.ledger.Tally(ctx, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Tally{}, tally)
	assert.Len(t, f.inbox(t, u1), 1)

	_, err = f.ledger.CastVote(ctx, u3.ID, a1.ID, models.VoteUp)
	require.NoError(t, err)
	_, err = f.ledger.CastVote(ctx, u3.ID, a1.ID, models.VoteUp)
	require.NoError(t, err)
	tally, err = f.ledger.CastVote(ctx, u4.ID, a1.ID, models.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, ledger.Tally{Up: 2, Down: 1}, tally)

	accepted, err := f.ledger.AcceptAnswer(ctx, u1.ID, q1.ID, a1.ID)
	require.NoError(t, err)
	assert.True(t, accepted.Accepted)
	assert.Len(t, f.inbox(t, u2), 1)
	assert.Len(t, f.inbox(t, u1), 1)
	assert.Len(t, f.delivered(), 2)
}
