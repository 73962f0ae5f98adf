package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alqaedgcb/legal-telegram-bot/internal/features/access/models"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/features/access/repository/memory"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/transport"
)

const approverID int64 = 99

type sentMessage struct {
	ChatID  int64
	Text    string
	Actions []transport.Action
}

type editedMessage struct {
	Ref  transport.MessageRef
	Text string
}

// fakeMessenger records outbound traffic and can be told to fail sends.
type fakeMessenger struct {
	mu        sync.Mutex
	sent      []sentMessage
	edited    []editedMessage
	answered  []string
	failSends bool
	nextMsgID int
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string, actions ...transport.Action) (transport.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSends {
		return transport.MessageRef{}, errors.New("delivery failed")
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text, Actions: actions})
	f.nextMsgID++
	return transport.MessageRef{ChatID: chatID, MessageID: f.nextMsgID}, nil
}

func (f *fakeMessenger) EditMessage(_ context.Context, ref transport.MessageRef, text string, actions ...transport.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSends {
		return errors.New("delivery failed")
	}
	f.edited = append(f.edited, editedMessage{Ref: ref, Text: text})
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, callbackID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, callbackID)
	return nil
}

func (f *fakeMessenger) sentTo(chatID int64) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func newGateway() (*fakeMessenger, *memory.Store, ApprovalGateway) {
	fm := &fakeMessenger{}
	store := memory.NewStore()
	return fm, store, NewApprovalGateway(store, fm, approverID)
}

func TestRequestAccessCreatesPendingAndPromptsApprover(t *testing.T) {
	ctx := context.Background()
	fm, store, gw := newGateway()

	out := gw.RequestAccess(ctx, models.Profile{ID: 1, FirstName: "Ali", Username: "ali"})
	assert.Equal(t, RequestCreated, out)

	u, ok := store.Get(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, models.StatePending, u.State)
	assert.True(t, store.HasPending(ctx, 1))

	prompts := fm.sentTo(approverID)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, "Ali")
	assert.Contains(t, prompts[0].Text, "@ali")
	require.Len(t, prompts[0].Actions, 2)
	assert.Equal(t, "approve:1", prompts[0].Actions[0].Token)
	assert.Equal(t, "reject:1", prompts[0].Actions[1].Token)
}

func TestRequestAccessTwiceSendsOnePrompt(t *testing.T) {
	ctx := context.Background()
	fm, _, gw := newGateway()

	assert.Equal(t, RequestCreated, gw.RequestAccess(ctx, models.Profile{ID: 1}))
	assert.Equal(t, AlreadyPending, gw.RequestAccess(ctx, models.Profile{ID: 1}))

	assert.Len(t, fm.sentTo(approverID), 1, "double /start must not duplicate the prompt")
}

func TestRequestAccessForApprovedAndBannedUsers(t *testing.T) {
	ctx := context.Background()
	fm, store, gw := newGateway()

	store.GetOrCreate(ctx, models.Profile{ID: 1})
	store.Update(ctx, 1, func(u *models.User) { u.State = models.StateApproved })
	assert.Equal(t, AlreadyApproved, gw.RequestAccess(ctx, models.Profile{ID: 1}))

	store.GetOrCreate(ctx, models.Profile{ID: 2})
	store.Update(ctx, 2, func(u *models.User) { u.State = models.StateBanned })
	assert.Equal(t, AlreadyBanned, gw.RequestAccess(ctx, models.Profile{ID: 2}))

	assert.False(t, store.HasPending(ctx, 2), "banned user gets no new pending request")
	assert.Empty(t, fm.sentTo(approverID))
}

// A re-request racing the approver's decision must never leave an approved
// user with a live pending request or a duplicate prompt, whichever side of
// the decision the re-request lands on.
func TestRequestAccessRacingDecisionKeepsOnePrompt(t *testing.T) {
	for i := 0; i < 50; i++ {
		ctx := context.Background()
		fm, store, gw := newGateway()
		require.Equal(t, RequestCreated, gw.RequestAccess(ctx, models.Profile{ID: 1}))
		prompt := transport.MessageRef{ChatID: approverID, MessageID: 1}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			gw.RequestAccess(ctx, models.Profile{ID: 1})
		}()
		go func() {
			defer wg.Done()
			gw.Decide(ctx, approverID, 1, models.DecisionApprove, prompt)
		}()
		wg.Wait()

		u, ok := store.Get(ctx, 1)
		require.True(t, ok)
		assert.Equal(t, models.StateApproved, u.State)
		assert.False(t, store.HasPending(ctx, 1), "approved user must not keep a live request")
		assert.Len(t, fm.sentTo(approverID), 1, "re-request must not duplicate the prompt")
	}
}

func TestRequestAccessStateStandsWhenPromptDeliveryFails(t *testing.T) {
	ctx := context.Background()
	fm, store, gw := newGateway()
	fm.failSends = true

	out := gw.RequestAccess(ctx, models.Profile{ID: 1})
	assert.Equal(t, RequestCreated, out)
	assert.True(t, store.HasPending(ctx, 1), "pending record is authoritative even if the prompt is lost")
}

func TestDecideUnauthorizedFailsClosed(t *testing.T) {
	ctx := context.Background()
	fm, store, gw := newGateway()
	gw.RequestAccess(ctx, models.Profile{ID: 1})
	before, _ := store.Get(ctx, 1)
	promptCount := len(fm.sentTo(approverID))

	out := gw.Decide(ctx, 12345, 1, models.DecisionApprove, transport.MessageRef{ChatID: approverID, MessageID: 1})
	assert.Equal(t, DecisionUnauthorized, out)

	after, _ := store.Get(ctx, 1)
	assert.Equal(t, before.State, after.State, "no state change on unauthorized decision")
	assert.True(t, store.HasPending(ctx, 1))
	assert.Len(t, fm.sentTo(approverID), promptCount)
	assert.Empty(t, fm.sentTo(1))
	assert.Empty(t, fm.edited)
}

func TestDecideWithoutPendingRequestIsNoOp(t *testing.T) {
	ctx := context.Background()
	fm, store, gw := newGateway()
	store.GetOrCreate(ctx, models.Profile{ID: 1})

	out := gw.Decide(ctx, approverID, 1, models.DecisionApprove, transport.MessageRef{})
	assert.Equal(t, DecisionNotFound, out)

	u, _ := store.Get(ctx, 1)
	assert.Equal(t, models.StatePending, u.State)
	assert.Empty(t, fm.sent)
	assert.Empty(t, fm.edited)
}

func TestDecideApprove(t *testing.T) {
	ctx := context.Background()
	fm, store, gw := newGateway()
	gw.RequestAccess(ctx, models.Profile{ID: 1, FirstName: "Ali"})
	prompt := transport.MessageRef{ChatID: approverID, MessageID: 1}

	out := gw.Decide(ctx, approverID, 1, models.DecisionApprove, prompt)
	assert.Equal(t, DecisionApplied, out)

	u, _ := store.Get(ctx, 1)
	assert.Equal(t, models.StateApproved, u.State)
	assert.Equal(t, 0, u.Warnings)
	assert.False(t, store.HasPending(ctx, 1))

	notices := fm.sentTo(1)
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Text, "approved")

	require.Len(t, fm.edited, 1)
	assert.Equal(t, prompt, fm.edited[0].Ref)
	assert.Contains(t, fm.edited[0].Text, "approved")
}

func TestDecideRejectBansAndResolvesPrompt(t *testing.T) {
	ctx := context.Background()
	fm, store, gw := newGateway()
	gw.RequestAccess(ctx, models.Profile{ID: 1, FirstName: "Ali"})
	prompt := transport.MessageRef{ChatID: approverID, MessageID: 1}

	out := gw.Decide(ctx, approverID, 1, models.DecisionReject, prompt)
	assert.Equal(t, DecisionApplied, out)

	u, _ := store.Get(ctx, 1)
	assert.Equal(t, models.StateBanned, u.State)
	assert.False(t, store.HasPending(ctx, 1))

	notices := fm.sentTo(1)
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Text, "rejected")

	require.Len(t, fm.edited, 1)
	assert.Contains(t, fm.edited[0].Text, "rejected")
}

func TestDecideReplayIsInert(t *testing.T) {
	ctx := context.Background()
	fm, _, gw := newGateway()
	gw.RequestAccess(ctx, models.Profile{ID: 1})
	prompt := transport.MessageRef{ChatID: approverID, MessageID: 1}

	assert.Equal(t, DecisionApplied, gw.Decide(ctx, approverID, 1, models.DecisionApprove, prompt))
	sentAfterFirst := len(fm.sent)
	editsAfterFirst := len(fm.edited)

	assert.Equal(t, DecisionNotFound, gw.Decide(ctx, approverID, 1, models.DecisionApprove, prompt))
	assert.Len(t, fm.sent, sentAfterFirst, "second button press sends nothing")
	assert.Len(t, fm.edited, editsAfterFirst)
}

func TestDecideStateStandsWhenNotificationFails(t *testing.T) {
	ctx := context.Background()
	fm, store, gw := newGateway()
	gw.RequestAccess(ctx, models.Profile{ID: 1})
	fm.failSends = true

	out := gw.Decide(ctx, approverID, 1, models.DecisionApprove, transport.MessageRef{ChatID: approverID, MessageID: 1})
	assert.Equal(t, DecisionApplied, out)

	u, _ := store.Get(ctx, 1)
	assert.Equal(t, models.StateApproved, u.State, "approval stands even if the confirmation is undeliverable")
}

func TestOverrideAuthorization(t *testing.T) {
	ctx := context.Background()
	_, store, gw := newGateway()
	store.GetOrCreate(ctx, models.Profile{ID: 1})

	out := gw.Override(ctx, 12345, 1, models.OverrideBan)
	assert.Equal(t, DecisionUnauthorized, out)

	u, _ := store.Get(ctx, 1)
	assert.Equal(t, models.StatePending, u.State)
}

func TestOverrideBanCreatesRecordForUnseenUser(t *testing.T) {
	ctx := context.Background()
	_, store, gw := newGateway()

	out := gw.Override(ctx, approverID, 55, models.OverrideBan)
	assert.Equal(t, DecisionApplied, out)

	u, ok := store.Get(ctx, 55)
	require.True(t, ok)
	assert.Equal(t, models.StateBanned, u.State)
}

func TestOverrideUnbanResetsWarnings(t *testing.T) {
	ctx := context.Background()
	_, store, gw := newGateway()
	store.GetOrCreate(ctx, models.Profile{ID: 1})
	store.Update(ctx, 1, func(u *models.User) {
		u.State = models.StateBanned
		u.Warnings = 3
	})

	out := gw.Override(ctx, approverID, 1, models.OverrideUnban)
	assert.Equal(t, DecisionApplied, out)

	u, _ := store.Get(ctx, 1)
	assert.Equal(t, models.StateApproved, u.State)
	assert.Equal(t, 0, u.Warnings)
}

func TestOverrideBanConsumesPendingRequest(t *testing.T) {
	ctx := context.Background()
	_, store, gw := newGateway()
	gw.RequestAccess(ctx, models.Profile{ID: 1})
	require.True(t, store.HasPending(ctx, 1))

	gw.Override(ctx, approverID, 1, models.OverrideBan)
	assert.False(t, store.HasPending(ctx, 1))
}

func TestDecisionTokensRoundTrip(t *testing.T) {
	d, id, ok := models.ParseDecisionToken(models.ApproveToken(42))
	require.True(t, ok)
	assert.Equal(t, models.DecisionApprove, d)
	assert.Equal(t, int64(42), id)

	d, id, ok = models.ParseDecisionToken(models.RejectToken(7))
	require.True(t, ok)
	assert.Equal(t, models.DecisionReject, d)
	assert.Equal(t, int64(7), id)

	for _, tok := range []string{"", "menu:services", "approve:", "approve:x", "ban:1"} {
		_, _, ok := models.ParseDecisionToken(tok)
		assert.False(t, ok, tok)
	}
}

func TestPromptTextHandlesMissingUsername(t *testing.T) {
	text := promptText(models.Profile{ID: 1, FirstName: "Ali"})
	assert.True(t, strings.Contains(text, "@not set"))
}
