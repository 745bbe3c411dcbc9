package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"intranet_chat/internal/chat/domain"
	"intranet_chat/internal/chat/repository"
	notifdomain "intranet_chat/internal/notification/domain"
	errprocess "intranet_chat/pkg/err"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingSend 寫入一律失敗
type failingSend struct {
	*MessageUseCase
	err error
}

func (f failingSend) Send(context.Context, SendInput) (domain.Message, error) {
	return domain.Message{}, f.err
}

type entityRead struct {
	recipient string
	kind      notifdomain.Type
	entity    string
}

type recordingNotifications struct {
	mu    sync.Mutex
	calls []entityRead
}

func (r *recordingNotifications) MarkEntityRead(_ context.Context, recipientID string, t notifdomain.Type, entityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, entityRead{recipient: recipientID, kind: t, entity: entityID})
	return nil
}

func TestSession_SendPendingThenConfirmed(t *testing.T) {
	w := newChatWorld()
	ctx := context.Background()
	bob, rec := w.session("bob", nil)
	require.NoError(t, bob.Start(ctx))

	msg, err := bob.SendMessage(ctx, SendRequest{RecipientID: "alice", Text: "lunch?", ClientID: "c1"})
	require.NoError(t, err)
	w.feed.flush()

	msgs := bob.Messages("alice_bob")
	require.Len(t, msgs, 1)
	assert.Equal(t, msg.ID, msgs[0].ID)
	assert.False(t, msgs[0].Pending)
	assert.Equal(t, 2, rec.count(domain.EffectSendState))
	payload, _ := rec.last(domain.EffectSendState)
	assert.Equal(t, domain.SendConfirmed, payload["state"])
	assert.Zero(t, bob.Snapshot().TotalUnread)
}

func TestSession_SendValidationNeverWrites(t *testing.T) {
	w := newChatWorld()
	ctx := context.Background()
	bob, rec := w.session("bob", nil)
	require.NoError(t, bob.Start(ctx))

	_, err := bob.SendMessage(ctx, SendRequest{RecipientID: "alice", Text: "  "})
	assert.ErrorIs(t, err, errprocess.ErrValidation)
	_, err = bob.SendAttachment(ctx, "", "alice", "", "")
	assert.ErrorIs(t, err, errprocess.ErrValidation)

	assert.Zero(t, w.msgs.count("alice_bob"))
	assert.Zero(t, rec.count(domain.EffectSendState))
	payload, ok := rec.last(domain.EffectToast)
	require.True(t, ok)
	assert.Equal(t, "validation", payload["kind"])
}

func TestSession_SendFailureKeepsPlaceholder(t *testing.T) {
	w := newChatWorld()
	ctx := context.Background()
	deps := w.deps(nil)
	deps.Chat = failingSend{MessageUseCase: w.chat, err: errprocess.Wrap(errprocess.ErrTransient, "insert", nil)}
	rec := &effectRecorder{}
	bob := NewSession("bob", "Bob", deps, rec)
	require.NoError(t, bob.Start(ctx))

	_, err := bob.SendMessage(ctx, SendRequest{RecipientID: "alice", Text: "hola", ClientID: "c9"})
	assert.ErrorIs(t, err, errprocess.ErrTransient)

	msgs := bob.Messages("alice_bob")
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Pending)
	payload, _ := rec.last(domain.EffectSendState)
	assert.Equal(t, domain.SendFailed, payload["state"])
	toast, _ := rec.last(domain.EffectToast)
	assert.Equal(t, "transient", toast["kind"])
	assert.Empty(t, bob.Snapshot().Latched)
}

func TestSession_DeleteConversationRequiresPassword(t *testing.T) {
	w := newChatWorld()
	w.auth["bob"] = "correct horse"
	ctx := context.Background()
	send(t, w, "alice", "bob", "secret plans")
	w.feed.flush()

	bob, rec := w.session("bob", nil)
	require.NoError(t, bob.Start(ctx))
	bob.OpenLauncher(ctx)
	require.NoError(t, bob.SelectConversation(ctx, "alice_bob", "Alice"))
	require.NoError(t, bob.Minimize(ctx))
	w.feed.flush()

	err := bob.DeleteConversation(ctx, "alice_bob", "wrong")
	assert.ErrorIs(t, err, errprocess.ErrReauthFailed)
	toast, _ := rec.last(domain.EffectToast)
	assert.Equal(t, "reauth_failed", toast["kind"])

	assert.Equal(t, 1, w.msgs.count("alice_bob"))
	assert.Equal(t, 1, w.feed.subscribers(repository.RoomChannel("alice_bob")))
	assert.Len(t, bob.Messages("alice_bob"), 1)
	assert.Len(t, bob.Snapshot().Pills, 1)
}

func TestSession_DeleteConversation(t *testing.T) {
	w := newChatWorld()
	w.auth["bob"] = "correct horse"
	ctx := context.Background()

	alice, _ := w.session("alice", nil)
	require.NoError(t, alice.Start(ctx))
	bob, _ := w.session("bob", nil)
	require.NoError(t, bob.Start(ctx))

	_, err := alice.SendMessage(ctx, SendRequest{RecipientID: "bob", Text: "one"})
	require.NoError(t, err)
	_, err = alice.SendMessage(ctx, SendRequest{RecipientID: "bob", Text: "two"})
	require.NoError(t, err)
	w.feed.flush()

	bob.OpenLauncher(ctx)
	require.NoError(t, bob.SelectConversation(ctx, "alice_bob", "Alice"))
	require.NoError(t, bob.Minimize(ctx))
	w.feed.flush()
	require.Len(t, bob.Messages("alice_bob"), 2)
	require.Len(t, alice.Messages("alice_bob"), 2)

	require.NoError(t, bob.DeleteConversation(ctx, "alice_bob", "correct horse"))

	assert.Zero(t, w.msgs.count("alice_bob"))
	conv, ok := w.convs.get("alice_bob")
	require.True(t, ok)
	assert.Empty(t, conv.LastMessage)
	assert.ElementsMatch(t, []string{"alice", "bob"}, conv.Participants)

	snap := bob.Snapshot()
	assert.Empty(t, snap.Pills)
	assert.Zero(t, snap.TotalUnread)
	assert.Empty(t, bob.Messages("alice_bob"))
	assert.Equal(t, 1, w.feed.subscribers(repository.RoomChannel("alice_bob")))

	// 另一方收到 cleared
	w.feed.flush()
	assert.Empty(t, alice.Messages("alice_bob"))

	// 拆掉的訂閱收不到之後的事件
	stray := domain.Message{ID: "late", ConversationID: "alice_bob", SenderID: "alice", RecipientID: "bob", Text: "late"}
	require.NoError(t, w.feed.Publish(ctx, repository.RoomChannel("alice_bob"), domain.EventMessageModified, stray))
	w.feed.flush()
	assert.Empty(t, bob.Messages("alice_bob"))
}

func TestSession_DeleteMessage(t *testing.T) {
	w := newChatWorld()
	w.auth["bob"] = "pw"
	w.auth["alice"] = "pw"
	ctx := context.Background()

	bob, _ := w.session("bob", nil)
	require.NoError(t, bob.Start(ctx))
	alice, rec := w.session("alice", nil)
	require.NoError(t, alice.Start(ctx))

	msg, err := bob.SendMessage(ctx, SendRequest{RecipientID: "alice", Text: "oops"})
	require.NoError(t, err)
	w.feed.flush()

	err = alice.DeleteMessage(ctx, msg.ID, "pw")
	assert.ErrorIs(t, err, errprocess.ErrPermissionDenied)
	toast, _ := rec.last(domain.EffectToast)
	assert.Equal(t, "permission_denied", toast["kind"])
	assert.Empty(t, alice.Snapshot().Latched)

	require.NoError(t, bob.DeleteMessage(ctx, msg.ID, "pw"))
	assert.Empty(t, bob.Messages("alice_bob"))
	assert.Zero(t, w.msgs.count("alice_bob"))

	w.feed.flush()
	assert.Empty(t, alice.Messages("alice_bob"))
}

func TestSession_LoadOlderPages(t *testing.T) {
	w := newChatWorld()
	ctx := context.Background()
	for _, text := range []string{"1", "2", "3", "4", "5"} {
		send(t, w, "alice", "bob", text)
	}
	w.feed.flush()

	deps := w.deps(nil)
	deps.PageSize = 2
	bob := NewSession("bob", "", deps, nil)
	require.NoError(t, bob.Start(ctx))

	assert.Equal(t, 5, bob.Snapshot().TotalUnread)
	assert.Len(t, bob.Messages("alice_bob"), 2)

	page, err := bob.LoadOlder(ctx, "alice_bob")
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Len(t, bob.Messages("alice_bob"), 4)

	_, err = bob.LoadOlder(ctx, "alice_bob")
	require.NoError(t, err)
	page, err = bob.LoadOlder(ctx, "alice_bob")
	require.NoError(t, err)
	assert.Empty(t, page)

	msgs := bob.Messages("alice_bob")
	require.Len(t, msgs, 5)
	assert.Equal(t, "1", msgs[0].Text)
	assert.Equal(t, "5", msgs[4].Text)
}

func TestSession_SelectMarksNotificationsRead(t *testing.T) {
	w := newChatWorld("general")
	ctx := context.Background()
	notes := &recordingNotifications{}

	bob, _ := w.session("bob", notes)
	require.NoError(t, bob.Start(ctx))
	bob.OpenLauncher(ctx)
	require.NoError(t, bob.SelectConversation(ctx, "alice_bob", "Alice"))
	require.NoError(t, bob.SelectConversation(ctx, "general", "General"))

	require.Len(t, notes.calls, 2)
	assert.Equal(t, entityRead{recipient: "bob", kind: notifdomain.TypeDirectChat, entity: "alice_bob"}, notes.calls[0])
	assert.Equal(t, entityRead{recipient: "bob", kind: notifdomain.TypeGroupChat, entity: "general"}, notes.calls[1])

	viewing, err := w.viewing.IsViewing(ctx, "bob", "general")
	require.NoError(t, err)
	assert.True(t, viewing)
}

func TestSession_SelectWithoutPanelFails(t *testing.T) {
	w := newChatWorld()
	ctx := context.Background()
	bob, rec := w.session("bob", nil)
	require.NoError(t, bob.Start(ctx))

	err := bob.SelectConversation(ctx, "alice_bob", "Alice")
	assert.ErrorIs(t, err, domain.ErrPanelClosed)
	toast, _ := rec.last(domain.EffectToast)
	assert.Equal(t, "window", toast["kind"])
	assert.Zero(t, w.feed.subscribers(repository.RoomChannel("alice_bob")))
}

func TestSession_Presence(t *testing.T) {
	w := newChatWorld()
	ctx := context.Background()

	bob, _ := w.session("bob", nil)
	require.NoError(t, bob.Start(ctx))
	alice, _ := w.session("alice", nil)
	require.NoError(t, alice.Start(ctx))
	w.feed.flush()

	assert.Equal(t, []string{"alice"}, bob.Snapshot().Online)
	assert.Equal(t, []string{"bob"}, alice.Snapshot().Online)

	alice.Close(ctx)
	w.feed.flush()
	assert.Empty(t, bob.Snapshot().Online)
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	w := newChatWorld()
	ctx := context.Background()
	bob, _ := w.session("bob", nil)
	require.NoError(t, bob.Start(ctx))
	bob.OpenLauncher(ctx)
	require.NoError(t, bob.SelectConversation(ctx, "alice_bob", "Alice"))

	bob.Close(ctx)
	bob.Close(ctx)

	assert.Zero(t, w.feed.subscribers(repository.UserChannel("bob")))
	assert.Zero(t, w.feed.subscribers(repository.RoomChannel("alice_bob")))
	assert.Zero(t, w.feed.subscribers(repository.PresenceChannel))
	viewing, _ := w.viewing.IsViewing(ctx, "bob", "alice_bob")
	assert.False(t, viewing)

	// 關閉後的訊息不再處理
	send(t, w, "alice", "bob", "anyone?")
	w.feed.flush()
	assert.Zero(t, bob.Snapshot().TotalUnread)
}

func TestSession_ListAndSearchConversations(t *testing.T) {
	w := newChatWorld()
	ctx := context.Background()
	send(t, w, "alice", "bob", "hi")
	send(t, w, "carol", "bob", "hey")

	bob, _ := w.session("bob", nil)
	list, err := bob.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "bob_carol", list[0].ID)

	hits := bob.SearchConversations("carl")
	require.Len(t, hits, 1)
	assert.Equal(t, "bob_carol", hits[0].ID)
}

func TestSession_ViewingKeyOutlivesTTLWhileVisible(t *testing.T) {
	w := newChatWorld()
	w.viewing.expireAfter(30*time.Second, w.clock.Now)
	ctx := context.Background()

	alice, _ := w.session("alice", nil)
	require.NoError(t, alice.Start(ctx))
	alice.OpenLauncher(ctx)
	require.NoError(t, alice.SelectConversation(ctx, "alice_bob", "Bob"))
	w.feed.flush()

	// 聊天室的訊息會延長 key
	w.clock.Advance(20 * time.Second)
	send(t, w, "bob", "alice", "still there?")
	w.feed.flush()
	w.clock.Advance(20 * time.Second)
	viewing, err := w.viewing.IsViewing(ctx, "alice", "alice_bob")
	require.NoError(t, err)
	assert.True(t, viewing)

	// 沒有訊息時由 heartbeat 延長
	alice.Heartbeat(ctx)
	w.clock.Advance(25 * time.Second)
	viewing, _ = w.viewing.IsViewing(ctx, "alice", "alice_bob")
	assert.True(t, viewing)

	w.clock.Advance(10 * time.Second)
	viewing, _ = w.viewing.IsViewing(ctx, "alice", "alice_bob")
	assert.False(t, viewing)
}

func TestSession_HeartbeatLoopRewritesPresence(t *testing.T) {
	w := newChatWorld()
	ctx := context.Background()
	deps := w.deps(nil)
	deps.Heartbeat = 5 * time.Millisecond
	bob := NewSession("bob", "", deps, nil)
	require.NoError(t, bob.Start(ctx))
	defer bob.Close(ctx)

	written := func() time.Time {
		w.presence.mu.Lock()
		defer w.presence.mu.Unlock()
		return w.presence.recs["bob"].UpdatedAt
	}
	first := written()
	assert.Eventually(t, func() bool { return written().After(first) }, time.Second, 5*time.Millisecond)
}

func TestSession_HeartbeatDropsSilentMembers(t *testing.T) {
	w := newChatWorld()
	ctx := context.Background()
	deps := w.deps(nil)
	deps.PresenceTTL = 2 * time.Minute

	bob := NewSession("bob", "", deps, nil)
	require.NoError(t, bob.Start(ctx))
	alice := NewSession("alice", "", deps, nil)
	require.NoError(t, alice.Start(ctx))
	w.feed.flush()
	require.Equal(t, []string{"alice"}, bob.Snapshot().Online)

	// alice 的連線消失且沒有寫離線
	w.clock.Advance(3 * time.Minute)
	bob.Heartbeat(ctx)
	w.feed.flush()
	assert.Empty(t, bob.Snapshot().Online)
	assert.Equal(t, []string{"bob"}, alice.Snapshot().Online)

	alice.Heartbeat(ctx)
	w.feed.flush()
	assert.Equal(t, []string{"alice"}, bob.Snapshot().Online)
}

func TestSession_QuickRoomReachesMemberWhoNeverPosted(t *testing.T) {
	w := newBDDWorld()
	w.chat.chat.quickRooms = domain.NewQuickRooms([]string{"general"})
	w.chat.chat.members = staticMembers{"alice", "bob", "carol"}
	ctx := context.Background()

	bob := NewSession("bob", "", w.chat.deps(w.reader), nil)
	require.NoError(t, bob.Start(ctx))
	alice := NewSession("alice", "Alice Wu", w.chat.deps(w.reader), nil)
	require.NoError(t, alice.Start(ctx))
	w.chat.feed.flush()

	// general 還沒有任何訊息
	_, err := alice.SendMessage(ctx, SendRequest{ConversationID: "general", Text: "standup in 5"})
	require.NoError(t, err)
	w.chat.feed.flush()

	assert.Equal(t, map[string]int{"general": 1}, bob.Snapshot().Unread)
	assert.Len(t, bob.Messages("general"), 1)
	assert.Equal(t, 1, w.notifs.count("bob", notifdomain.TypeGroupChat, true))
	assert.Equal(t, 1, w.notifs.count("carol", notifdomain.TypeGroupChat, true))
	assert.Zero(t, w.notifs.count("alice", notifdomain.TypeGroupChat, false))

	note := w.notifs.items[notifdomain.Key("bob", notifdomain.TypeGroupChat, "general")]
	assert.Equal(t, "Alice Wu", note.Title)

	conv, ok := w.chat.convs.get("general")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, conv.Participants)
}

func TestSession_ReauthOutageIsNotWrongPassword(t *testing.T) {
	w := newChatWorld()
	ctx := context.Background()
	auth := new(MockAuthenticator)
	auth.On("Reauthenticate", ctx, "bob", "pw").Return(context.DeadlineExceeded).Once()

	deps := w.deps(nil)
	deps.Auth = auth
	rec := &effectRecorder{}
	bob := NewSession("bob", "", deps, rec)

	err := bob.DeleteMessage(ctx, "m1", "pw")
	assert.ErrorIs(t, err, errprocess.ErrTransient)
	assert.NotErrorIs(t, err, errprocess.ErrReauthFailed)
	toast, _ := rec.last(domain.EffectToast)
	assert.Equal(t, "transient", toast["kind"])
	auth.AssertExpectations(t)
}

func TestSession_ReopenPillClearsWhileTabHidden(t *testing.T) {
	w := newChatWorld()
	ctx := context.Background()
	notes := &recordingNotifications{}

	bob, _ := w.session("bob", notes)
	require.NoError(t, bob.Start(ctx))
	bob.OpenLauncher(ctx)
	require.NoError(t, bob.SelectConversation(ctx, "alice_bob", "Alice"))
	require.NoError(t, bob.Minimize(ctx))
	bob.SetTabHidden(ctx, true)

	send(t, w, "alice", "bob", "you there?")
	w.feed.flush()
	require.Equal(t, map[string]int{"alice_bob": 1}, bob.Snapshot().Unread)

	require.NoError(t, bob.ReopenPill(ctx, "alice_bob"))

	snap := bob.Snapshot()
	assert.Zero(t, snap.TotalUnread)
	assert.Empty(t, snap.Unread)
	assert.False(t, bob.IsConversationVisible("alice_bob"))
	require.Len(t, notes.calls, 2)
	assert.Equal(t, entityRead{recipient: "bob", kind: notifdomain.TypeDirectChat, entity: "alice_bob"}, notes.calls[1])

	unread, err := w.msgs.FindUnreadFor(ctx, "bob", 0)
	require.NoError(t, err)
	assert.Empty(t, unread)
}
