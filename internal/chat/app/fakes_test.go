package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"intranet_chat/internal/chat/domain"
	errprocess "intranet_chat/pkg/err"
)

// memFeed 事件先排隊，flush 時才派送，避免持有 session lock 時同步回呼
type memFeed struct {
	mu       sync.Mutex
	next     int
	subs     map[string]map[int]func(domain.Event)
	queue    []queuedEvent
	failSubs map[string]error
}

type queuedEvent struct {
	channel string
	data    []byte
}

func newMemFeed() *memFeed {
	return &memFeed{
		subs:     make(map[string]map[int]func(domain.Event)),
		failSubs: make(map[string]error),
	}
}

func (f *memFeed) Publish(_ context.Context, channel string, t domain.EventType, payload interface{}) error {
	data, err := domain.NewEnvelope(t, payload)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, queuedEvent{channel: channel, data: data})
	return nil
}

func (f *memFeed) Subscribe(_ context.Context, channel string, handler func(domain.Event)) (domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failSubs[channel]; err != nil {
		return nil, err
	}
	if f.subs[channel] == nil {
		f.subs[channel] = make(map[int]func(domain.Event))
	}
	f.next++
	id := f.next
	f.subs[channel][id] = handler
	return domain.NewSubscription(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs[channel], id)
	}), nil
}

// flush 派送到沒有新事件為止
func (f *memFeed) flush() {
	for {
		f.mu.Lock()
		if len(f.queue) == 0 {
			f.mu.Unlock()
			return
		}
		qe := f.queue[0]
		f.queue = f.queue[1:]
		handlers := make([]func(domain.Event), 0, len(f.subs[qe.channel]))
		for _, h := range f.subs[qe.channel] {
			handlers = append(handlers, h)
		}
		f.mu.Unlock()

		ev, err := domain.DecodeEvent(qe.data)
		if err != nil {
			continue
		}
		for _, h := range handlers {
			h(ev)
		}
	}
}

func (f *memFeed) subscribers(channel string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[channel])
}

// memMessageRepo implements repository.MessageRepository
type memMessageRepo struct {
	mu   sync.Mutex
	msgs map[string]domain.Message
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{msgs: make(map[string]domain.Message)}
}

func (r *memMessageRepo) Insert(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs[msg.ID] = *msg
	return nil
}

func (r *memMessageRepo) FindByID(_ context.Context, messageID string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[messageID]
	if !ok {
		return nil, errprocess.Wrap(errprocess.ErrNotFound, "find message", nil)
	}
	return &m, nil
}

func (r *memMessageRepo) filter(keep func(domain.Message) bool) []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.msgs {
		if keep(m) {
			m.ReadBy = append([]string{}, m.ReadBy...)
			out = append(out, m)
		}
	}
	domain.SortMessages(out)
	return out
}

func tail(msgs []domain.Message, limit int64) []domain.Message {
	if limit > 0 && int64(len(msgs)) > limit {
		return msgs[int64(len(msgs))-limit:]
	}
	return msgs
}

func (r *memMessageRepo) FindLatest(_ context.Context, conversationID string, limit int64) ([]domain.Message, error) {
	return tail(r.filter(func(m domain.Message) bool { return m.ConversationID == conversationID }), limit), nil
}

func (r *memMessageRepo) FindBefore(_ context.Context, conversationID string, before time.Time, limit int64) ([]domain.Message, error) {
	return tail(r.filter(func(m domain.Message) bool {
		return m.ConversationID == conversationID && m.CreatedAt.Before(before)
	}), limit), nil
}

func (r *memMessageRepo) FindUnreadFor(_ context.Context, userID string, limit int64) ([]domain.Message, error) {
	out := r.filter(func(m domain.Message) bool { return m.RecipientID == userID && !m.IsReadBy(userID) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memMessageRepo) MarkRead(_ context.Context, messageID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[messageID]
	if ok && !m.IsReadBy(userID) {
		m.ReadBy = append(m.ReadBy, userID)
		r.msgs[messageID] = m
	}
	return nil
}

func (r *memMessageRepo) MarkConversationRead(_ context.Context, conversationID, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, m := range r.msgs {
		if m.ConversationID == conversationID && m.SenderID != userID && !m.IsReadBy(userID) {
			m.ReadBy = append(m.ReadBy, userID)
			r.msgs[id] = m
			n++
		}
	}
	return n, nil
}

func (r *memMessageRepo) Delete(_ context.Context, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.msgs, messageID)
	return nil
}

func (r *memMessageRepo) DeleteByConversation(_ context.Context, conversationID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, m := range r.msgs {
		if m.ConversationID == conversationID {
			delete(r.msgs, id)
			n++
		}
	}
	return n, nil
}

func (r *memMessageRepo) count(conversationID string) int {
	return len(r.filter(func(m domain.Message) bool { return m.ConversationID == conversationID }))
}

// memConversationRepo implements repository.ConversationRepository
type memConversationRepo struct {
	mu    sync.Mutex
	convs map[string]domain.Conversation
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{convs: make(map[string]domain.Conversation)}
}

func (r *memConversationRepo) TouchOnSend(_ context.Context, conv domain.Conversation, msg domain.Message, recipients []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.convs[conv.ID]
	if !ok {
		cur = domain.Conversation{ID: conv.ID, Unread: map[string]int{}}
	}
	cur.Group = conv.Group
	cur.LastMessage = conv.LastMessage
	cur.LastMessageAt = msg.CreatedAt
	cur.LastSenderID = msg.SenderID
	for _, p := range conv.Participants {
		if !contains(cur.Participants, p) {
			cur.Participants = append(cur.Participants, p)
		}
	}
	if cur.Unread == nil {
		cur.Unread = map[string]int{}
	}
	for _, rc := range recipients {
		cur.Unread[rc]++
	}
	r.convs[conv.ID] = cur
	return nil
}

func (r *memConversationRepo) ResetUnread(_ context.Context, conversationID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.convs[conversationID]; ok {
		c.Unread[userID] = 0
		r.convs[conversationID] = c
	}
	return nil
}

func (r *memConversationRepo) FindByID(_ context.Context, conversationID string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[conversationID]
	if !ok {
		return nil, errprocess.Wrap(errprocess.ErrNotFound, "find conversation", nil)
	}
	return &c, nil
}

func (r *memConversationRepo) ListForUser(_ context.Context, userID string) ([]domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Conversation
	for _, c := range r.convs {
		if contains(c.Participants, userID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	return out, nil
}

func (r *memConversationRepo) ClearSummary(_ context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.convs[conversationID]; ok {
		c.LastMessage = ""
		c.LastMessageAt = time.Time{}
		c.LastSenderID = ""
		c.Unread = map[string]int{}
		r.convs[conversationID] = c
	}
	return nil
}

func (r *memConversationRepo) get(id string) (domain.Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	return c, ok
}

// memPresenceRepo implements repository.PresenceRepository
type memPresenceRepo struct {
	mu   sync.Mutex
	recs map[string]domain.Presence
	feed *memFeed
}

func (r *memPresenceRepo) Write(ctx context.Context, p domain.Presence) error {
	r.mu.Lock()
	r.recs[p.UserID] = p
	r.mu.Unlock()
	return r.feed.Publish(ctx, "chat:presence", domain.EventPresenceChanged, p)
}

func (r *memPresenceRepo) List(context.Context) ([]domain.Presence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Presence, 0, len(r.recs))
	for _, p := range r.recs {
		out = append(out, p)
	}
	return out, nil
}

// memViewing implements chat ViewingRepository and notification ViewingChecker
// 設定 ttl 後和 redis 一樣，沒有重寫的 key 會過期
type memViewing struct {
	mu      sync.Mutex
	viewing map[string]string
	expires map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func newMemViewing() *memViewing {
	return &memViewing{viewing: make(map[string]string), expires: make(map[string]time.Time)}
}

func (v *memViewing) expireAfter(ttl time.Duration, now func() time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ttl = ttl
	v.now = now
}

func (v *memViewing) SetViewing(_ context.Context, userID, entity string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if entity == "" {
		delete(v.viewing, userID)
		return nil
	}
	v.viewing[userID] = entity
	if v.ttl > 0 {
		v.expires[userID] = v.now().Add(v.ttl)
	}
	return nil
}

func (v *memViewing) Clear(_ context.Context, userID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.viewing, userID)
	return nil
}

func (v *memViewing) IsViewing(_ context.Context, userID, entityID string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ttl > 0 && !v.now().Before(v.expires[userID]) {
		delete(v.viewing, userID)
	}
	return v.viewing[userID] == entityID, nil
}

// staticMembers implements MemberDirectory
type staticMembers []string

func (m staticMembers) ListActiveMemberIDs(context.Context) ([]string, error) {
	return append([]string{}, m...), nil
}

// passwordAuth implements Authenticator
type passwordAuth map[string]string

func (a passwordAuth) Reauthenticate(_ context.Context, memberID, password string) error {
	if pw, ok := a[memberID]; !ok || pw != password {
		return errprocess.Wrap(errprocess.ErrReauthFailed, "reauthenticate", nil)
	}
	return nil
}

// effectRecorder 記錄 session 發出的 effect
type effectRecorder struct {
	mu      sync.Mutex
	effects []recordedEffect
}

type recordedEffect struct {
	action  domain.Action
	payload map[string]interface{}
}

func (r *effectRecorder) Emit(effect domain.Action, payload map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = append(r.effects, recordedEffect{action: effect, payload: payload})
}

func (r *effectRecorder) count(action domain.Action) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.effects {
		if e.action == action {
			n++
		}
	}
	return n
}

func (r *effectRecorder) last(action domain.Action) (map[string]interface{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.effects) - 1; i >= 0; i-- {
		if r.effects[i].action == action {
			return r.effects[i].payload, true
		}
	}
	return nil, false
}

func (r *effectRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = nil
}

// fakeClock 每次呼叫前進一毫秒，保證 created_at 嚴格遞增
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// chatWorld 測試用的整套 in-memory 後端
type chatWorld struct {
	feed     *memFeed
	msgs     *memMessageRepo
	convs    *memConversationRepo
	presence *memPresenceRepo
	viewing  *memViewing
	clock    *fakeClock
	auth     passwordAuth
	chat     *MessageUseCase
}

func newChatWorld(quickRooms ...string) *chatWorld {
	w := &chatWorld{
		feed:    newMemFeed(),
		msgs:    newMemMessageRepo(),
		convs:   newMemConversationRepo(),
		viewing: newMemViewing(),
		clock:   newFakeClock(),
		auth:    passwordAuth{},
	}
	w.presence = &memPresenceRepo{recs: make(map[string]domain.Presence), feed: w.feed}
	w.chat = NewMessageUseCase(w.msgs, w.convs, w.feed, nil, nil, domain.NewQuickRooms(quickRooms))
	w.chat.now = w.clock.Now
	return w
}

func (w *chatWorld) deps(notifications NotificationReader) SessionDeps {
	return SessionDeps{
		Chat:          w.chat,
		Feed:          w.feed,
		Presence:      w.presence,
		Viewing:       w.viewing,
		Auth:          w.auth,
		Notifications: notifications,
		QuickRooms:    w.chat.quickRooms,
		PageSize:      50,
		Now:           w.clock.Now,
	}
}

func (w *chatWorld) session(userID string, notifications NotificationReader) (*Session, *effectRecorder) {
	rec := &effectRecorder{}
	return NewSession(userID, "", w.deps(notifications), rec), rec
}
