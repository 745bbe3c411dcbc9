package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"intranet_chat/internal/chat/domain"
	"intranet_chat/internal/chat/repository"
	"intranet_chat/pkg/logger"

	"go.uber.org/zap"
)

// ScopePresence 上線狀態的權限 scope
const ScopePresence = "presence"

// PresenceTracker 寫入自己的上線狀態並追蹤其他 member
type PresenceTracker struct {
	self   domain.Presence
	repo   repository.PresenceRepository
	feed   repository.EventFeed
	emit   EffectSink
	lock   sync.Locker
	guard  scopeGuard
	now    func() time.Time
	ttl    time.Duration
	online map[string]domain.Presence
	sub    domain.Subscription
}

func newPresenceTracker(self domain.Presence, repo repository.PresenceRepository, feed repository.EventFeed,
	emit EffectSink, lock sync.Locker, guard scopeGuard, now func() time.Time, ttl time.Duration) *PresenceTracker {
	return &PresenceTracker{
		self:   self,
		repo:   repo,
		feed:   feed,
		emit:   emit,
		lock:   lock,
		guard:  guard,
		now:    now,
		ttl:    ttl,
		online: make(map[string]domain.Presence),
	}
}

// start 寫入上線、載入目前上線名單、訂閱 chat:presence
func (p *PresenceTracker) start(ctx context.Context) error {
	if p.guard.latched(ScopePresence) {
		return nil
	}
	if err := p.write(ctx, true, false); err != nil {
		return err
	}

	list, err := p.repo.List(ctx)
	if err != nil {
		p.guard.fail(ScopePresence, "list presence", err)
		return err
	}
	for _, rec := range list {
		p.apply(rec)
	}

	sub, err := p.feed.Subscribe(ctx, repository.PresenceChannel, func(ev domain.Event) {
		if ev.Presence == nil {
			return
		}
		p.lock.Lock()
		defer p.lock.Unlock()
		if p.sub == nil {
			return
		}
		if p.apply(*ev.Presence) {
			p.publish()
		}
	})
	if err != nil {
		p.guard.fail(ScopePresence, "subscribe presence", err)
		return err
	}
	p.sub = sub
	p.publish()
	return nil
}

// setAway 分頁隱藏時標記離開
func (p *PresenceTracker) setAway(ctx context.Context, away bool) error {
	if p.sub == nil || p.self.Away == away {
		return nil
	}
	return p.write(ctx, true, away)
}

// refresh 重寫自己的紀錄，並移除超過 ttl 沒有更新的 member
func (p *PresenceTracker) refresh(ctx context.Context) {
	if p.sub == nil || p.guard.latched(ScopePresence) {
		return
	}
	// 失敗已由 guard 記錄
	_ = p.write(ctx, true, p.self.Away)

	now := p.now()
	changed := false
	for id, rec := range p.online {
		if rec.Stale(now, p.ttl) {
			delete(p.online, id)
			changed = true
		}
	}
	if changed {
		p.publish()
	}
}

// stop 取消訂閱並寫入離線
func (p *PresenceTracker) stop(ctx context.Context) {
	if p.sub == nil {
		return
	}
	p.sub.Unsubscribe()
	p.sub = nil
	if err := p.write(ctx, false, false); err != nil {
		logger.Log.Warn("write offline presence", zap.String("user_id", p.self.UserID), zap.Error(err))
	}
}

// Online 不含自己，依 id 排序
func (p *PresenceTracker) Online() []string {
	out := make([]string, 0, len(p.online))
	for id := range p.online {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (p *PresenceTracker) write(ctx context.Context, online, away bool) error {
	rec := p.self
	rec.Online = online
	rec.Away = away
	rec.UpdatedAt = p.now().UTC()
	if err := p.repo.Write(ctx, rec); err != nil {
		p.guard.fail(ScopePresence, "write presence", err)
		return err
	}
	p.self = rec
	return nil
}

// apply last write wins
func (p *PresenceTracker) apply(rec domain.Presence) bool {
	if rec.UserID == p.self.UserID {
		return false
	}
	cur, ok := p.online[rec.UserID]
	if ok && rec.UpdatedAt.Before(cur.UpdatedAt) {
		return false
	}
	if !rec.Online {
		if !ok {
			return false
		}
		delete(p.online, rec.UserID)
		return true
	}
	p.online[rec.UserID] = rec
	return true
}

func (p *PresenceTracker) publish() {
	p.emit.Emit(domain.EffectPresence, map[string]interface{}{"online": p.Online()})
}
