package timeline

import (
	"slices"
	"sort"
	"sync"

	"github.com/VanshAg283/FCS-Project/internal/domain"
)

type Timeline struct {
	mu      sync.RWMutex
	entries []domain.ChatMessage
	ids     map[domain.MessageID]struct{}
}

func New() *Timeline {
	return &Timeline{ids: make(map[domain.MessageID]struct{})}
}

// Insert adds m in timestamp order. A duplicate id is a no-op and returns false.
func (t *Timeline) Insert(m domain.ChatMessage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insertLocked(m)
}

// Merge inserts ms atomically and returns how many were new.
func (t *Timeline) Merge(ms []domain.ChatMessage) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, m := range ms {
		if t.insertLocked(m) {
			n++
		}
	}
	return n
}

// Replace swaps the entry old for m, repositioning it by m's timestamp.
// When m's id is already present (its frame arrived before the ack) the old
// entry is simply dropped.
func (t *Timeline) Replace(old domain.MessageID, m domain.ChatMessage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := t.removeLocked(old)
	if _, dup := t.ids[m.ID]; dup {
		return removed
	}
	t.insertLocked(m)
	return true
}

// Update applies fn to the entry with id in place. fn must not change the
// id or the timestamp.
func (t *Timeline) Update(id domain.MessageID, fn func(*domain.ChatMessage)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexLocked(id)
	if i < 0 {
		return false
	}
	fn(&t.entries[i])
	return true
}

func (t *Timeline) Remove(id domain.MessageID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.removeLocked(id)
}

func (t *Timeline) Get(id domain.MessageID) (domain.ChatMessage, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i := t.indexLocked(id)
	if i < 0 {
		return domain.ChatMessage{}, false
	}
	return t.entries[i], true
}

// Messages returns a copy of all entries, oldest first.
func (t *Timeline) Messages() []domain.ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.entries)
}

func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Reset drops every entry.
func (t *Timeline) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
	t.ids = make(map[domain.MessageID]struct{})
}

func (t *Timeline) insertLocked(m domain.ChatMessage) bool {
	if _, dup := t.ids[m.ID]; dup {
		return false
	}
	at := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].Timestamp.After(m.Timestamp)
	})
	t.entries = slices.Insert(t.entries, at, m)
	t.ids[m.ID] = struct{}{}
	return true
}

func (t *Timeline) removeLocked(id domain.MessageID) bool {
	i := t.indexLocked(id)
	if i < 0 {
		return false
	}
	t.entries = slices.Delete(t.entries, i, i+1)
	delete(t.ids, id)
	return true
}

func (t *Timeline) indexLocked(id domain.MessageID) int {
	if _, ok := t.ids[id]; !ok {
		return -1
	}
	return slices.IndexFunc(t.entries, func(m domain.ChatMessage) bool { return m.ID == id })
}
