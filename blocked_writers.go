package qdemux

// blockedWriterList is the set of writers waiting for the outbound path to
// become writable again, notified in insertion order.
type blockedWriterList struct {
	writers []BlockedWriter
	set     map[BlockedWriter]struct{}
}

func newBlockedWriterList() *blockedWriterList {
	return &blockedWriterList{set: make(map[BlockedWriter]struct{})}
}

// Add registers a writer. Double insertion is rejected.
func (l *blockedWriterList) Add(w BlockedWriter) bool {
	if _, ok := l.set[w]; ok {
		return false
	}
	l.set[w] = struct{}{}
	l.writers = append(l.writers, w)
	return true
}

// Remove drops a writer, used when the owning connection is closed.
func (l *blockedWriterList) Remove(w BlockedWriter) {
	if _, ok := l.set[w]; !ok {
		return
	}
	delete(l.set, w)
	for i, writer := range l.writers {
		if writer == w {
			l.writers = append(l.writers[:i], l.writers[i+1:]...)
			break
		}
	}
}

// OnCanWrite notifies all registered writers in insertion order. A writer
// that blocks again during notification re-registers itself and is not
// notified twice in the same pass.
func (l *blockedWriterList) OnCanWrite() {
	writers := l.writers
	l.writers = nil
	l.set = make(map[BlockedWriter]struct{})
	for _, w := range writers {
		w.OnCanWrite()
	}
}

func (l *blockedWriterList) HasPending() bool { return len(l.writers) > 0 }

func (l *blockedWriterList) Len() int { return len(l.writers) }
