package poll

// History is the append-only log of finalized polls, oldest first. It is
// only accessed from the coordinator goroutine.
type History struct {
	entries []*Poll
}

func NewHistory() *History {
	return &History{
		entries: make([]*Poll, 0),
	}
}

func (h *History) Len() int {
	return len(h.entries)
}

func (h *History) Last() *Poll {
	nbEntries := len(h.entries)

	if nbEntries == 0 {
		return nil
	}

	return h.entries[nbEntries-1]
}

func (h *History) Append(p *Poll) {
	if p.IsActive {
		Panicf("cannot archive active poll %d", p.Id)
	}

	h.entries = append(h.entries, p.Clone())
}

// Snapshot returns a copy of all entries.
func (h *History) Snapshot() []Poll {
	polls := make([]Poll, len(h.entries))

	for i, p := range h.entries {
		polls[i] = *p.Clone()
	}

	return polls
}
