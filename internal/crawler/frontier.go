package crawler

// Frontier is the traversal state of one crawl run: the set of URLs
// already dequeued and a FIFO queue of URLs waiting to be fetched.
// A URL enters the queue at most once per run. It is not safe for
// concurrent use.
type Frontier struct {
	queue   []string
	seen    map[string]struct{}
	visited map[string]struct{}
}

// NewFrontier returns an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		seen:    make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}
}

// Push enqueues key unless it was queued or visited before.
// It reports whether key was added.
func (f *Frontier) Push(key string) bool {
	if _, ok := f.seen[key]; ok {
		return false
	}
	f.seen[key] = struct{}{}
	f.queue = append(f.queue, key)
	return true
}

// Pop dequeues the oldest key and marks it visited.
// It returns false when the queue is empty.
func (f *Frontier) Pop() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	key := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	f.visited[key] = struct{}{}
	return key, true
}

// Len returns the number of queued keys.
func (f *Frontier) Len() int {
	return len(f.queue)
}

// Visited reports whether key was dequeued.
func (f *Frontier) Visited(key string) bool {
	_, ok := f.visited[key]
	return ok
}

// VisitedCount returns the number of dequeued keys.
func (f *Frontier) VisitedCount() int {
	return len(f.visited)
}
