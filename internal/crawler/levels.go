package crawler

import "github.com/nao1215/topiccrawl/internal/model"

// levelQueue buckets pending work by depth so that the concurrent crawler can
// take a whole level at once without rescanning the pending list.
type levelQueue struct {
	levels map[int][]model.PendingURL
}

func newLevelQueue(items []model.PendingURL) *levelQueue {
	q := &levelQueue{levels: make(map[int][]model.PendingURL)}
	q.push(items...)
	return q
}

// push adds items to the buckets of their depths.
func (q *levelQueue) push(items ...model.PendingURL) {
	for _, item := range items {
		q.levels[item.Depth] = append(q.levels[item.Depth], item)
	}
}

// take removes and returns every item at depth.
func (q *levelQueue) take(depth int) []model.PendingURL {
	items := q.levels[depth]
	delete(q.levels, depth)
	return items
}

// len returns the number of items across all levels.
func (q *levelQueue) len() int {
	n := 0
	for _, items := range q.levels {
		n += len(items)
	}
	return n
}
