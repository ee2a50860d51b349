package runtime

import "container/heap"

// queueItem is one entry in the priority queue: a task id plus the
// scheduling rank and submission sequence that order it (spec.md §4.J:
// "max-heap on priority, tiebreak by submission time").
type queueItem struct {
	taskID string
	rank   int
	seq    int64
	index  int
}

// priorityQueue is a min-heap on (rank, seq): lower rank sorts first
// (urgent=1 ... low=4, see model.PriorityBucket.Rank), and within equal
// rank the earlier submission sorts first.
type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].rank != pq[j].rank {
		return pq[i].rank < pq[j].rank
	}
	return pq[i].seq < pq[j].seq
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*queueItem) //nolint:errcheck
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

var _ heap.Interface = (*priorityQueue)(nil)
