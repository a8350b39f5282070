package nodeclient

import "sync/atomic"

// SelectionPolicy decides the order in which the replicas of a failover
// group are tried when acquiring a connection.
type SelectionPolicy interface {
	// Order returns the indexes of n replicas in the order they should be
	// tried. Every index in [0, n) must appear exactly once.
	Order(n int) []int
}

// FirstAlive tries the replicas in their declaration order, so the first
// configured replica is always preferred when it is reachable.
type FirstAlive struct{}

func (FirstAlive) Order(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	return order
}

// RoundRobin rotates the starting replica between acquisitions, spreading
// the load evenly across the group.
type RoundRobin struct {
	next uint32
}

func (r *RoundRobin) Order(n int) []int {
	if n == 0 {
		return nil
	}

	start := int(atomic.AddUint32(&r.next, 1)-1) % n

	order := make([]int, n)
	for i := range order {
		order[i] = (start + i) % n
	}

	return order
}
