// Package taskgraph implements the task dependency state machine used by the
// team task board.
//
// It is a set of pure functions over a task slice with no locking or I/O;
// callers hold whatever lock protects the slice. A task is created Pending
// or Blocked depending on its dependencies, moves to InProgress when
// claimed, and to Completed when completed. Completing a task runs a
// cascade scan that promotes every Blocked task whose dependencies are all
// Completed back to Pending.
//
//	Blocked ──cascade (deps met)──▶ Pending
//	Pending ──claim──▶ InProgress ──claim──▶ InProgress
//	Pending/InProgress ──complete──▶ Completed
//
// Blocked and Completed tasks reject claims. Cycles are not detected: the
// members of a dependency cycle stay Blocked forever.
package taskgraph
