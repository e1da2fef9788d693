package tmux

import (
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// DefaultGracefulStop is how long a teammate window gets to exit after
// Ctrl+C before it is killed.
const DefaultGracefulStop = 500 * time.Millisecond

// pollInterval is how often exit waits re-check a pid.
const pollInterval = 50 * time.Millisecond

// children lists the direct children of pid as reported by pgrep.
func children(pid int) []int {
	out, err := exec.Command("pgrep", "-P", strconv.Itoa(pid)).Output()
	if err != nil {
		return nil
	}
	var pids []int
	for _, field := range strings.Fields(string(out)) {
		if child, err := strconv.Atoi(field); err == nil {
			pids = append(pids, child)
		}
	}
	return pids
}

// descendants returns every process below pid, parents before children.
func descendants(pid int) []int {
	if pid <= 0 {
		return nil
	}
	var tree []int
	queue := children(pid)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		tree = append(tree, next)
		queue = append(queue, children(next)...)
	}
	return tree
}

// alive reports whether pid exists, using signal 0.
func alive(pid int) bool {
	return pid > 0 && syscall.Kill(pid, 0) == nil
}

// killTree SIGKILLs pid and everything below it, deepest processes first so
// that nothing is reparented mid-walk.
func killTree(pid int) {
	if pid <= 0 {
		return
	}
	tree := append([]int{pid}, descendants(pid)...)
	for i := len(tree) - 1; i >= 0; i-- {
		if alive(tree[i]) {
			_ = syscall.Kill(tree[i], syscall.SIGKILL)
		}
	}
}

// killSurvivors force-kills any of pids still running, together with
// anything they spawned since the tree was captured.
func killSurvivors(pids []int) {
	for _, pid := range pids {
		if alive(pid) {
			killTree(pid)
		}
	}
}

// awaitExit polls until pid is gone or timeout elapses and reports whether
// it exited.
func awaitExit(pid int, timeout time.Duration) bool {
	if !alive(pid) {
		return true
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		time.Sleep(pollInterval)
		if !alive(pid) {
			return true
		}
	}
	return !alive(pid)
}
