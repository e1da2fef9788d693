// Package lifecycle coordinates the parts of a team's life that touch
// running agents: creating a team together with its teammates, shutting
// individual teammates down, delivering messages, and tearing the team down.
//
// The coordinator depends on two narrow ports. An [AgentBackend] runs
// agents in-process (or in a child process it owns) and identifies them by
// an opaque [team.Handle]. A [PaneBackend] hosts agents as independent
// processes in terminal panes that are addressed by title.
//
// Team creation is transactional. Every side effect that succeeds while
// spawning teammates is recorded on an undo list; on the first failure the
// list is unwound in reverse, the just-created team is deleted, and a single
// error naming the failed teammate is returned.
package lifecycle
