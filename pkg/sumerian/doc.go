// Package sumerian is the library API for the file safety core: every file
// read, write, delete, listing and watch an agent performs goes through a
// Client, which keeps the agent inside the project root, records each
// outcome in the shared audit trail, and makes agent edits reversible.
//
// # Reversibility
//
// Two independent mechanisms restore content:
//
//   - Undo reverts the most recent agent edit of the session. Before an
//     agent overwrites an existing file, its bytes are copied into
//     .sumerian/snapshots/. The undo history lives in memory and holds at
//     most 50 entries; snapshots are pruned to the newest 50 on disk.
//
//   - Checkpoints are labeled multi-file copies in .sumerian/checkpoints/
//     that survive restarts. Rollback restores every captured file,
//     skipping (and reporting) any that cannot be written.
//
// # Concurrency
//
// A Client does not serialize operations. Concurrent writes to the same
// path are last-writer-wins, and two processes pointed at one project root
// keep separate undo histories over a shared snapshot directory.
//
// # Usage
//
//	client, err := sumerian.Open(sumerian.Options{ProjectRoot: root})
//	if err != nil {
//	    return err
//	}
//	if _, err := client.WriteText("src/app.ts", code, sumerian.ActorAgent, sumerian.OpOptions{}); err != nil {
//	    return err // errors.Is(err, sumerian.ErrAccessDenied) for boundary violations
//	}
//	res, _ := client.Undo(sumerian.ActorUser) // res.Restored reports success
package sumerian
