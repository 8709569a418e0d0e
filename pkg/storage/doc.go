// Package storage writes the crawler's output files.
//
// The storage package handles:
//   - Page snapshots: one JSON array per page in the data directory,
//     named by a 9-digit millisecond timestamp fragment
//   - Avatar images: <display name><8-digit fragment><ext> in the image
//     directory
//   - Listing and reading snapshots back for the image loader
//
// Every write goes to a temporary file that is renamed into place, so a
// failed transfer never leaves a partial file. When two writes would pick the
// same name the later one moves its fragment forward one millisecond.
//
// Usage:
//
//	manager, err := storage.NewManager("./data", "./imgs")
//	if err != nil {
//	    return err
//	}
//
//	path, err := manager.SaveSnapshot(page.Data)
package storage
