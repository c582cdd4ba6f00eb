// Package storage provides an abstraction layer for object storage services
// and the save journal built on it.
//
// It wraps the MinIO Go client to provide a simplified interface for common operations
// like checking bucket existence, uploading reports, and listing objects. This abstraction
// supports both AWS S3 and self-hosted MinIO instances.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easier
// to mock storage interactions for unit testing (as seen in core/storage/mocks).
//
// # Journal
//
// Journal implements relsave.Journal. Every committed save that wrote relations
// produces a JSON report stored at:
//
//	<journal_prefix>/<model>/<timestamp>-<uuid>.json
//
// Reports can be listed per model, read back, and pruned to the newest N.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	journal := storage.NewJournal(client, config, log)
//	err = journal.EnsureBucket(ctx)
//	rec, err := relsave.New(db, project, relsave.WithJournal(journal))
package storage
