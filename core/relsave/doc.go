// Package relsave saves a gorm model together with its related records in a
// single transaction.
//
// A Record wraps one owning model instance. Relation assignments are staged
// with Set and written by Save, which inserts, updates, links and unlinks the
// related rows so that storage matches the in-memory assignment:
//   - Has-one relations (gorm belongs_to, the owner holds the key)
//   - Has-many relations (the related rows hold the key)
//   - Many-to-many relations through a link table, composite keys included
//
// # Save state machine
//
// Save moves through Validating, SavingParents, SavingSelf and SavingChildren
// before reaching Committed. Aborted is reachable from every step:
//
// 1. Validating: staged values are resolved, diffed against the linked rows and
//    turned into a Plan. The owner and every added or modified related entity
//    are validated; related messages are reported under the relation name.
//    Nothing is written when validation fails.
//
// 2. SavingParents: has-one entities are inserted or updated and their keys
//    copied into the owner's foreign key columns.
//
// 3. SavingSelf: the owner row is inserted or updated.
//
// 4. SavingChildren: has-many foreign keys are pointed at the owner or nulled,
//    link rows are inserted or deleted. Related rows are never deleted.
//
// Steps 2 to 4 run inside one transaction. On failure the in-memory owner and
// the staged entities get back the values they had before Save.
//
// # Relation values
//
// A relation accepts an entity instance, a raw key (Ref) or an attribute
// mapping (Attrs). Instances are classified as new or existing; keys must
// match a row; mappings without the full key create a new entity.
//
// # Usage Example
//
//	rec, err := relsave.New(db, &project, relsave.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	_ = rec.Set("company", 3)
//	_ = rec.Set("users", 1, 4, &User{Username: "Craig Federighi"})
//	_ = rec.Set("links", map[string]any{"language": "fr", "name": "windows10", "link": "http://windows.com"})
//
//	ok, err := rec.Save(ctx)
//	if err != nil {
//	    return err
//	}
//	if !ok {
//	    log.Warn("invalid project", zap.String("company", rec.Errors().First("company")))
//	}
package relsave
