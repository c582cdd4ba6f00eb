// Package project exposes projects and their relations over HTTP and the CLI.
//
// Every change goes through a relsave record, so a single request can rename a
// project, move it to another company, and rewrite its users and links in one
// transaction.
//
// # Request Format
//
//	{
//	  "name": "Mac OS X",
//	  "relations": {
//	    "company": 2,
//	    "users": [1, {"username": "Craig Federighi"}],
//	    "links": [{"language": "fr", "name": "mac_os_x"}]
//	  }
//	}
//
// Numbers and strings are primary keys, objects are attribute maps (a full key
// loads the row and overlays the rest), arrays list the new linked set and
// null clears a relation.
//
// # Routes
//
//   - GET /projects/:id: the project with company, users and links
//   - POST /projects: create; 201 when saved
//   - PUT /projects/:id: update; 200 when saved
//
// Both writes accept ?dry_run=1 to return the planned writes without saving.
// Validation failures answer 422 with the messages keyed by relation.
//
// # Schema
//
// Migrate, Seed and Verify prepare the tables used by the feature and back the
// migrate command.
package project
