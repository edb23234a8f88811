package storage

import (
	"context"

	_ "github.com/mattn/go-sqlite3"
)

// Store provides an interface for persisting simulated collections and
// their ground-truth scenes. A session owns its collections, a collection
// owns at most one scene. All write operations are atomic.
type Store interface {
	// CreateSession initializes a new simulation session and returns its
	// unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - label: Human-readable session name
	//   - config: Optional run configuration. Can be string, []byte, or a
	//     JSON-serializable object
	//
	// Returns:
	//   - sessionID: Unique identifier for the created session
	//   - error: If session creation fails or context is cancelled
	CreateSession(ctx context.Context, label string, config any) (sessionID int64, err error)

	// Session retrieves a specific session by its ID.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - id: Unique session identifier
	//
	// Returns:
	//   - session: Pointer to session data
	//   - error: If the session is missing, retrieval fails or context is
	//     cancelled
	Session(ctx context.Context, id int64) (session *Session, err error)

	// Sessions returns all sessions stored in the database, ordered by
	// creation time.
	Sessions(ctx context.Context) (sessions []*Session, err error)

	// StoreCollection saves one measurement collection under a session.
	// Geometry, waveform and phase-history arrays are written as
	// little-endian float64 blobs in a single insert.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - sessionID: ID of the owning session
	//   - c: Collection to store; its ID and SessionID fields are ignored
	//
	// Returns:
	//   - collectionID: Unique identifier for the stored collection
	//   - error: If validation or storage fails, or context is cancelled
	StoreCollection(ctx context.Context, sessionID int64, c *Collection) (collectionID int64, err error)

	// Collection retrieves a stored collection with all of its arrays.
	Collection(ctx context.Context, id int64) (collection *Collection, err error)

	// Collections returns every collection of a session, ordered by ID.
	Collections(ctx context.Context, sessionID int64) (collections []*Collection, err error)

	// StoreScene saves the ground-truth target layout of a collection.
	// Targets are written in a single transaction; on any failure the
	// scene is absent entirely.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - collectionID: ID of the collection the scene was simulated into
	//   - sc: Scene to store; its ID and CollectionID fields are ignored
	//
	// Returns:
	//   - sceneID: Unique identifier for the stored scene
	//   - error: If validation or storage fails, or context is cancelled
	StoreScene(ctx context.Context, collectionID int64, sc *Scene) (sceneID int64, err error)

	// Scene retrieves the stored scene of a collection, with targets in
	// their original order.
	Scene(ctx context.Context, collectionID int64) (scene *Scene, err error)

	// Close releases all database connections and resources.
	// After Close is called, the store instance cannot be reused.
	// It is safe to call Close multiple times.
	Close() error
}
