// Package session keeps episode sessions in memory and, optionally, in a
// persistent store.
//
// Manager owns the live sessions. Each one wraps its own engine.GameEngine
// created from an episode config and a seed. Ids are case-insensitive and
// limited to letters, digits, '-' and '_'; an empty id gets a random
// 4-character hex id.
//
// Stores:
//
//   - FilePersistence writes one JSON file per session
//   - RedisPersistence keeps JSON values plus a sorted-set index, with an
//     optional TTL
//   - SQLitePersistence keeps one row per session
//
// Only the engine snapshot is stored. The grid is rebuilt on load from the
// config, seed and episode number, so a store needs a service.ConfigManager
// to restore sessions.
//
// Usage:
//
//	store, err := session.NewFilePersistence("sessions", configs)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(store, logger)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err := manager.Create("", "donut-16", config, 42)
package session
