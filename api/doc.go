// Package api serves the episode service over HTTP.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - create a session ({"config_id": "donut-16", "seed": 42}, both optional)
//   - GET /api/sessions - list sessions (?sort=created|accessed&order=asc|desc&limit=N&config=name)
//   - GET /api/sessions/{id} - session info with current state
//   - DELETE /api/sessions/{id} - delete a session
//
// Episodes:
//   - GET /api/sessions/{id}/state - current state
//   - POST /api/sessions/{id}/step - {"action": "forward"} or {"actions": ["left", "forward"]}
//   - POST /api/sessions/{id}/reset - start the next episode
//   - GET /api/sessions/{id}/history - paginated steps (?page=1&limit=20&order=desc)
//   - GET /api/sessions/{id}/cells/{x}/{y} - describe one cell
//
// Configuration:
//   - GET /api/configs - list presets
//   - GET /api/configs/{name} - one preset
//
// Also served: /healthz, /metrics (Prometheus) and /ws?session={id} when a
// websocket hub is attached.
//
// Errors are JSON bodies of the form {"error": "...", "code": 404}. Unknown
// sessions and configs map to 404, bad actions and invalid params to 400,
// and stepping a finished episode to 409.
package api
