// Package websocket pushes session events to browser watchers.
//
// A Hub keeps the connected clients per session id and implements
// service.Broadcaster, so the game service can hand it every step, reset
// and lifecycle event. Clients connect with ?session=<id> and receive one
// JSON Message per frame; anything they send is ignored.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	svc := service.NewGameService(sessions, configs, service.WithBroadcaster(hub))
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// Broadcast never blocks: events are queued for the Run loop and dropped
// when the queue is full. Slow clients are disconnected.
package websocket
