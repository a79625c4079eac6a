/*
Package lemon serves a small "surprise site": a sequence of pages that unlock
one after another, a session-scoped photo gallery, a background music toggle
and a hidden invite link.

# Concept

Every visitor gets a browser-session cookie. All state (visited pages, images,
music preference) lives server-side in a session-partitioned key/value store
and disappears when the session ends. A page is reachable when it sits at or
before the page right after the furthest visited one in the configured order,
so skipped pages stay open. Asking for a later page shows a lock notice and
sends the visitor back to the hub.

# Usage

	cfg, err := config.Load("lemon.yaml")
	if err != nil {
		log.Fatal(err)
	}
	app, err := lemon.New(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()
	http.ListenAndServe(cfg.Addr, app.Handler)

# Storage

Sessions can live in memory, Redis (expiring with a TTL), SQLite or JSON files.
Values may be encrypted at rest with AES-GCM by setting an encryption key.
*/
package lemon
