/*
Package gate enforces the linear unlock order of pages.

A page at index i of the PageOrder is unlocked iff i <= frontier, where the
frontier is one past the highest visited index (0 when nothing is visited),
clamped to the last page. The state is derived on every call from the visited
set; nothing else is stored.

	g := gate.New(domain.DefaultPageOrder, gate.WithNavigator(nav))
	if err := g.EnsureUnlocked(ctx, "photos", sess.Visited(ctx)); err != nil {
		return err // locked: the visitor is being sent back to the hub
	}
*/
package gate
