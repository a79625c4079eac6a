/*
Package domain contains the core domain models of the lemon surprise site.

It defines the page order, the visited set, the image list and the typed
change notifications exchanged between components. This package is kept pure
and free of external dependencies like I/O or persistence, following
Hexagonal Architecture principles.

# Key Entities

  - PageOrder: The fixed linear sequence in which pages unlock.
  - VisitedSet: The session-scoped set of pages the visitor has reported as seen.
  - ChangeEvent: A typed notification emitted after every session mutation.
  - Hooks: Observability callbacks (logging, metrics) fired by the core.
*/
package domain
