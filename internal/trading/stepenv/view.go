package stepenv

import "github.com/Aidin1998/bourse_engine/internal/trading/agent"

// Env implements agent.View on DefaultAsset: the agent contract only
// ever sees one book, even when the underlying Env is multi-asset.
var _ agent.View = (*Env)(nil)
