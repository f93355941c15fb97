package reeves

import reeveserrors "github.com/reeves-dev/reeves/internal/errors"

// errTextSearchNotLoaded is returned by Search when LoadTextSearch has
// never been called against this Reeves instance.
var errTextSearchNotLoaded = reeveserrors.Query("fuzzy type index not loaded; call LoadTextSearch first", nil)
