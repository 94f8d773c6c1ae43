package journal

import "amcjournal/internal/driver"

var _ driver.UpdateSink = (*Controller)(nil)
