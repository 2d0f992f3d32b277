package rebuild

import (
	"time"

	"github.com/bikesim/drivetrain/pkg/core"
)

// Trigger is a request to rebuild the chain.
type Trigger struct {
	Kind core.TriggerKind
	Role core.CogRole // set for TriggerRadiusChanged
	At   time.Time
}

func ManualReset() Trigger {
	return Trigger{Kind: core.TriggerManualReset, At: time.Now()}
}

func RadiusChanged(role core.CogRole) Trigger {
	return Trigger{Kind: core.TriggerRadiusChanged, Role: role, At: time.Now()}
}

func CogsChanged() Trigger {
	return Trigger{Kind: core.TriggerCogsChanged, At: time.Now()}
}
